package tui

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/docscribe/internal/download"
	"github.com/csheth/docscribe/internal/render"
	"github.com/csheth/docscribe/internal/session"
	"github.com/csheth/docscribe/internal/submission"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Orchestrator *session.Orchestrator
	// Downloads is optional; without it Ctrl+D reports an error.
	Downloads *download.Manager
	// Renderer is optional; without it markdown is shown as plain text.
	Renderer *render.Renderer
	// Watcher is optional; it flags edits to the last uploaded file.
	Watcher *fsnotify.Watcher
	APIURL  string
	// CopyText defaults to the system clipboard.
	CopyText func(string) error
	// Context bounds every transport call; it defaults to Background.
	Context context.Context
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.CopyText == nil {
		config.CopyText = clipboard.WriteAll
	}
	parent := config.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	codeInput := textarea.New()
	codeInput.Placeholder = codePlaceholder
	codeInput.ShowLineNumbers = true
	codeInput.CharLimit = 0
	codeInput.MaxHeight = 0
	codeInput.SetWidth(80)
	codeInput.SetHeight(codeEditorHeight)

	pathInput := textinput.New()
	pathInput.Placeholder = pathPlaceholder
	pathInput.CharLimit = 1024
	pathInput.Width = 76

	urlInput := textinput.New()
	urlInput.Placeholder = urlPlaceholder
	urlInput.CharLimit = 512
	urlInput.Width = 76

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 12)
	vp.MouseWheelEnabled = true

	m := &model{
		config:    config,
		cancel:    cancel,
		bus:       newJobBus(ctx),
		jobStates: map[jobKind]jobSnapshot{},
		layout:    newPageLayout(),
		codeInput: codeInput,
		pathInput: pathInput,
		urlInput:  urlInput,
		spinner:   spin,
		viewport:  vp,
	}
	m.focusActive()
	return m
}

type renderKey struct {
	epoch     uint64
	width     int
	hasResult bool
	markdown  string
}

type model struct {
	config    Config
	cancel    context.CancelFunc
	bus       *jobBus
	jobStates map[jobKind]jobSnapshot
	layout    pageLayout

	codeInput textarea.Model
	pathInput textinput.Model
	urlInput  textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model

	rendered    renderKey
	infoMessage string
	downloading bool

	watching      bool
	watchedDir    string
	watchedPath   string
	uploadChanged bool
}

func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

func (m *model) state() *session.Controller {
	return m.config.Orchestrator.State()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.applyLayout()
		return m, nil
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	case jobSignalMsg:
		m.jobStates[msg.Snapshot.Kind] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		m.jobStates[msg.Snapshot.Kind] = msg.Snapshot
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case generationResultMsg:
		return m, m.handleGeneration(msg)
	case downloadResultMsg:
		m.handleDownload(msg)
		return m, nil
	case uploadChangedMsg:
		m.handleUploadChanged(msg)
		if m.config.Watcher == nil {
			return m, nil
		}
		return m, watchUploads(m.config.Watcher)
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := m.state().Mode()
	switch key.String() {
	case "ctrl+c", "esc":
		m.shutdown()
		return m, tea.Quit
	case "tab":
		return m, m.switchMode(1)
	case "shift+tab":
		return m, m.switchMode(-1)
	case "ctrl+d":
		return m, m.startDownload()
	case "ctrl+y":
		m.copyMarkdown()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	case "ctrl+s":
		return m, m.submit()
	case "enter":
		if mode != submission.ModeCodeText {
			return m, m.submit()
		}
	}

	// Input is disabled while the active mode has a call in flight.
	if m.state().Pending(mode) {
		return m, nil
	}
	var cmd tea.Cmd
	switch mode {
	case submission.ModeFileUpload:
		m.pathInput, cmd = m.pathInput.Update(key)
	case submission.ModeGithubURL:
		m.urlInput, cmd = m.urlInput.Update(key)
	default:
		m.codeInput, cmd = m.codeInput.Update(key)
	}
	return m, cmd
}

func (m *model) switchMode(delta int) tea.Cmd {
	current := m.state().Mode()
	idx := 0
	for i, mode := range submission.Modes {
		if mode == current {
			idx = i
			break
		}
	}
	count := len(submission.Modes)
	next := submission.Modes[((idx+delta)%count+count)%count]
	m.state().SetMode(next)
	m.infoMessage = ""
	m.watchedPath = ""
	m.uploadChanged = false
	return m.focusActive()
}

func (m *model) focusActive() tea.Cmd {
	m.codeInput.Blur()
	m.pathInput.Blur()
	m.urlInput.Blur()
	switch m.state().Mode() {
	case submission.ModeFileUpload:
		return m.pathInput.Focus()
	case submission.ModeGithubURL:
		return m.urlInput.Focus()
	default:
		return m.codeInput.Focus()
	}
}

func (m *model) submit() tea.Cmd {
	state := m.state()
	mode := state.Mode()
	if state.Pending(mode) {
		return nil
	}

	var (
		sub  submission.Submission
		path string
	)
	switch mode {
	case submission.ModeFileUpload:
		path = strings.TrimSpace(m.pathInput.Value())
		sub = submission.Upload(nil)
		if path != "" {
			file, err := submission.LoadFile(path)
			if err != nil {
				state.SetError(fmt.Sprintf("Cannot read file: %v", err))
				return nil
			}
			sub = submission.Upload(file)
		}
	case submission.ModeGithubURL:
		sub = submission.Repository(m.urlInput.Value())
	default:
		sub = submission.Text(m.codeInput.Value())
	}

	ticket, outcome := m.config.Orchestrator.Begin(sub)
	if ticket == nil {
		if outcome == session.OutcomeBusy {
			m.infoMessage = "A submission is already running."
		}
		return nil
	}
	m.infoMessage = ""
	m.uploadChanged = false
	return tea.Batch(m.spinner.Tick, m.bus.Start(jobKindGenerate, generateJob(ticket, path)))
}

func (m *model) handleGeneration(msg generationResultMsg) tea.Cmd {
	outcome := m.config.Orchestrator.Settle(msg.settlement)
	switch outcome {
	case session.OutcomeSucceeded:
		if msg.settlement.Mode() == submission.ModeFileUpload {
			return m.watchUpload(msg.path)
		}
	case session.OutcomeDiscarded:
		log.Printf("[tui] dropped %s result: mode changed while it was running", msg.settlement.Mode())
	}
	return nil
}

func (m *model) startDownload() tea.Cmd {
	if m.downloading {
		return nil
	}
	state := m.state()
	if m.config.Downloads == nil {
		state.SetError("Downloads are not configured.")
		return nil
	}
	state.ClearError()
	epoch := state.Snapshot().Epoch
	m.downloading = true
	m.infoMessage = "Downloading..."
	return tea.Batch(m.spinner.Tick, m.bus.Start(jobKindDownload, downloadJob(m.config.Downloads, state.Source(), epoch)))
}

func (m *model) handleDownload(msg downloadResultMsg) {
	m.downloading = false
	if msg.err != nil {
		m.infoMessage = ""
		// A mode switch since the click makes the failure irrelevant.
		if msg.epoch == m.state().Snapshot().Epoch {
			m.state().SetError(msg.err.Error())
		}
		return
	}
	m.infoMessage = fmt.Sprintf("Saved %s (%d bytes).", msg.saved.Path, msg.saved.Bytes)
}

func (m *model) copyMarkdown() {
	view := m.state().Snapshot()
	if !view.HasResult {
		m.infoMessage = "Nothing to copy yet."
		return
	}
	if err := m.config.CopyText(view.Markdown); err != nil {
		m.infoMessage = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.infoMessage = "Copied documentation to clipboard."
}

func (m *model) watchUpload(path string) tea.Cmd {
	watcher := m.config.Watcher
	if watcher == nil || path == "" {
		return nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil
	}
	dir := filepath.Dir(abs)
	if dir != m.watchedDir {
		if m.watchedDir != "" {
			_ = watcher.Remove(m.watchedDir)
		}
		if err := watcher.Add(dir); err != nil {
			log.Printf("[watch] add %s: %v", dir, err)
			m.watchedDir = ""
			return nil
		}
		m.watchedDir = dir
	}
	m.watchedPath = abs
	m.uploadChanged = false
	if m.watching {
		return nil
	}
	m.watching = true
	return watchUploads(watcher)
}

func (m *model) handleUploadChanged(msg uploadChangedMsg) {
	if m.watchedPath == "" {
		return
	}
	for _, path := range msg.paths {
		if path != m.watchedPath {
			continue
		}
		m.uploadChanged = true
		m.infoMessage = fmt.Sprintf("%s changed since it was processed. Press Enter to process it again.", filepath.Base(path))
		return
	}
}

func (m *model) busy() bool {
	return m.downloading || m.state().Snapshot().Pending
}

func (m *model) shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *model) applyLayout() {
	m.viewport.Width = m.layout.viewportWidth
	m.viewport.Height = m.layout.viewportHeight
	m.codeInput.SetWidth(m.layout.viewportWidth)
	m.codeInput.SetHeight(m.layout.editorHeight)
	m.pathInput.Width = m.layout.viewportWidth - 4
	m.urlInput.Width = m.layout.viewportWidth - 4
}

// refreshViewport re-renders the documentation only when the visible result
// or the width changed, so scrolling position survives unrelated updates.
func (m *model) refreshViewport() {
	view := m.state().Snapshot()
	key := renderKey{epoch: view.Epoch, width: m.viewport.Width, hasResult: view.HasResult, markdown: view.Markdown}
	if key == m.rendered {
		return
	}
	m.rendered = key
	content := ""
	if view.HasResult {
		content = m.renderMarkdown(view.Markdown)
		if strings.TrimSpace(content) == "" {
			content = helperStyle.Render("The service returned an empty document.")
		}
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m *model) renderMarkdown(markdown string) string {
	if m.config.Renderer == nil {
		return wordwrap.String(markdown, m.layout.wrapWidth(0))
	}
	return m.config.Renderer.Render(markdown, m.viewport.Width)
}
