package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/docscribe/internal/guide"
	"github.com/csheth/docscribe/internal/submission"
)

func (m *model) View() string {
	m.refreshViewport()
	view := m.state().Snapshot()
	parts := []string{
		m.heroView(),
		m.tabBar(view.Mode),
		m.inputPanel(view.Mode, view.Pending),
	}
	if view.Error != "" {
		parts = append(parts, errorStyle.Render(m.layout.wrap(view.Error)))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.downloading {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(m.layout.wrap(message)))
	}
	parts = append(parts, m.documentationView(view.HasResult, view.HasSource), m.statusBarView())
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render(heroTitle),
		taglineStyle.Render(heroTagline),
	)
}

func (m *model) tabBar(active submission.Mode) string {
	tabs := make([]string, 0, len(submission.Modes))
	for _, mode := range submission.Modes {
		style := tabStyle
		if mode == active {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(mode.Title()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m *model) inputPanel(mode submission.Mode, pending bool) string {
	var input string
	switch mode {
	case submission.ModeFileUpload:
		input = m.pathInput.View()
	case submission.ModeGithubURL:
		input = m.urlInput.View()
	default:
		input = m.codeInput.View()
	}

	var action string
	if pending {
		action = pendingStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), submitLabel(mode, true)))
	} else {
		action = lipgloss.JoinHorizontal(lipgloss.Top,
			keyStyle.Render(submitKey(mode)),
			keyDescStyle.Render(" "+submitLabel(mode, false)),
		)
	}
	if m.uploadChanged && mode == submission.ModeFileUpload {
		action = lipgloss.JoinHorizontal(lipgloss.Top, action, changedStyle.Render("  modified since processed"))
	}
	return strings.Join([]string{input, action}, "\n")
}

func (m *model) documentationView(hasResult, hasSource bool) string {
	if hasResult {
		return strings.Join([]string{
			sectionHeaderStyle.Render("Documentation"),
			m.viewport.View(),
		}, "\n")
	}
	steps := guide.Build(guide.Context{
		Mode:      m.state().Mode(),
		APIURL:    m.config.APIURL,
		HasSource: hasSource,
	})
	lines := []string{sectionHeaderStyle.Render("How it works")}
	wrap := m.layout.wrapWidth(4)
	for idx, step := range steps {
		lines = append(lines, stepTitleStyle.Render(fmt.Sprintf("%d. %s", idx+1, step.Title)))
		lines = append(lines, indentMultiline(helperStyle.Render(wordwrap.String(step.Description, wrap)), "   "))
	}
	return strings.Join(lines, "\n")
}

func (m *model) statusBarView() string {
	hints := []string{"Tab switch", "Ctrl+Y copy", "Esc quit"}
	if m.state().Mode() != submission.ModeGithubURL {
		hints = append([]string{"Ctrl+D download"}, hints...)
	}
	stats := []string{fmt.Sprintf("Mode %s", m.state().Mode())}
	stats = append(stats, m.jobStatusBadges()...)
	if m.config.APIURL != "" {
		stats = append(stats, m.config.APIURL)
	}
	stats = append(stats, hints...)
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	var badges []string
	for _, kind := range []jobKind{jobKindGenerate, jobKindDownload} {
		snapshot, ok := m.jobStates[kind]
		if !ok {
			continue
		}
		badge := fmt.Sprintf("%s %s", kind, snapshot.Status)
		if snapshot.Status != jobStatusRunning {
			badge = fmt.Sprintf("%s (%s)", badge, snapshot.Duration.Round(time.Millisecond))
		}
		badges = append(badges, badge)
	}
	return badges
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	taglineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb347")).Italic(true)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	stepTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	pendingStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166")).Italic(true)
	changedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8c00"))

	tabAccentColor = lipgloss.Color("#ff8c00")
	tabStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Foreground(lipgloss.Color("#e0def4")).Padding(0, 2)
	activeTabStyle = tabStyle.BorderForeground(tabAccentColor).Foreground(tabAccentColor).Bold(true)

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
)
