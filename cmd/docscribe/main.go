package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/csheth/docscribe/internal/tui"
)

var (
	apiURL      string
	downloadDir string
	logFile     string
	renderStyle string
	envFile     string
	openSaved   bool
	noAltScreen bool
)

var rootCmd = &cobra.Command{
	Use:   "docscribe",
	Short: "Generate documentation from code, a file, or a GitHub repository",
	Long: `docscribe sends source code to the documentation service and shows the
generated markdown. Without a subcommand it opens the interactive terminal UI.

Example:
  docscribe --api-url http://localhost:8000
  docscribe text main.py --save
  docscribe repo https://github.com/user/repo`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&apiURL, "api-url", "", "documentation service URL (default $DOCSCRIBE_API_URL or http://localhost:8000)")
	flags.StringVar(&downloadDir, "download-dir", "", "directory for downloaded documentation (default $DOCSCRIBE_DOWNLOAD_DIR or .)")
	flags.StringVar(&logFile, "log-file", "", `log file, "off" disables logging (default $DOCSCRIBE_LOG_FILE or the user cache dir)`)
	flags.StringVar(&renderStyle, "style", "", "glamour style for rendered markdown (default $DOCSCRIBE_RENDER_STYLE or dark)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	flags.BoolVar(&openSaved, "open", false, "open downloaded files with the system viewer")
	rootCmd.Flags().BoolVar(&noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(app.cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[main] file watcher disabled: %v", err)
		watcher = nil
	} else {
		defer watcher.Close()
	}

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Orchestrator: app.orchestrator,
			Downloads:    app.downloads,
			Renderer:     app.renderer,
			Watcher:      watcher,
			APIURL:       app.client.BaseURL(),
			Context:      cmd.Context(),
		}),
		opts...,
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

// setupLogging sends the standard logger to path so it never draws over the
// terminal UI. An empty path discards log output.
func setupLogging(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "docscribe")
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return func() { _ = f.Close() }, nil
}
