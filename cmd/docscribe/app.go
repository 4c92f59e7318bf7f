package main

import (
	"github.com/spf13/cobra"

	"github.com/csheth/docscribe/internal/config"
	"github.com/csheth/docscribe/internal/docsapi"
	"github.com/csheth/docscribe/internal/download"
	"github.com/csheth/docscribe/internal/render"
	"github.com/csheth/docscribe/internal/session"
	"github.com/csheth/docscribe/internal/submission"
)

const renderCacheSize = 32

// app is the wiring shared by the TUI and the one-shot subcommands.
type app struct {
	cfg          *config.Config
	client       docsapi.Client
	orchestrator *session.Orchestrator
	downloads    *download.Manager
	renderer     *render.Renderer
}

func newApp(cmd *cobra.Command) (*app, error) {
	overrides := config.Overrides{
		EnvFile:     envFile,
		APIURL:      apiURL,
		DownloadDir: downloadDir,
		RenderStyle: renderStyle,
		LogFile:     logFile,
	}
	if cmd.Flags().Changed("open") {
		open := openSaved
		overrides.OpenAfterSave = &open
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, err
	}

	client, err := docsapi.NewFromEnv(docsapi.Config{BaseURL: cfg.APIURL})
	if err != nil {
		return nil, err
	}
	sink, err := download.NewDirSink(cfg.DownloadDir)
	if err != nil {
		return nil, err
	}
	var opts []download.Option
	if cfg.OpenAfterSave {
		opts = append(opts, download.WithOpener(download.OpenWithSystem))
	}
	renderer, err := render.New(cfg.RenderStyle, renderCacheSize)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:          cfg,
		client:       client,
		orchestrator: session.New(session.NewController(submission.ModeCodeText), client),
		downloads:    download.NewManager(client, sink, opts...),
		renderer:     renderer,
	}, nil
}
