package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/csheth/docscribe/internal/session"
	"github.com/csheth/docscribe/internal/submission"
)

const printWidth = 100

var (
	saveArtifact bool
	rawOutput    bool
)

var textCmd = &cobra.Command{
	Use:   "text [FILE|-]",
	Short: "Generate documentation for code read from a file or stdin",
	Long: `Send source code as pasted text. With no argument, or "-", the code is read
from standard input.

Example:
  docscribe text main.py
  cat main.py | docscribe text --save`,
	Args: cobra.MaximumNArgs(1),
	RunE: runText,
}

var fileCmd = &cobra.Command{
	Use:   "file PATH",
	Short: "Upload a source file and generate documentation",
	Args:  cobra.ExactArgs(1),
	RunE:  runFile,
}

var repoCmd = &cobra.Command{
	Use:   "repo URL",
	Short: "Generate documentation for a GitHub repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepo,
}

func init() {
	for _, c := range []*cobra.Command{textCmd, fileCmd} {
		c.Flags().BoolVar(&saveArtifact, "save", false, "download the documentation file after generating")
	}
	for _, c := range []*cobra.Command{textCmd, fileCmd, repoCmd} {
		c.Flags().BoolVar(&rawOutput, "raw", false, "print markdown without terminal rendering")
		rootCmd.AddCommand(c)
	}
}

func runText(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		var path string
		path, err = homedir.Expand(args[0])
		if err == nil {
			data, err = os.ReadFile(path)
		}
	}
	if err != nil {
		return fmt.Errorf("reading code: %w", err)
	}
	return generate(cmd, submission.Text(string(data)))
}

func runFile(cmd *cobra.Command, args []string) error {
	file, err := submission.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return generate(cmd, submission.Upload(file))
}

func runRepo(cmd *cobra.Command, args []string) error {
	return generate(cmd, submission.Repository(args[0]))
}

func generate(cmd *cobra.Command, sub submission.Submission) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(app.cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	status := color.New(color.FgCyan)
	status.Fprintf(cmd.ErrOrStderr(), "%s via %s\n", submitStatus(sub.Mode), app.client.BaseURL())

	ctx := cmd.Context()
	settlement, outcome := app.orchestrator.Generate(ctx, sub)
	switch outcome {
	case session.OutcomeSkipped:
		return errors.New("nothing to submit: input is empty")
	case session.OutcomeFailed:
		return errors.New(app.orchestrator.State().Snapshot().Error)
	case session.OutcomeSucceeded:
	default:
		return fmt.Errorf("generation %s", outcome)
	}

	out := settlement.Markdown
	if !rawOutput {
		out = app.renderer.Render(settlement.Markdown, printWidth)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))

	if !saveArtifact {
		return nil
	}
	saved, err := app.downloads.Download(ctx, app.orchestrator.State().Source())
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "saved %s (%d bytes)\n", saved.Path, saved.Bytes)
	return nil
}

func submitStatus(mode submission.Mode) string {
	if mode == submission.ModeFileUpload {
		return "Processing..."
	}
	return "Generating..."
}
