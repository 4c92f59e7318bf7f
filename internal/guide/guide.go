package guide

import (
	"fmt"
	"strings"

	"github.com/csheth/docscribe/internal/submission"
)

// Step represents one actionable hint in the submission workflow.
type Step struct {
	Title       string
	Description string
}

// Context carries just enough state for personalizing guide steps.
type Context struct {
	Mode submission.Mode
	// APIURL is shown so the user knows which service answers.
	APIURL string
	// HasSource reports whether a downloadable submission is retained.
	HasSource bool
}

// Build returns the checklist for the given input mode.
func Build(ctx Context) []Step {
	service := strings.TrimSpace(ctx.APIURL)
	if service == "" {
		service = "the documentation service"
	}

	var steps []Step
	switch ctx.Mode {
	case submission.ModeFileUpload:
		steps = []Step{
			{
				Title:       "Pick a file",
				Description: "Type a path to a source file; ~ expands to your home directory. The file is uploaded exactly as it is on disk.",
			},
			{
				Title:       "Process",
				Description: fmt.Sprintf("Press Enter to upload it to %s. Edits made after processing are flagged but never resent automatically.", service),
			},
		}
	case submission.ModeGithubURL:
		steps = []Step{
			{
				Title:       "Paste a repository URL",
				Description: "Use the https address of a public GitHub repository.",
			},
			{
				Title:       "Generate",
				Description: fmt.Sprintf("Press Enter to ask %s to document the repository. Repository results cannot be downloaded.", service),
			},
		}
	default:
		steps = []Step{
			{
				Title:       "Paste code",
				Description: "Type or paste source into the editor. Whitespace-only input is ignored.",
			},
			{
				Title:       "Generate",
				Description: fmt.Sprintf("Press Ctrl+S to send the code to %s.", service),
			},
		}
	}

	if ctx.Mode.Valid() && ctx.Mode != submission.ModeGithubURL {
		save := Step{
			Title:       "Save",
			Description: "After a successful run press Ctrl+D to download the canonical markdown file.",
		}
		if ctx.HasSource {
			save.Description = "Press Ctrl+D to download the canonical markdown for the last successful submission."
		}
		steps = append(steps, save)
	}
	return steps
}
