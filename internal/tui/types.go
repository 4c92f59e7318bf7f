package tui

import "github.com/csheth/docscribe/internal/submission"

const (
	heroTitle   = "Code Documentation Generator"
	heroTagline = "Generate documentation from code, file, or GitHub URL"
)

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	codeEditorHeight          = 8
)

const (
	codePlaceholder = "Paste your code here..."
	pathPlaceholder = "Path to a source file (~ allowed)"
	urlPlaceholder  = "https://github.com/username/repo"
)

// submitLabel mirrors the action button for a mode.
func submitLabel(mode submission.Mode, pending bool) string {
	switch mode {
	case submission.ModeFileUpload:
		if pending {
			return "Processing..."
		}
		return "Upload & Generate"
	case submission.ModeGithubURL:
		if pending {
			return "Generating..."
		}
		return "Generate Documentation"
	default:
		if pending {
			return "Generating..."
		}
		return "Generate from Code"
	}
}

// submitKey is the key that triggers submitLabel for a mode.
func submitKey(mode submission.Mode) string {
	if mode == submission.ModeCodeText {
		return "Ctrl+S"
	}
	return "Enter"
}
