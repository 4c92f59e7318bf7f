// Package submission turns user input into the request payloads understood by
// the documentation service.
package submission

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Mode identifies one of the mutually exclusive input surfaces.
type Mode int

const (
	ModeCodeText Mode = iota
	ModeFileUpload
	ModeGithubURL
)

// Modes lists every input mode in tab order.
var Modes = []Mode{ModeCodeText, ModeFileUpload, ModeGithubURL}

func (m Mode) String() string {
	switch m {
	case ModeCodeText:
		return "code"
	case ModeFileUpload:
		return "file"
	case ModeGithubURL:
		return "github"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Title is the label rendered on the mode's tab.
func (m Mode) Title() string {
	switch m {
	case ModeCodeText:
		return "Paste Code"
	case ModeFileUpload:
		return "Upload File"
	case ModeGithubURL:
		return "GitHub URL"
	default:
		return m.String()
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= ModeCodeText && m <= ModeGithubURL
}

// ErrNotRetainable is returned when a submission cannot be replayed against
// the artifact endpoint.
var ErrNotRetainable = errors.New("submission has no re-downloadable source")

// File is an in-memory upload handle.
type File struct {
	Name string
	Data []byte
}

// Submission carries the payload for exactly one mode. Only the field that
// matches Mode is meaningful.
type Submission struct {
	Mode Mode
	Text string
	File *File
	URL  string
}

// Text builds a pasted-code submission. The code is kept verbatim.
func Text(code string) Submission {
	return Submission{Mode: ModeCodeText, Text: code}
}

// Upload builds a file submission.
func Upload(file *File) Submission {
	return Submission{Mode: ModeFileUpload, File: file}
}

// Repository builds a repository submission; surrounding whitespace is dropped.
func Repository(url string) Submission {
	return Submission{Mode: ModeGithubURL, URL: strings.TrimSpace(url)}
}

// Empty reports whether the submission carries nothing worth sending.
func (s Submission) Empty() bool {
	switch s.Mode {
	case ModeCodeText:
		return strings.TrimSpace(s.Text) == ""
	case ModeFileUpload:
		return s.File == nil
	case ModeGithubURL:
		return strings.TrimSpace(s.URL) == ""
	default:
		return true
	}
}

// Retainable reports whether the submission can be kept as a source
// reference for a later artifact download.
func (s Submission) Retainable() bool {
	return (s.Mode == ModeCodeText || s.Mode == ModeFileUpload) && !s.Empty()
}

// Describe returns a short human label used in logs and status lines.
func (s Submission) Describe() string {
	switch s.Mode {
	case ModeCodeText:
		return fmt.Sprintf("%d chars of code", len(s.Text))
	case ModeFileUpload:
		if s.File == nil {
			return "no file"
		}
		return fmt.Sprintf("%s (%d bytes)", s.File.Name, len(s.File.Data))
	case ModeGithubURL:
		return s.URL
	default:
		return s.Mode.String()
	}
}

// LoadFile reads a local file into an upload handle. A leading "~" is
// expanded to the user's home directory.
func LoadFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file path is empty")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", path, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", expanded)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	return &File{Name: filepath.Base(expanded), Data: data}, nil
}
