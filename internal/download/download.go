// Package download retrieves the canonical documentation artifact for a
// retained source and saves it locally.
package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/skratchdot/open-golang/open"

	"github.com/csheth/docscribe/internal/docsapi"
	"github.com/csheth/docscribe/internal/submission"
)

const markdownMediaType = "text/markdown"

// UnsupportedSourceError is returned when there is no retained source that
// the artifact endpoint can replay.
type UnsupportedSourceError struct {
	Mode *submission.Mode
}

func (e *UnsupportedSourceError) Error() string {
	if e.Mode == nil {
		return "nothing to download yet: generate documentation from code or a file first"
	}
	return fmt.Sprintf("download is not available for %s submissions", e.Mode.Title())
}

// DownloadError wraps a failed retrieval or save.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string {
	var reqErr *docsapi.RequestError
	if errors.As(e.Err, &reqErr) {
		return reqErr.Message
	}
	return fmt.Sprintf("Download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Sink turns a binary payload into a short-lived handle.
type Sink interface {
	Create(data []byte, mediaType string) (Handle, error)
}

// Handle is a transient resource owned by one download. Trigger performs the
// one-shot save; Release frees whatever backs the handle.
type Handle interface {
	Trigger(filename string) (string, error)
	Release() error
}

// Opener is invoked with the saved path after a successful save.
type Opener func(path string) error

// OpenWithSystem hands the saved file to the platform's default application.
func OpenWithSystem(path string) error {
	return open.Start(path)
}

// Saved describes a completed download.
type Saved struct {
	Path     string
	Filename string
	Bytes    int
	// ServerFilename is the name the service suggested; informational only.
	ServerFilename string
}

// Manager replays a retained source against the artifact endpoint.
type Manager struct {
	client docsapi.Client
	sink   Sink
	opener Opener
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the clock used for filenames.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithOpener runs opener after each successful save.
func WithOpener(opener Opener) Option {
	return func(m *Manager) { m.opener = opener }
}

// NewManager wires a manager to its transport and sink.
func NewManager(client docsapi.Client, sink Sink, opts ...Option) *Manager {
	m := &Manager{client: client, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Filename is the deterministic name for an artifact saved at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("code_documentation_%d.md", t.UnixMilli())
}

// Download fetches the artifact for source and saves it. source must be a
// retained code or file submission; anything else fails before any request.
func (m *Manager) Download(ctx context.Context, source *submission.Submission) (Saved, error) {
	if source == nil {
		return Saved{}, &UnsupportedSourceError{}
	}
	if !source.Retainable() {
		mode := source.Mode
		return Saved{}, &UnsupportedSourceError{Mode: &mode}
	}
	payload, err := submission.BuildArtifact(*source)
	if err != nil {
		return Saved{}, &DownloadError{Err: err}
	}

	artifact, err := m.client.RetrieveArtifact(ctx, payload)
	if err != nil {
		log.Printf("[download] retrieve failed for %s: %v", source.Describe(), err)
		return Saved{}, &DownloadError{Err: err}
	}

	handle, err := m.sink.Create(artifact.Data, markdownMediaType)
	if err != nil {
		return Saved{}, &DownloadError{Err: fmt.Errorf("prepare artifact: %w", err)}
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := handle.Release(); err != nil {
			log.Printf("[download] release handle: %v", err)
		}
	}
	defer release()

	filename := Filename(m.now())
	path, err := handle.Trigger(filename)
	release()
	if err != nil {
		return Saved{}, &DownloadError{Err: fmt.Errorf("save %s: %w", filename, err)}
	}
	log.Printf("[download] saved %s (%d bytes, server name %q)", path, len(artifact.Data), artifact.Filename)

	if m.opener != nil {
		if err := m.opener(path); err != nil {
			log.Printf("[download] open %s: %v", path, err)
		}
	}
	return Saved{
		Path:           path,
		Filename:       filename,
		Bytes:          len(artifact.Data),
		ServerFilename: artifact.Filename,
	}, nil
}
