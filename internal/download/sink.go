package download

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

const partialSuffix = ".part"

// DirSink stages artifacts as partial files inside Dir and renames them into
// place on Trigger.
type DirSink struct {
	Dir string
}

// NewDirSink prepares dir (with "~" expansion), creating it if needed. An
// empty dir means the current working directory.
func NewDirSink(dir string) (*DirSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expand download dir %q: %w", dir, err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, err
	}
	return &DirSink{Dir: expanded}, nil
}

func (s *DirSink) Create(data []byte, mediaType string) (Handle, error) {
	file, err := os.CreateTemp(s.Dir, "docscribe-*"+partialSuffix)
	if err != nil {
		return nil, err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return nil, err
	}
	return &fileHandle{dir: s.Dir, partial: file.Name(), mediaType: mediaType}, nil
}

type fileHandle struct {
	dir       string
	partial   string
	mediaType string
	triggered bool
	released  bool
}

func (h *fileHandle) Trigger(filename string) (string, error) {
	if h.released {
		return "", errors.New("handle already released")
	}
	if h.triggered {
		return "", errors.New("handle already triggered")
	}
	if filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	target := filepath.Join(h.dir, filename)
	if err := os.Rename(h.partial, target); err != nil {
		return "", err
	}
	h.triggered = true
	return target, nil
}

func (h *fileHandle) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	if h.triggered {
		return nil
	}
	if err := os.Remove(h.partial); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
