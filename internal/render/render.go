// Package render turns generated markdown into terminal output.
package render

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultStyle     = "dark"
	defaultCacheSize = 32
	fallbackWidth    = 80
	minWidth         = 20
)

// Renderer renders markdown with glamour and remembers recent outputs, so
// redraws at an unchanged width skip the markdown pipeline.
type Renderer struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
	cache     *lru.Cache[string, string]
}

// New builds a renderer for a glamour standard style ("dark", "light",
// "notty", "ascii", ...).
func New(style string, cacheSize int) (*Renderer, error) {
	style = strings.TrimSpace(style)
	if style == "" {
		style = DefaultStyle
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	r := &Renderer{style: style, renderers: map[int]*glamour.TermRenderer{}, cache: cache}
	if _, err := r.rendererFor(fallbackWidth); err != nil {
		return nil, err
	}
	return r, nil
}

// Style is the glamour style in use.
func (r *Renderer) Style() string {
	return r.style
}

// Render returns markdown formatted for a terminal of the given width. When
// glamour fails the markdown is returned unchanged.
func (r *Renderer) Render(markdown string, width int) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	wrap := width - 4
	if wrap < minWidth {
		wrap = fallbackWidth
	}
	key := cacheKey(r.style, wrap, markdown)
	if out, ok := r.cache.Get(key); ok {
		return out
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tr, err := r.rendererFor(wrap)
	if err != nil {
		return markdown
	}
	out, err := tr.Render(markdown)
	if err != nil {
		return markdown
	}
	r.cache.Add(key, out)
	return out
}

// Len reports how many rendered documents are cached.
func (r *Renderer) Len() int {
	return r.cache.Len()
}

func (r *Renderer) rendererFor(width int) (*glamour.TermRenderer, error) {
	if tr, ok := r.renderers[width]; ok {
		return tr, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create renderer for %s:%d: %w", r.style, width, err)
	}
	r.renderers[width] = tr
	return tr, nil
}

func cacheKey(style string, width int, markdown string) string {
	sum := sha1.Sum([]byte(markdown))
	return fmt.Sprintf("%s:%d:%s", style, width, hex.EncodeToString(sum[:]))
}
