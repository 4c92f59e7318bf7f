// Package session owns the active input mode and the per-mode generation
// state, and coordinates submissions against the documentation service.
package session

import (
	"log"
	"sync"

	"github.com/csheth/docscribe/internal/submission"
)

type slot struct {
	pending  bool
	markdown string
	errMsg   string
	// hasResult distinguishes an empty generated document from no result.
	hasResult bool
}

// View is a read-only snapshot of the active mode's state.
type View struct {
	Mode      submission.Mode
	Pending   bool
	Markdown  string
	HasResult bool
	Error     string
	HasSource bool
	Epoch     uint64
}

// Controller holds the active mode, one slot per mode, and the retained
// source reference. It is safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	mode   submission.Mode
	epoch  uint64
	slots  map[submission.Mode]*slot
	source *submission.Submission
}

// NewController starts in the given mode with empty state.
func NewController(initial submission.Mode) *Controller {
	c := &Controller{mode: initial, slots: map[submission.Mode]*slot{}}
	for _, m := range submission.Modes {
		c.slots[m] = &slot{}
	}
	return c
}

// SetMode activates mode and unconditionally clears every result, error and
// the retained source. Pending flags are left alone; in-flight calls finish
// and are discarded on settlement because the epoch moves.
func (c *Controller) SetMode(mode submission.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.mode
	c.mode = mode
	c.epoch++
	for _, s := range c.slots {
		s.markdown = ""
		s.errMsg = ""
		s.hasResult = false
	}
	c.source = nil
	log.Printf("[session] mode %s -> %s (epoch=%d)", previous, mode, c.epoch)
}

// Mode returns the active mode.
func (c *Controller) Mode() submission.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Snapshot returns the state of the active mode.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slotFor(c.mode)
	return View{
		Mode:      c.mode,
		Pending:   s.pending,
		Markdown:  s.markdown,
		HasResult: s.hasResult,
		Error:     s.errMsg,
		HasSource: c.source != nil,
		Epoch:     c.epoch,
	}
}

// Pending reports whether a call is outstanding for mode.
func (c *Controller) Pending(mode submission.Mode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotFor(mode).pending
}

// Source returns a copy of the retained source reference, or nil.
func (c *Controller) Source() *submission.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source == nil {
		return nil
	}
	src := *c.source
	return &src
}

// SetError records a message for the active mode outside of a generation,
// for example a failed download. Any result is left in place.
func (c *Controller) SetError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slotFor(c.mode).errMsg = message
}

// ClearError drops the active mode's error message.
func (c *Controller) ClearError() {
	c.SetError("")
}

func (c *Controller) slotFor(mode submission.Mode) *slot {
	s, ok := c.slots[mode]
	if !ok {
		s = &slot{}
		c.slots[mode] = s
	}
	return s
}

// tryBegin flips the pending flag for mode unless it is already set. A new
// submission clears the mode's previous error.
func (c *Controller) tryBegin(mode submission.Mode) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slotFor(mode)
	if s.pending {
		return 0, false
	}
	s.pending = true
	s.errMsg = ""
	return c.epoch, true
}

// finish clears the pending flag and, when the request still belongs to the
// active mode and epoch, applies apply to that mode's slot.
func (c *Controller) finish(mode submission.Mode, epoch uint64, apply func(s *slot, c *Controller)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slotFor(mode)
	s.pending = false
	if epoch != c.epoch || mode != c.mode {
		return false
	}
	apply(s, c)
	return true
}
