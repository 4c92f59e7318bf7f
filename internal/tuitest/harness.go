// Package tuitest drives a terminal program inside a pseudo terminal so end
// to end tests can type into it and wait for rendered output.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 120
	defaultHeight  = 40
	defaultTimeout = 10 * time.Second
	pollInterval   = 25 * time.Millisecond
)

// Config configures how the harness spawns the program.
type Config struct {
	Command []string
	Dir     string
	Env     []string
	Width   int
	Height  int
	// Timeout bounds the whole session, including the final exit.
	Timeout time.Duration
}

// Recording contains the raw terminal stream plus parsed frames.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

// Session is a running program attached to a PTY.
type Session struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	cancel context.CancelFunc
	start  time.Time

	mu     sync.Mutex
	output bytes.Buffer

	copyDone chan struct{}
	exited   chan struct{}
	exitErr  error
}

// Start launches the configured command inside a PTY and begins capturing
// everything it writes.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	width := cfg.Width
	if width <= 0 {
		width = defaultWidth
	}
	height := cfg.Height
	if height <= 0 {
		height = defaultHeight
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}

	s := &Session{
		cmd:      cmd,
		ptmx:     ptmx,
		cancel:   cancel,
		start:    time.Now(),
		copyDone: make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go s.capture()
	go func() {
		s.exitErr = cmd.Wait()
		close(s.exited)
	}()
	return s, nil
}

func (s *Session) capture() {
	defer close(s.copyDone)
	responder := newTerminalResponder(s.ptmx)
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			responder.Process(chunk)
			s.mu.Lock()
			_, _ = s.output.Write(chunk)
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Send writes raw input to the program.
func (s *Session) Send(input []byte) error {
	if _, err := s.ptmx.Write(input); err != nil {
		return fmt.Errorf("tuitest: write input: %w", err)
	}
	return nil
}

// Type sends text one rune at a time so the program sees individual keys.
func (s *Session) Type(text string) error {
	for _, r := range text {
		if err := s.Send([]byte(string(r))); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

// Screen returns everything rendered so far with escape sequences removed.
func (s *Session) Screen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return normalizeLines(stripANSI(strings.ReplaceAll(s.output.String(), "\r", "")))
}

// WaitFor polls the captured output until it contains needle.
func (s *Session) WaitFor(needle string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if strings.Contains(s.Screen(), needle) {
			return nil
		}
		select {
		case <-s.exited:
			if strings.Contains(s.Screen(), needle) {
				return nil
			}
			return fmt.Errorf("tuitest: program exited before %q appeared", needle)
		default:
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("tuitest: timed out waiting for %q", needle)
		}
		time.Sleep(pollInterval)
	}
}

// Wait blocks until the program exits and returns the recording. Exit by
// interrupt is treated as success.
func (s *Session) Wait(timeout time.Duration) (*Recording, error) {
	defer s.cancel()
	select {
	case <-s.exited:
	case <-time.After(timeout):
		_ = s.cmd.Process.Kill()
		<-s.exited
		return nil, errors.New("tuitest: timeout waiting for program exit")
	}
	if err := s.exitErr; err != nil && !strings.Contains(err.Error(), "signal: interrupt") {
		return nil, fmt.Errorf("tuitest: program exited with error: %w", err)
	}

	// Closing the PTY lets the reader goroutine finish draining.
	_ = s.ptmx.Close()
	<-s.copyDone

	s.mu.Lock()
	raw := append([]byte(nil), s.output.Bytes()...)
	s.mu.Unlock()
	return &Recording{Raw: raw, Frames: parseFrames(raw), Duration: time.Since(s.start)}, nil
}

// Close kills the program if it is still running.
func (s *Session) Close() {
	select {
	case <-s.exited:
	default:
		_ = s.cmd.Process.Kill()
		<-s.exited
	}
	_ = s.ptmx.Close()
	s.cancel()
}

func buildEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

var (
	// KeyEnter sends a carriage return.
	KeyEnter = []byte{'\r'}
	// KeyTab moves focus forward.
	KeyTab = []byte{'\t'}
	// KeyCtrlC requests the program to terminate.
	KeyCtrlC = []byte{3}
	// KeyCtrlD triggers a download.
	KeyCtrlD = []byte{4}
	// KeyCtrlS submits the code editor.
	KeyCtrlS = []byte{19}
	// KeyEsc quits the docscribe TUI.
	KeyEsc = []byte{27}
)
