package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/csheth/docscribe/internal/docsapi"
	"github.com/csheth/docscribe/internal/submission"
)

// Outcome describes what happened to a submission attempt.
type Outcome int

const (
	// OutcomeSkipped means the input was empty; nothing was sent.
	OutcomeSkipped Outcome = iota
	// OutcomeBusy means a call for the same mode is still outstanding.
	OutcomeBusy
	// OutcomeStarted means the ticket was issued and pending is set.
	OutcomeStarted
	OutcomeSucceeded
	OutcomeFailed
	// OutcomeDiscarded means the call settled after a mode switch, or the
	// ticket had already been settled.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeBusy:
		return "busy"
	case OutcomeStarted:
		return "started"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Orchestrator validates submissions, enforces one outstanding call per
// mode, and routes transport results into the Controller.
type Orchestrator struct {
	state  *Controller
	client docsapi.Client
}

// New wires an orchestrator to its state and transport.
func New(state *Controller, client docsapi.Client) *Orchestrator {
	return &Orchestrator{state: state, client: client}
}

// State exposes the controller the orchestrator writes to.
func (o *Orchestrator) State() *Controller {
	return o.state
}

// Ticket is one issued submission. It must be Run once and its Settlement
// handed back to Settle.
type Ticket struct {
	mode    submission.Mode
	epoch   uint64
	sub     submission.Submission
	client  docsapi.Client
	started time.Time
	settled atomic.Bool
}

// Mode is the mode the ticket was issued for.
func (t *Ticket) Mode() submission.Mode {
	return t.mode
}

// Settlement is the transport result of a ticket.
type Settlement struct {
	ticket   *Ticket
	Markdown string
	Err      error
}

// Mode is the mode the settled ticket was issued for.
func (s Settlement) Mode() submission.Mode {
	if s.ticket == nil {
		return submission.Mode(-1)
	}
	return s.ticket.mode
}

// Begin validates sub and, when accepted, marks its mode pending and returns
// a ticket. Empty input and busy modes leave state untouched.
func (o *Orchestrator) Begin(sub submission.Submission) (*Ticket, Outcome) {
	if !sub.Mode.Valid() || sub.Empty() {
		return nil, OutcomeSkipped
	}
	epoch, ok := o.state.tryBegin(sub.Mode)
	if !ok {
		log.Printf("[session] %s submission rejected: call already pending", sub.Mode)
		return nil, OutcomeBusy
	}
	log.Printf("[session] %s submission started: %s", sub.Mode, sub.Describe())
	return &Ticket{
		mode:    sub.Mode,
		epoch:   epoch,
		sub:     sub,
		client:  o.client,
		started: time.Now(),
	}, OutcomeStarted
}

// BeginText starts a pasted-code submission.
func (o *Orchestrator) BeginText(code string) (*Ticket, Outcome) {
	return o.Begin(submission.Text(code))
}

// BeginFile starts a file submission.
func (o *Orchestrator) BeginFile(file *submission.File) (*Ticket, Outcome) {
	return o.Begin(submission.Upload(file))
}

// BeginRepository starts a repository submission.
func (o *Orchestrator) BeginRepository(url string) (*Ticket, Outcome) {
	return o.Begin(submission.Repository(url))
}

// Run performs the transport call. A panic inside the call is converted into
// a failed settlement so the pending flag is still released.
func (t *Ticket) Run(ctx context.Context) (settlement Settlement) {
	settlement = Settlement{ticket: t}
	defer func() {
		if r := recover(); r != nil {
			settlement.Markdown = ""
			settlement.Err = fmt.Errorf("generation aborted: %v", r)
		}
	}()

	payload, err := submission.BuildGenerate(t.sub)
	if err != nil {
		settlement.Err = err
		return settlement
	}
	var result docsapi.Result
	switch t.mode {
	case submission.ModeCodeText:
		result, err = t.client.GenerateFromText(ctx, payload)
	case submission.ModeFileUpload:
		result, err = t.client.GenerateFromFile(ctx, payload)
	case submission.ModeGithubURL:
		result, err = t.client.GenerateFromRepository(ctx, payload)
	default:
		err = fmt.Errorf("unknown mode %v", t.mode)
	}
	settlement.Markdown = result.Markdown
	settlement.Err = err
	return settlement
}

// Settle releases the ticket's pending flag exactly once and stores the
// result or error, unless the mode changed since Begin.
func (o *Orchestrator) Settle(s Settlement) Outcome {
	t := s.ticket
	if t == nil || !t.settled.CompareAndSwap(false, true) {
		return OutcomeDiscarded
	}
	outcome := OutcomeSucceeded
	if s.Err != nil {
		outcome = OutcomeFailed
	}
	applied := o.state.finish(t.mode, t.epoch, func(sl *slot, c *Controller) {
		if s.Err != nil {
			sl.errMsg = FailureMessage(t.mode, s.Err)
			sl.markdown = ""
			sl.hasResult = false
			return
		}
		sl.markdown = s.Markdown
		sl.hasResult = true
		sl.errMsg = ""
		if t.sub.Retainable() {
			src := t.sub
			c.source = &src
		}
	})
	if !applied {
		outcome = OutcomeDiscarded
	}
	log.Printf("[session] %s submission %s (duration=%s, err=%v)", t.mode, outcome, time.Since(t.started), s.Err)
	return outcome
}

// Generate runs Begin, Run and Settle in sequence.
func (o *Orchestrator) Generate(ctx context.Context, sub submission.Submission) (Settlement, Outcome) {
	ticket, outcome := o.Begin(sub)
	if ticket == nil {
		return Settlement{}, outcome
	}
	settlement := ticket.Run(ctx)
	return settlement, o.Settle(settlement)
}

// GenerateText is Generate for pasted code.
func (o *Orchestrator) GenerateText(ctx context.Context, code string) (Settlement, Outcome) {
	return o.Generate(ctx, submission.Text(code))
}

// GenerateFile is Generate for an uploaded file.
func (o *Orchestrator) GenerateFile(ctx context.Context, file *submission.File) (Settlement, Outcome) {
	return o.Generate(ctx, submission.Upload(file))
}

// GenerateRepository is Generate for a repository URL.
func (o *Orchestrator) GenerateRepository(ctx context.Context, url string) (Settlement, Outcome) {
	return o.Generate(ctx, submission.Repository(url))
}

// FailureMessage is the user-facing text for a failed generation in mode.
func FailureMessage(mode submission.Mode, err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "Generation canceled."
	}
	return docsapi.Message(err, fallbackMessage(mode))
}

func fallbackMessage(mode submission.Mode) string {
	switch mode {
	case submission.ModeFileUpload:
		return "Failed to process file."
	case submission.ModeGithubURL:
		return "Failed to process GitHub URL."
	default:
		return "Failed to generate documentation."
	}
}
