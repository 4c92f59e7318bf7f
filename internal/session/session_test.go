package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/csheth/docscribe/internal/docsapi"
	"github.com/csheth/docscribe/internal/submission"
)

type fakeClient struct {
	calls    atomic.Int32
	markdown string
	err      error
	panicked bool
	gate     chan struct{}
	entered  chan struct{}
}

func (f *fakeClient) respond(ctx context.Context) (docsapi.Result, error) {
	f.calls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.panicked {
		panic("connection torn down")
	}
	if f.err != nil {
		return docsapi.Result{}, f.err
	}
	return docsapi.Result{Markdown: f.markdown}, nil
}

func (f *fakeClient) GenerateFromText(ctx context.Context, _ submission.Payload) (docsapi.Result, error) {
	return f.respond(ctx)
}

func (f *fakeClient) GenerateFromFile(ctx context.Context, _ submission.Payload) (docsapi.Result, error) {
	return f.respond(ctx)
}

func (f *fakeClient) GenerateFromRepository(ctx context.Context, _ submission.Payload) (docsapi.Result, error) {
	return f.respond(ctx)
}

func (f *fakeClient) RetrieveArtifact(context.Context, submission.Payload) (docsapi.Artifact, error) {
	return docsapi.Artifact{}, errors.New("not used")
}

func (f *fakeClient) BaseURL() string { return "http://fake" }

func newOrchestrator(mode submission.Mode, client docsapi.Client) *Orchestrator {
	return New(NewController(mode), client)
}

func TestEmptyInputIsSkipped(t *testing.T) {
	for _, sub := range []submission.Submission{
		submission.Text("   \n"),
		submission.Upload(nil),
		submission.Repository("\t"),
	} {
		client := &fakeClient{markdown: "unused"}
		o := newOrchestrator(sub.Mode, client)
		before := o.State().Snapshot()

		_, outcome := o.Generate(context.Background(), sub)
		if outcome != OutcomeSkipped {
			t.Fatalf("%s: expected skipped, got %s", sub.Mode, outcome)
		}
		if client.calls.Load() != 0 {
			t.Fatalf("%s: expected no transport calls, got %d", sub.Mode, client.calls.Load())
		}
		if after := o.State().Snapshot(); after != before {
			t.Fatalf("%s: state changed: %+v -> %+v", sub.Mode, before, after)
		}
	}
}

func TestSecondSubmissionWhilePendingIsRejected(t *testing.T) {
	for _, mode := range submission.Modes {
		client := &fakeClient{markdown: "# ok"}
		o := newOrchestrator(mode, client)
		sub := validSubmission(mode)

		ticket, outcome := o.Begin(sub)
		if outcome != OutcomeStarted || ticket == nil {
			t.Fatalf("%s: expected started, got %s", mode, outcome)
		}
		if !o.State().Snapshot().Pending {
			t.Fatalf("%s: pending flag not set", mode)
		}
		if _, again := o.Begin(sub); again != OutcomeBusy {
			t.Fatalf("%s: expected busy, got %s", mode, again)
		}
		if _, again := o.Generate(context.Background(), sub); again != OutcomeBusy {
			t.Fatalf("%s: expected busy from Generate, got %s", mode, again)
		}
		if client.calls.Load() != 0 {
			t.Fatalf("%s: rejected submissions must not reach the transport", mode)
		}

		if got := o.Settle(ticket.Run(context.Background())); got != OutcomeSucceeded {
			t.Fatalf("%s: expected success, got %s", mode, got)
		}
		if client.calls.Load() != 1 {
			t.Fatalf("%s: expected exactly one call, got %d", mode, client.calls.Load())
		}
		if o.State().Snapshot().Pending {
			t.Fatalf("%s: pending flag not cleared", mode)
		}
	}
}

func TestConcurrentTriggersAreSingleFlight(t *testing.T) {
	client := &fakeClient{markdown: "# ok", gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	o := newOrchestrator(submission.ModeCodeText, client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.GenerateText(context.Background(), "print(1)")
	}()
	<-client.entered

	var busy atomic.Int32
	var inner sync.WaitGroup
	for i := 0; i < 8; i++ {
		inner.Add(1)
		go func() {
			defer inner.Done()
			if _, outcome := o.GenerateText(context.Background(), "print(2)"); outcome == OutcomeBusy {
				busy.Add(1)
			}
		}()
	}
	inner.Wait()
	close(client.gate)
	wg.Wait()

	if busy.Load() != 8 {
		t.Fatalf("expected all concurrent triggers to be rejected, got %d", busy.Load())
	}
	if client.calls.Load() != 1 {
		t.Fatalf("expected a single transport call, got %d", client.calls.Load())
	}
}

func TestSetModeClearsDerivedState(t *testing.T) {
	client := &fakeClient{markdown: "# docs"}
	o := newOrchestrator(submission.ModeCodeText, client)
	o.GenerateText(context.Background(), "print(1)")

	view := o.State().Snapshot()
	if !view.HasResult || !view.HasSource {
		t.Fatalf("expected populated state before switch: %+v", view)
	}

	o.State().SetMode(submission.ModeGithubURL)
	view = o.State().Snapshot()
	if view.Mode != submission.ModeGithubURL {
		t.Fatalf("mode not switched: %v", view.Mode)
	}
	if view.HasResult || view.Markdown != "" || view.Error != "" || view.HasSource {
		t.Fatalf("state not cleared after switch: %+v", view)
	}
	if o.State().Source() != nil {
		t.Fatal("source reference should be cleared")
	}

	client.err = &docsapi.RequestError{StatusCode: 400, Message: "invalid url"}
	o.GenerateRepository(context.Background(), "https://github.com/a/b")
	o.State().SetMode(submission.ModeCodeText)
	if view := o.State().Snapshot(); view.Error != "" {
		t.Fatalf("error should be cleared after switch, got %q", view.Error)
	}
}

func TestSuccessfulTextSubmission(t *testing.T) {
	client := &fakeClient{markdown: "## print\nPrints one."}
	o := newOrchestrator(submission.ModeCodeText, client)

	settlement, outcome := o.GenerateText(context.Background(), "print(1)")
	if outcome != OutcomeSucceeded || settlement.Err != nil {
		t.Fatalf("expected success, got %s (%v)", outcome, settlement.Err)
	}
	view := o.State().Snapshot()
	if view.Markdown != "## print\nPrints one." {
		t.Fatalf("unexpected markdown: %q", view.Markdown)
	}
	if view.Error != "" {
		t.Fatalf("unexpected error: %q", view.Error)
	}
	source := o.State().Source()
	if source == nil || source.Mode != submission.ModeCodeText || source.Text != "print(1)" {
		t.Fatalf("unexpected source reference: %+v", source)
	}
}

func TestRepositoryFailureAgainstService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"invalid url"}`))
	}))
	defer server.Close()

	client, err := docsapi.NewFromEnv(docsapi.Config{BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	o := newOrchestrator(submission.ModeGithubURL, client)

	_, outcome := o.GenerateRepository(context.Background(), "https://gitlab.com/a/b")
	if outcome != OutcomeFailed {
		t.Fatalf("expected failure, got %s", outcome)
	}
	view := o.State().Snapshot()
	if view.Error != "invalid url" {
		t.Fatalf("unexpected error message %q", view.Error)
	}
	if view.HasResult || view.Pending {
		t.Fatalf("unexpected state: %+v", view)
	}
}

func TestRepositorySuccessDoesNotRetainSource(t *testing.T) {
	o := newOrchestrator(submission.ModeGithubURL, &fakeClient{markdown: "# repo"})
	o.GenerateRepository(context.Background(), "https://github.com/a/b")
	if o.State().Source() != nil {
		t.Fatal("repository submissions must not become a source reference")
	}
	if o.State().Snapshot().Markdown != "# repo" {
		t.Fatal("repository markdown not stored")
	}
}

func TestFailureKeepsPreviousSourceAndClearsResult(t *testing.T) {
	client := &fakeClient{markdown: "# first"}
	o := newOrchestrator(submission.ModeCodeText, client)
	o.GenerateText(context.Background(), "first()")

	client.err = &docsapi.RequestError{StatusCode: 500, Message: "engine down"}
	o.GenerateText(context.Background(), "second()")

	view := o.State().Snapshot()
	if view.HasResult || view.Markdown != "" {
		t.Fatalf("result should be cleared on failure: %+v", view)
	}
	if view.Error != "engine down" {
		t.Fatalf("unexpected error %q", view.Error)
	}
	source := o.State().Source()
	if source == nil || source.Text != "first()" {
		t.Fatalf("last successful source should be kept, got %+v", source)
	}
}

func TestNetworkAndGenericFailureMessages(t *testing.T) {
	client := &fakeClient{err: &docsapi.RequestError{Message: "Network error", Network: true}}
	o := newOrchestrator(submission.ModeFileUpload, client)
	o.GenerateFile(context.Background(), &submission.File{Name: "a.py", Data: []byte("x")})
	if got := o.State().Snapshot().Error; got != "Network error" {
		t.Fatalf("unexpected network message %q", got)
	}

	client.err = errors.New("opaque")
	o.GenerateFile(context.Background(), &submission.File{Name: "a.py", Data: []byte("x")})
	if got := o.State().Snapshot().Error; got != "Failed to process file." {
		t.Fatalf("unexpected fallback message %q", got)
	}
}

func TestNewSubmissionClearsErrorWhilePending(t *testing.T) {
	client := &fakeClient{err: &docsapi.RequestError{Message: "bad"}}
	o := newOrchestrator(submission.ModeCodeText, client)
	o.GenerateText(context.Background(), "x")
	if o.State().Snapshot().Error == "" {
		t.Fatal("expected error before resubmission")
	}

	ticket, _ := o.BeginText("y")
	if got := o.State().Snapshot().Error; got != "" {
		t.Fatalf("error should clear when a new submission starts, got %q", got)
	}
	client.err = nil
	o.Settle(ticket.Run(context.Background()))
}

func TestLateSettlementAfterModeSwitchIsDiscarded(t *testing.T) {
	client := &fakeClient{markdown: "# stale"}
	o := newOrchestrator(submission.ModeCodeText, client)

	ticket, _ := o.BeginText("print(1)")
	o.State().SetMode(submission.ModeGithubURL)
	settlement := ticket.Run(context.Background())

	if got := o.Settle(settlement); got != OutcomeDiscarded {
		t.Fatalf("expected discarded, got %s", got)
	}
	if o.State().Pending(submission.ModeCodeText) {
		t.Fatal("pending flag must be released even when the result is discarded")
	}
	if o.State().Source() != nil {
		t.Fatal("stale settlement must not set the source reference")
	}

	o.State().SetMode(submission.ModeCodeText)
	if view := o.State().Snapshot(); view.HasResult || view.Markdown != "" {
		t.Fatalf("stale markdown leaked into state: %+v", view)
	}
}

func TestSwitchAwayAndBackStillDiscards(t *testing.T) {
	o := newOrchestrator(submission.ModeCodeText, &fakeClient{markdown: "# stale"})
	ticket, _ := o.BeginText("print(1)")
	o.State().SetMode(submission.ModeFileUpload)
	o.State().SetMode(submission.ModeCodeText)

	if got := o.Settle(ticket.Run(context.Background())); got != OutcomeDiscarded {
		t.Fatalf("expected discarded after epoch change, got %s", got)
	}
}

func TestSettleTwiceIsNoop(t *testing.T) {
	o := newOrchestrator(submission.ModeCodeText, &fakeClient{markdown: "# ok"})
	first, _ := o.BeginText("a")
	settlement := first.Run(context.Background())
	if got := o.Settle(settlement); got != OutcomeSucceeded {
		t.Fatalf("expected success, got %s", got)
	}

	second, _ := o.BeginText("b")
	if got := o.Settle(settlement); got != OutcomeDiscarded {
		t.Fatalf("second settle should be a no-op, got %s", got)
	}
	if !o.State().Snapshot().Pending {
		t.Fatal("replayed settlement must not release a newer ticket")
	}
	o.Settle(second.Run(context.Background()))
}

func TestPanicInTransportReleasesPending(t *testing.T) {
	o := newOrchestrator(submission.ModeCodeText, &fakeClient{panicked: true})
	settlement, outcome := o.GenerateText(context.Background(), "boom()")
	if outcome != OutcomeFailed || settlement.Err == nil {
		t.Fatalf("expected failure, got %s (%v)", outcome, settlement.Err)
	}
	view := o.State().Snapshot()
	if view.Pending {
		t.Fatal("pending flag stuck after panic")
	}
	if view.Error != "Failed to generate documentation." {
		t.Fatalf("unexpected error %q", view.Error)
	}
}

func TestCanceledGeneration(t *testing.T) {
	client := &fakeClient{err: context.Canceled}
	o := newOrchestrator(submission.ModeCodeText, client)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	o.GenerateText(ctx, "x")
	if got := o.State().Snapshot().Error; got != "Generation canceled." {
		t.Fatalf("unexpected message %q", got)
	}
}

func validSubmission(mode submission.Mode) submission.Submission {
	switch mode {
	case submission.ModeFileUpload:
		return submission.Upload(&submission.File{Name: "a.py", Data: []byte("print(1)")})
	case submission.ModeGithubURL:
		return submission.Repository("https://github.com/user/repo")
	default:
		return submission.Text("print(1)")
	}
}
