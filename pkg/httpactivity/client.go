package httpactivity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RetryAttempts and RetryPause bound the HTTP retry budget: an activity gives
// up on a query after this many failed attempts, pausing this long between
// each. Mirrors DEVICE_HTTP_RETRY_ATTEMPTS / DEVICE_HTTP_RETRY_PAUSE from the
// original device management design.
const (
	RetryAttempts = 10
	RetryPause    = 1 * time.Second
)

// Request describes a single HTTP operation to submit.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response carries a completed HTTP query's outcome.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OnComplete is invoked at most once per Submit, either with a Response or a
// non-nil error (cancellation of the caller's context, transport failure, or
// retry budget exhaustion). It is not invoked for a query that Cancel or a
// later Submit has superseded, nor when OnError receives the failure.
type OnComplete func(*Response, error)

// OnError is installed once probing succeeds and is invoked for a transport
// error the activity itself cannot retry past (its retry budget is
// exhausted). It is the activity wrapper's route into
// the device state machine (see pkg/device/job.go's transport error path).
type OnError func(error)

// Activity wraps a single in-flight HTTP request plus one retry/delay timer.
// Exactly one query is ever outstanding; Submit overwrites the previous
// handle, and callers are expected to guarantee (as the job state machine
// does) that no query is live when a new one is submitted.
type Activity struct {
	client *http.Client

	mu         sync.Mutex
	cancel     context.CancelFunc
	timer      *time.Timer
	queryID    string
	onError    OnError
	retryPause time.Duration
	attempt    int
	gen        uint64
	live       bool
}

// NewActivity creates an Activity using the given HTTP client, or
// http.DefaultClient if nil.
func NewActivity(client *http.Client) *Activity {
	if client == nil {
		client = http.DefaultClient
	}
	return &Activity{
		client:     client,
		retryPause: RetryPause,
	}
}

// SetOnError installs the transport-error callback. Per the HTTP activity
// wrapper contract, this is installed only after endpoint probing succeeds.
func (a *Activity) SetOnError(onError OnError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onError = onError
}

// Submit issues req and, on a transport failure, makes up to RetryAttempts
// attempts in all, with RetryPause between them, before giving up and routing the failure to
// onComplete/OnError. It stores the new in-flight handle, replacing any
// previous one.
func (a *Activity) Submit(ctx context.Context, req Request, onComplete OnComplete) {
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancel = cancel
	a.queryID = uuid.New().String()
	a.attempt = 0
	a.gen++
	gen := a.gen
	a.live = true
	a.mu.Unlock()

	go a.attemptOnce(ctx, gen, req, onComplete)
}

// deliver invokes onComplete/onError unless the query identified by gen has
// since been cancelled or superseded by a later Submit, so a cancelled
// query's in-flight result never reaches the caller after the fact — at
// most one outcome is ever delivered per Submit (spec.md invariant 7).
func (a *Activity) deliver(gen uint64, fn func()) {
	a.mu.Lock()
	if gen != a.gen || !a.live {
		a.mu.Unlock()
		return
	}
	a.live = false
	a.mu.Unlock()
	fn()
}

func (a *Activity) attemptOnce(ctx context.Context, gen uint64, req Request, onComplete OnComplete) {
	resp, err := a.do(ctx, req)
	if err == nil {
		a.deliver(gen, func() { onComplete(resp, nil) })
		return
	}

	if ctx.Err() != nil {
		a.deliver(gen, func() { onComplete(nil, ctx.Err()) })
		return
	}

	a.mu.Lock()
	a.attempt++
	attempt := a.attempt
	a.mu.Unlock()

	if attempt >= RetryAttempts {
		finalErr := fmt.Errorf("%s %s: giving up after %d attempts: %w", req.Method, req.URL, attempt, err)
		a.mu.Lock()
		onError := a.onError
		a.mu.Unlock()

		// Per the activity wrapper contract, OnError is installed only
		// after endpoint probing succeeds; transport errors during
		// probing (OnError still nil) fall through to the normal
		// completion callback instead, so the prober's own error
		// handling sees them.
		if onError != nil {
			a.deliver(gen, func() { onError(finalErr) })
			return
		}
		a.deliver(gen, func() { onComplete(nil, finalErr) })
		return
	}

	a.mu.Lock()
	a.timer = time.AfterFunc(a.retryPause, func() {
		a.attemptOnce(ctx, gen, req, onComplete)
	})
	a.mu.Unlock()
}

func (a *Activity) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Cancel cancels any in-flight query and disarms the delay timer, if armed.
// It also marks the current generation dead, so a completion racing in from
// the just-cancelled attempt is dropped rather than delivered to a callback
// that may already have been replaced by a fresh Submit.
func (a *Activity) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.live = false
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// QueryID returns the identifier of the most recently submitted query, for
// correlating log events.
func (a *Activity) QueryID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queryID
}
