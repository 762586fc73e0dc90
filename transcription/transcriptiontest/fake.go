// Package transcriptiontest provides scripted transcription backends for tests.
package transcriptiontest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/scribe/transcription"
)

// ErrScripted is returned for locators scripted to fail without a specific error.
var ErrScripted = errors.New("scripted recognition failure")

// Provider answers Recognize from a locator→text script.
type Provider struct {
	mu     sync.Mutex
	texts  map[string]string
	fails  map[string]error
	calls  []string
	Before func(ctx context.Context, req transcription.Request) error
}

// NewProvider creates a provider that returns texts[locator] for each call.
// Unknown locators yield "text of {locator}".
func NewProvider(texts map[string]string) *Provider {
	if texts == nil {
		texts = map[string]string{}
	}
	return &Provider{texts: texts, fails: map[string]error{}}
}

// Fail scripts locator to fail with err (ErrScripted when nil).
func (p *Provider) Fail(locator string, err error) {
	if err == nil {
		err = ErrScripted
	}
	p.mu.Lock()
	p.fails[locator] = err
	p.mu.Unlock()
}

// Calls returns the locators recognized so far, in call order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Provider) Name() string                       { return "scripted" }
func (p *Provider) IsAvailable(_ context.Context) bool { return true }

func (p *Provider) Recognize(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if p.Before != nil {
		if err := p.Before(ctx, req); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req.Locator)
	if err := p.fails[req.Locator]; err != nil {
		return nil, err
	}
	return &transcription.Response{Text: p.text(req.Locator)}, nil
}

func (p *Provider) text(locator string) string {
	if t, ok := p.texts[locator]; ok {
		return t
	}
	return "text of " + locator
}

// LongRunning adds a job API to Provider. Jobs finish after PollsToFinish
// GetOperation calls; with Hang set they never finish. A non-nil PollErr is
// returned by every GetOperation call.
type LongRunning struct {
	*Provider
	PollsToFinish int
	Hang          bool
	PollErr       error

	jmu       sync.Mutex
	seq       int
	jobs      map[string]*job
	cancelled []string
}

type job struct {
	req   transcription.Request
	polls int
	state transcription.OperationState
}

// NewLongRunning wraps NewProvider(texts) with a job API.
func NewLongRunning(texts map[string]string) *LongRunning {
	return &LongRunning{Provider: NewProvider(texts), PollsToFinish: 1, jobs: map[string]*job{}}
}

func (l *LongRunning) StartLongRunning(_ context.Context, req transcription.Request) (*transcription.Operation, error) {
	l.jmu.Lock()
	defer l.jmu.Unlock()
	l.seq++
	id := fmt.Sprintf("op-%d", l.seq)
	l.jobs[id] = &job{req: req, state: transcription.OperationRunning}
	return &transcription.Operation{ID: id, State: transcription.OperationRunning}, nil
}

func (l *LongRunning) GetOperation(ctx context.Context, id string) (*transcription.Operation, error) {
	l.jmu.Lock()
	j, ok := l.jobs[id]
	if !ok {
		l.jmu.Unlock()
		return nil, fmt.Errorf("operation %s not found", id)
	}
	j.polls++
	if l.PollErr != nil {
		l.jmu.Unlock()
		return nil, l.PollErr
	}
	ready := !l.Hang && j.state == transcription.OperationRunning && j.polls >= l.PollsToFinish
	state := j.state
	l.jmu.Unlock()

	if !ready {
		return &transcription.Operation{ID: id, State: state}, nil
	}
	resp, err := l.Recognize(ctx, j.req)

	l.jmu.Lock()
	defer l.jmu.Unlock()
	if err != nil {
		j.state = transcription.OperationFailed
		return &transcription.Operation{ID: id, State: j.state, Error: err.Error()}, nil
	}
	j.state = transcription.OperationSucceeded
	return &transcription.Operation{ID: id, State: j.state, Result: resp}, nil
}

func (l *LongRunning) CancelOperation(_ context.Context, id string) error {
	l.jmu.Lock()
	defer l.jmu.Unlock()
	if j, ok := l.jobs[id]; ok {
		j.state = transcription.OperationCancelled
	}
	l.cancelled = append(l.cancelled, id)
	return nil
}

// Cancelled returns the ids of operations cancelled so far.
func (l *LongRunning) Cancelled() []string {
	l.jmu.Lock()
	defer l.jmu.Unlock()
	return append([]string(nil), l.cancelled...)
}
