package recording

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Reaper periodically completes abandoned sessions.
type Reaper struct {
	svc      *Service
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun time.Time
	lastErr error
}

var (
	_ component.Component   = (*Reaper)(nil)
	_ component.Describable = (*Reaper)(nil)
)

// NewReaper creates a reaper for svc using its ReapInterval.
func NewReaper(svc *Service, log *logger.Logger) *Reaper {
	if log == nil {
		log = logger.Nop()
	}
	return &Reaper{svc: svc, interval: svc.cfg.ReapInterval, log: log.WithComponent("reaper")}
}

func (r *Reaper) Name() string { return "session-reaper" }

// Start launches the loop. It does nothing when reaping is disabled.
func (r *Reaper) Start(_ context.Context) error {
	if r.svc.cfg.AbandonAfter <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.loop(ctx)
	return nil
}

func (r *Reaper) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs one reaping pass.
func (r *Reaper) RunOnce(ctx context.Context) {
	now := r.svc.now()
	n, err := r.svc.ReapAbandoned(ctx, now)

	r.mu.Lock()
	r.lastRun, r.lastErr = now, err
	r.mu.Unlock()

	switch {
	case err != nil && ctx.Err() == nil:
		r.log.Error("reaping failed", logger.Fields(logger.FieldError, err.Error()))
	case n > 0:
		r.log.Info("abandoned sessions completed", logger.Fields("count", n))
	}
}

// Stop ends the loop and waits for an in-flight pass.
func (r *Reaper) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reaper) Health(_ context.Context) component.Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastErr != nil {
		return component.Health{Name: r.Name(), Status: component.StatusDegraded, Message: r.lastErr.Error()}
	}
	return component.Health{Name: r.Name(), Status: component.StatusHealthy}
}

func (r *Reaper) Describe() component.Description {
	if r.svc.cfg.AbandonAfter <= 0 {
		return component.Description{Type: "reaper", Details: "disabled"}
	}
	return component.Description{
		Type:    "reaper",
		Details: fmt.Sprintf("abandon after %s, every %s", r.svc.cfg.AbandonAfter, r.interval),
	}
}
