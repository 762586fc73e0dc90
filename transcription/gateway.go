package transcription

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// cancelTimeout bounds the detached call that cancels an abandoned remote job.
const cancelTimeout = 10 * time.Second

// SegmentResult is the outcome for one object of a batch.
type SegmentResult struct {
	Locator string
	Text    string
	Err     error
}

// BatchResult is the outcome of a batch transcription.
type BatchResult struct {
	Segments []SegmentResult
	Failed   int
}

// Text joins the segments using the fixed separator policy.
func (b *BatchResult) Text() string {
	if len(b.Segments) == 0 {
		return ""
	}
	parts := make([]string, len(b.Segments))
	for i, s := range b.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, segmentSeparator) + batchTerminator
}

// Gateway transcribes stored audio objects through one backend.
type Gateway struct {
	provider Provider
	audio    AudioSource
	cfg      Config
	breaker  *resilience.CircuitBreaker
	poll     resilience.RetryConfig
	log      *logger.Logger
}

// NewGateway creates a gateway. provider may be nil, in which case every call
// fails with TRANSCRIPTION_FAILED.
func NewGateway(p Provider, audio AudioSource, cfg Config, log *logger.Logger) *Gateway {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("transcription")

	bcfg := resilience.DefaultCircuitBreakerConfig("transcription")
	bcfg.MaxFailures = cfg.BreakerFailures
	bcfg.Timeout = cfg.BreakerCooldown
	bcfg.IsFailure = func(err error) bool {
		return err != nil && !errors.Is(err, context.Canceled)
	}
	bcfg.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("circuit state changed", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
	}

	poll := resilience.DefaultRetryConfig()
	poll.MaxAttempts = 4

	return &Gateway{
		provider: p,
		audio:    audio,
		cfg:      cfg,
		breaker:  resilience.NewCircuitBreaker(bcfg),
		poll:     poll,
		log:      log,
	}
}

// Breaker exposes the circuit breaker guarding backend calls.
func (g *Gateway) Breaker() *resilience.CircuitBreaker { return g.breaker }

func (g *Gateway) providerName() string {
	if g.provider == nil {
		return "none"
	}
	return g.provider.Name()
}

// TranscribeBatch transcribes each object in order and joins the texts.
// Objects that fail contribute FailedSentinel; only a missing backend or a
// done ctx returns an error.
func (g *Gateway) TranscribeBatch(ctx context.Context, locators []string) (string, error) {
	res, err := g.RecognizeBatch(ctx, locators)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

// RecognizeBatch is TranscribeBatch with per-object results.
func (g *Gateway) RecognizeBatch(ctx context.Context, locators []string) (*BatchResult, error) {
	if g.provider == nil {
		return nil, apperrors.TranscriptionFailure("none", errors.New("no transcription backend configured"))
	}
	res := &BatchResult{Segments: make([]SegmentResult, 0, len(locators))}
	for _, loc := range locators {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.TranscriptionFailure(g.providerName(), err)
		}
		text, err := g.recognizeOne(ctx, loc)
		if err != nil {
			g.log.WithContext(ctx).Warn("object transcription failed", logger.Fields(
				logger.FieldLocator, loc,
				logger.FieldProvider, g.providerName(),
				logger.FieldError, err.Error(),
			))
			res.Segments = append(res.Segments, SegmentResult{Locator: loc, Text: FailedSentinel, Err: err})
			res.Failed++
			continue
		}
		res.Segments = append(res.Segments, SegmentResult{Locator: loc, Text: text})
	}
	return res, nil
}

func (g *Gateway) recognizeOne(ctx context.Context, locator string) (string, error) {
	audio, err := g.audio.GetObject(ctx, locator)
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.SyncTimeout)
	defer cancel()

	resp, err := resilience.Call(g.breaker, func() (*Response, error) {
		return g.provider.Recognize(callCtx, g.request(locator, audio))
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// TranscribeLongRunning transcribes one object as a long-running job. If the
// backend has no job API the object is recognized synchronously within
// LongRunningTimeout. Once a job has started, every return that does not see
// it finish cancels it remotely.
func (g *Gateway) TranscribeLongRunning(ctx context.Context, locator string) (string, error) {
	if g.provider == nil {
		return "", apperrors.TranscriptionFailure("none", errors.New("no transcription backend configured"))
	}
	name := g.providerName()
	ctx, cancel := context.WithTimeout(ctx, g.cfg.LongRunningTimeout)
	defer cancel()

	audio, err := g.audio.GetObject(ctx, locator)
	if err != nil {
		return "", apperrors.TranscriptionFailure(name, err)
	}
	req := g.request(locator, audio)

	lr, ok := g.provider.(LongRunningProvider)
	if !ok {
		resp, err := resilience.Call(g.breaker, func() (*Response, error) {
			return g.provider.Recognize(ctx, req)
		})
		if err != nil {
			return "", apperrors.TranscriptionFailure(name, err)
		}
		return resp.Text, nil
	}

	op, err := resilience.Call(g.breaker, func() (*Operation, error) {
		return lr.StartLongRunning(ctx, req)
	})
	if err != nil {
		return "", apperrors.TranscriptionFailure(name, err)
	}
	log := g.log.WithContext(ctx).WithFields(logger.Fields("operation_id", op.ID, logger.FieldLocator, locator))
	log.Info("long-running transcription started")

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()
	for !op.Done() {
		select {
		case <-ctx.Done():
			g.cancelOperation(ctx, lr, op.ID, log)
			return "", apperrors.TranscriptionFailure(name, ctx.Err())
		case <-ticker.C:
		}
		id := op.ID
		next, err := resilience.Retry(ctx, g.poll, func() (*Operation, error) {
			return lr.GetOperation(ctx, id)
		})
		if err != nil {
			g.cancelOperation(ctx, lr, id, log)
			return "", apperrors.TranscriptionFailure(name, err)
		}
		op = next
	}

	switch op.State {
	case OperationSucceeded:
		if op.Result == nil {
			return "", nil
		}
		log.Info("long-running transcription finished")
		return op.Result.Text, nil
	default:
		return "", apperrors.TranscriptionFailure(name, fmt.Errorf("operation %s %s: %s", op.ID, op.State, op.Error))
	}
}

func (g *Gateway) cancelOperation(ctx context.Context, lr LongRunningProvider, id string, log *logger.Logger) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if err := lr.CancelOperation(cctx, id); err != nil {
		log.Warn("failed to cancel remote operation", logger.ErrorFields("cancel", err))
		return
	}
	log.Info("remote operation cancelled")
}

func (g *Gateway) request(locator string, audio []byte) Request {
	return Request{
		Locator:     locator,
		Audio:       audio,
		ContentType: mime.TypeByExtension(path.Ext(locator)),
		Config:      DefaultRecognitionConfig(),
	}
}
