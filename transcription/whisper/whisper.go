// Package whisper is a transcription backend for a faster-whisper HTTP sidecar.
package whisper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/transcription"
)

// ProviderName is the registered backend name.
const ProviderName = "whisper"

func init() {
	transcription.Register(ProviderName, func(opts transcription.Options) (transcription.Provider, error) {
		var cfg Config
		switch c := opts.Backend.(type) {
		case Config:
			cfg = c
		case *Config:
			if c != nil {
				cfg = *c
			}
		case nil:
		default:
			return nil, fmt.Errorf("whisper: unexpected config type %T", opts.Backend)
		}
		return NewProvider(cfg), nil
	})
}

// Provider implements transcription.LongRunningProvider.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var _ transcription.LongRunningProvider = (*Provider)(nil)

// NewProvider creates a Whisper backend.
func NewProvider(cfg Config) *Provider {
	cfg.ApplyDefaults()
	hc := httpclient.Config{BaseURL: cfg.URL, Timeout: cfg.Timeout}
	if cfg.Attempts > 1 {
		hc.Retry = httpclient.RetryConfig(cfg.Attempts)
	}
	return &Provider{cfg: cfg, client: httpclient.New(hc)}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.StatusCode == http.StatusOK
}

// Recognize transcribes audio synchronously.
func (p *Provider) Recognize(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	var result whisperResponse
	if err := p.call(ctx, http.MethodPost, "/transcribe", p.audioBody(req), &result); err != nil {
		return nil, err
	}
	return result.toResponse(), nil
}

// StartLongRunning submits audio as an asynchronous job.
func (p *Provider) StartLongRunning(ctx context.Context, req transcription.Request) (*transcription.Operation, error) {
	var job jobResponse
	if err := p.call(ctx, http.MethodPost, "/jobs", p.audioBody(req), &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, fmt.Errorf("whisper: job response without id")
	}
	return job.toOperation(), nil
}

// GetOperation fetches the state of a job.
func (p *Provider) GetOperation(ctx context.Context, id string) (*transcription.Operation, error) {
	var job jobResponse
	if err := p.call(ctx, http.MethodGet, jobPath(id), nil, &job); err != nil {
		return nil, err
	}
	return job.toOperation(), nil
}

// CancelOperation aborts a job. Cancelling a finished or unknown job is not an error.
func (p *Provider) CancelOperation(ctx context.Context, id string) error {
	_, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: jobPath(id)})
	switch {
	case err == nil, httpclient.IsNotFound(err), httpclient.StatusCode(err) == http.StatusConflict:
		return nil
	}
	return fmt.Errorf("whisper: cancel %s: %w", id, err)
}

func jobPath(id string) string {
	return "/jobs/" + url.PathEscape(id)
}

func (p *Provider) call(ctx context.Context, method, path string, body any, out any) error {
	err := p.client.JSON(ctx, httpclient.Request{Method: method, Path: path, Body: body}, out)
	if err != nil {
		return fmt.Errorf("whisper %s %s: %w", method, path, err)
	}
	return nil
}

func (p *Provider) audioBody(req transcription.Request) *httpclient.MultipartBody {
	body := &httpclient.MultipartBody{
		Fields: make(map[string]string),
		Files: []httpclient.FileField{{
			FieldName: "audio",
			FileName:  audioFilename(req.Locator),
			Data:      req.Audio,
		}},
	}
	fields := map[string]string{
		"model":       p.cfg.Model,
		"language":    language(req.Config.LanguageCode),
		"encoding":    string(req.Config.Encoding),
		"sample_rate": strconv.Itoa(req.Config.SampleRateHertz),
	}
	for k, v := range fields {
		if v != "" && v != "0" {
			body.Fields[k] = v
		}
	}
	return body
}

// language maps a BCP-47 tag to the ISO 639-1 code whisper expects.
func language(code string) string {
	base, _, _ := strings.Cut(code, "-")
	return strings.ToLower(base)
}

func audioFilename(locator string) string {
	if i := strings.LastIndex(locator, "/"); i >= 0 {
		locator = locator[i+1:]
	}
	if locator == "" {
		return "audio.wav"
	}
	return locator
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r *whisperResponse) toResponse() *transcription.Response {
	segments := make([]transcription.Segment, len(r.Segments))
	for i, seg := range r.Segments {
		segments[i] = transcription.Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	var duration float64
	if len(r.Segments) > 0 {
		duration = r.Segments[len(r.Segments)-1].End
	}
	return &transcription.Response{
		Text:     strings.TrimSpace(r.Text),
		Segments: segments,
		Duration: duration,
		Language: r.Language,
	}
}

// jobResponse is the sidecar's job resource.
type jobResponse struct {
	ID     string           `json:"id"`
	Status string           `json:"status"`
	Result *whisperResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (j *jobResponse) toOperation() *transcription.Operation {
	op := &transcription.Operation{ID: j.ID, Error: j.Error}
	switch j.Status {
	case "queued", "pending":
		op.State = transcription.OperationPending
	case "completed", "succeeded", "done":
		op.State = transcription.OperationSucceeded
		if j.Result != nil {
			op.Result = j.Result.toResponse()
		}
	case "failed", "error":
		op.State = transcription.OperationFailed
	case "cancelled", "canceled":
		op.State = transcription.OperationCancelled
	default:
		op.State = transcription.OperationRunning
	}
	return op
}
