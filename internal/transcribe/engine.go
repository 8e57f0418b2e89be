package transcribe

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-ytclips/internal/apierr"
	"github.com/alnah/go-ytclips/internal/lang"
)

// EngineSegment is one timed row as reported by the engine. Times are
// seconds relative to the start of the submitted audio.
type EngineSegment struct {
	Start float64
	End   float64
	Text  string
}

// EngineResult is the engine's answer for one payload.
type EngineResult struct {
	Segments []EngineSegment
	Text     string
}

// Engine converts one audio file into timed segments.
type Engine interface {
	Transcribe(ctx context.Context, audioPath, language string) (EngineResult, error)
}

// audioTranscriber is the subset of *openai.Client used by WhisperEngine.
// It allows injecting mocks in tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Engine           = (*WhisperEngine)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// WhisperEngine calls OpenAI's whisper-1 model with the verbose_json format,
// the only response format that carries per-segment timestamps.
//
// It performs a single attempt unless a retry policy is configured.
type WhisperEngine struct {
	client audioTranscriber
	model  string
	retry  *apierr.RetryConfig
}

// EngineOption configures a WhisperEngine.
type EngineOption func(*WhisperEngine)

// WithRetry enables exponential backoff on rate limits and timeouts.
func WithRetry(cfg apierr.RetryConfig) EngineOption {
	return func(e *WhisperEngine) { e.retry = &cfg }
}

// WithModel overrides the model name ("whisper-1" by default).
func WithModel(model string) EngineOption {
	return func(e *WhisperEngine) {
		if model != "" {
			e.model = model
		}
	}
}

// WithClient sets the transcription client (for testing).
func WithClient(c audioTranscriber) EngineOption {
	return func(e *WhisperEngine) { e.client = c }
}

// NewWhisperEngine creates a WhisperEngine authenticated with apiKey.
func NewWhisperEngine(apiKey string, opts ...EngineOption) (*WhisperEngine, error) {
	e := &WhisperEngine{model: openai.Whisper1}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		if apiKey == "" {
			return nil, ErrAPIKeyMissing
		}
		e.client = openai.NewClient(apiKey)
	}
	return e, nil
}

// Transcribe uploads audioPath and returns its timed segments.
// language is an ISO 639-1 code; locales are reduced to their base code.
func (e *WhisperEngine) Transcribe(ctx context.Context, audioPath, language string) (EngineResult, error) {
	req := openai.AudioRequest{
		Model:    e.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: lang.BaseCode(language),
	}

	call := func() (EngineResult, error) {
		resp, err := e.client.CreateTranscription(ctx, req)
		if err != nil {
			return EngineResult{}, classifyError(err)
		}
		return toResult(resp), nil
	}

	if e.retry == nil {
		res, err := call()
		if err != nil {
			return EngineResult{}, fmt.Errorf("%w: %w", ErrEngine, err)
		}
		return res, nil
	}

	res, err := apierr.RetryWithBackoff(ctx, *e.retry, call, apierr.IsRetryable)
	if err != nil {
		return EngineResult{}, fmt.Errorf("%w: %w", ErrEngine, err)
	}
	return res, nil
}

func toResult(resp openai.AudioResponse) EngineResult {
	res := EngineResult{Text: resp.Text, Segments: make([]EngineSegment, 0, len(resp.Segments))}
	for _, s := range resp.Segments {
		res.Segments = append(res.Segments, EngineSegment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return res
}

// classifyError maps OpenAI API errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if classified := apierr.FromStatus(apiErr.HTTPStatusCode, apiErr.Message); classified != nil {
			return classified
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if classified := apierr.FromStatus(reqErr.HTTPStatusCode, reqErr.Error()); classified != nil {
			return classified
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
