package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/go-piper-phonemize/internal/diacritize"
	"github.com/example/go-piper-phonemize/internal/encode"
	"github.com/example/go-piper-phonemize/internal/inventory"
	"github.com/example/go-piper-phonemize/internal/phonemize"
	"github.com/example/go-piper-phonemize/internal/pipeline"
	"github.com/example/go-piper-phonemize/internal/voice"
)

// Service is the pipeline surface the transports need.
type Service interface {
	Run(ctx context.Context, text, voiceID string, diacritize bool) (pipeline.Result, error)
	RunBatch(ctx context.Context, items []pipeline.Item) pipeline.BatchResult
	Voices() []voice.Voice
}

var _ Service = (*pipeline.Pipeline)(nil)

// Request is the payload of POST /phonemize, one WebSocket text frame, or
// one NATS request.
type Request struct {
	// ID is echoed back in the response; optional.
	ID string `json:"id,omitempty"`
	// Text is required; an empty string is valid and encodes to [BOS, EOS].
	Text       *string `json:"text"`
	Voice      string  `json:"voice,omitempty"`
	Diacritize *bool   `json:"diacritize,omitempty"`
}

// Response carries either a result or an error. Status uses HTTP codes on
// every transport.
type Response struct {
	ID     string           `json:"id,omitempty"`
	Status int              `json:"status"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type batchRequest struct {
	Items []Request `json:"items"`
}

type batchResponse struct {
	Items  []Response `json:"items"`
	Failed int        `json:"failed"`
}

// Defaults fill in request fields the caller left out and bound the input.
type Defaults struct {
	Voice        string
	Diacritize   bool
	MaxTextBytes int
}

func (d Defaults) apply(req Request) (pipeline.Item, *Response) {
	if req.Text == nil {
		return pipeline.Item{}, &Response{ID: req.ID, Status: http.StatusBadRequest, Error: "text field is required"}
	}

	if d.MaxTextBytes > 0 && len(*req.Text) > d.MaxTextBytes {
		return pipeline.Item{}, &Response{
			ID:     req.ID,
			Status: http.StatusRequestEntityTooLarge,
			Error:  fmt.Sprintf("text exceeds maximum size of %d bytes", d.MaxTextBytes),
		}
	}

	item := pipeline.Item{Text: *req.Text, Voice: req.Voice, Diacritize: d.Diacritize}
	if item.Voice == "" {
		item.Voice = d.Voice
	}

	if req.Diacritize != nil {
		item.Diacritize = *req.Diacritize
	}

	return item, nil
}

// Process validates one request, runs it and logs the outcome. It never
// returns a nil response.
func Process(ctx context.Context, svc Service, req Request, d Defaults, log *slog.Logger) Response {
	item, bad := d.apply(req)
	if bad != nil {
		return *bad
	}

	start := time.Now()
	res, err := svc.Run(ctx, item.Text, item.Voice, item.Diacritize)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		status := StatusFor(err)
		logFailure(ctx, log, status, "phonemize failed",
			slog.String("voice", item.Voice),
			slog.Int("text_len", len(item.Text)),
			slog.Int64("duration_ms", durationMS),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)

		return Response{ID: req.ID, Status: status, Error: err.Error()}
	}

	log.InfoContext(ctx, "phonemize complete",
		slog.String("voice", res.Voice),
		slog.Int("text_len", len(item.Text)),
		slog.Int64("duration_ms", durationMS),
		slog.Int("clauses", len(res.Clauses)),
		slog.Int("ids", len(res.IDs)),
	)

	return Response{ID: req.ID, Status: http.StatusOK, Result: &res}
}

func logFailure(ctx context.Context, log *slog.Logger, status int, msg string, attrs ...slog.Attr) {
	level := slog.LevelError
	if status < http.StatusInternalServerError || status == http.StatusGatewayTimeout {
		level = slog.LevelWarn
	}

	log.LogAttrs(ctx, level, msg, attrs...)
}

// StatusFor maps a pipeline error to an HTTP status code.
func StatusFor(err error) int {
	var (
		unsupported *voice.UnsupportedVoiceError
		modelErr    *diacritize.ModelLoadError
		phonErr     *phonemize.PhonemizationError
		invErr      *inventory.InventoryFormatError
		unknownErr  *encode.UnknownPhonemeError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	case errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.As(err, &modelErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &phonErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invErr), errors.As(err, &unknownErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
