package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/example/go-piper-phonemize/internal/config"
	"github.com/example/go-piper-phonemize/internal/pipeline"
	"github.com/example/go-piper-phonemize/internal/voice"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	maxBodyBytes   int64
	maxBatchItems  int
	workers        int
	requestTimeout time.Duration
	rateLimit      float64
	rateBurst      int
	defaultVoice   string
	diacritize     bool
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:   16384,
		maxBodyBytes:   1 << 20,
		maxBatchItems:  64,
		workers:        4,
		requestTimeout: 30 * time.Second,
		rateBurst:      10,
		defaultVoice:   "en-us",
		diacritize:     true,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum text length in bytes per request item.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithMaxBatchItems caps the number of items in POST /phonemize/batch.
func WithMaxBatchItems(n int) Option {
	return func(o *options) { o.maxBatchItems = n }
}

// WithWorkers sets the maximum number of concurrent pipeline calls.
// Zero disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithRateLimit enables a token bucket of perSecond requests with the given
// burst. perSecond <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = perSecond
		o.rateBurst = burst
	}
}

// WithDefaults sets the voice and diacritize flag used when a request omits them.
func WithDefaults(voiceID string, diacritize bool) Option {
	return func(o *options) {
		o.defaultVoice = voiceID
		o.diacritize = diacritize
	}
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	svc     Service
	opts    options
	sem     chan struct{} // worker slots
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewHandler returns an http.Handler serving /health, /voices,
// POST /phonemize, POST /phonemize/batch and the /ws WebSocket endpoint.
func NewHandler(svc Service, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		svc:  svc,
		opts: opts,
		log:  opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	if opts.rateLimit > 0 {
		burst := max(opts.rateBurst, 1)
		h.limiter = rate.NewLimiter(rate.Limit(opts.rateLimit), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/voices", h.handleVoices)
	mux.HandleFunc("/phonemize", h.limited(h.handlePhonemize))
	mux.HandleFunc("/phonemize/batch", h.limited(h.handleBatch))
	mux.HandleFunc("/ws", h.limited(h.handleWS))

	return h.withRequestID(mux)
}

func (h *handler) defaults() Defaults {
	return Defaults{
		Voice:        h.opts.defaultVoice,
		Diacritize:   h.opts.diacritize,
		MaxTextBytes: h.opts.maxTextBytes,
	}
}

func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

func (h *handler) limited(next http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			h.logger(r.Context()).WarnContext(r.Context(), "rate limit exceeded", slog.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next(w, r)
	}
}

// acquire takes a worker slot, honouring ctx while waiting.
func (h *handler) acquire(ctx context.Context) (release func(), err error) {
	if h.sem == nil {
		return func() {}, nil
	}

	select {
	case h.sem <- struct{}{}:
		return func() { <-h.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *handler) logger(ctx context.Context) *slog.Logger {
	if id := requestID(ctx); id != "" {
		return h.log.With(slog.String("request_id", id))
	}

	return h.log
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleVoices(w http.ResponseWriter, _ *http.Request) {
	voices := h.svc.Voices()
	if voices == nil {
		voices = []voice.Voice{}
	}

	writeJSON(w, http.StatusOK, voices)
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}

	if r.Body == nil || r.Body == http.NoBody {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}

		writeError(w, http.StatusBadRequest, "read body: "+err.Error())

		return false
	}

	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}

	if err := sonic.Unmarshal(data, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}

	return true
}

func (h *handler) handlePhonemize(w http.ResponseWriter, r *http.Request) {
	var req Request
	if !h.readBody(w, r, &req) {
		return
	}

	release, err := h.acquire(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	resp := Process(ctx, h.svc, req, h.defaults(), h.logger(r.Context()))
	if resp.Status != http.StatusOK {
		writeError(w, resp.Status, resp.Error)
		return
	}

	writeJSON(w, http.StatusOK, resp.Result)
}

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.readBody(w, r, &req) {
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items field is required")
		return
	}

	if h.opts.maxBatchItems > 0 && len(req.Items) > h.opts.maxBatchItems {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch exceeds maximum of %d items", h.opts.maxBatchItems))
		return
	}

	out := batchResponse{Items: make([]Response, len(req.Items))}
	d := h.defaults()

	// Items failing validation are answered directly; the rest share one run.
	var (
		items []pipeline.Item
		index []int
	)

	for i, it := range req.Items {
		item, bad := d.apply(it)
		if bad != nil {
			out.Items[i] = *bad
			continue
		}

		items = append(items, item)
		index = append(index, i)
	}

	release, err := h.acquire(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	res := h.svc.RunBatch(ctx, items)

	for j, ir := range res.Items {
		i := index[j]
		if ir.Err != nil {
			out.Items[i] = Response{ID: req.Items[i].ID, Status: StatusFor(ir.Err), Error: ir.Err.Error()}
			continue
		}

		out.Items[i] = Response{ID: req.Items[i].ID, Status: http.StatusOK, Result: ir.Result}
	}

	for _, it := range out.Items {
		if it.Status != http.StatusOK {
			out.Failed++
		}
	}

	h.logger(r.Context()).InfoContext(r.Context(), "batch complete",
		slog.Int("items", len(out.Items)),
		slog.Int("failed", out.Failed),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type ctxKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ---------------------------------------------------------------------------
// Server wires the handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

type Server struct {
	cfg             config.Config
	svc             Service
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

func New(cfg config.Config, svc Service) *Server {
	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Server{
		cfg:             cfg,
		svc:             svc,
		logger:          slog.Default(),
		shutdownTimeout: timeout,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger overrides the request logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

// HandlerOptions derives handler options from the configuration.
func HandlerOptions(cfg config.Config) []Option {
	opts := []Option{
		WithWorkers(cfg.Server.Workers),
		WithMaxTextBytes(cfg.Server.MaxTextBytes),
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		WithDefaults(cfg.Phonemizer.Voice, cfg.Phonemizer.Diacritize),
	}

	if cfg.Server.RequestTimeout > 0 {
		opts = append(opts, WithRequestTimeout(time.Duration(cfg.Server.RequestTimeout)*time.Second))
	}

	return opts
}

func (s *Server) Start(ctx context.Context) error {
	if s.svc == nil {
		return errors.New("server: no pipeline configured")
	}

	h := NewHandler(s.svc, append(HandlerOptions(s.cfg), WithLogger(s.logger))...)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("http server listening", slog.String("addr", s.cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP checks GET /health on addr.
func ProbeHTTP(ctx context.Context, addr string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}

	return nil
}
