// Package bus answers phonemize requests over NATS request/reply.
//
// Payloads match POST /phonemize: a JSON server.Request in, a JSON
// server.Response out.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/example/go-piper-phonemize/internal/config"
	"github.com/example/go-piper-phonemize/internal/server"
)

// Responder subscribes to the request subject in a queue group, so several
// processes can share the load.
type Responder struct {
	cfg      config.NATSConfig
	svc      server.Service
	defaults server.Defaults
	timeout  time.Duration
	logger   *slog.Logger
}

func New(cfg config.Config, svc server.Service) *Responder {
	timeout := time.Duration(cfg.Server.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Responder{
		cfg: cfg.NATS,
		svc: svc,
		defaults: server.Defaults{
			Voice:        cfg.Phonemizer.Voice,
			Diacritize:   cfg.Phonemizer.Diacritize,
			MaxTextBytes: cfg.Server.MaxTextBytes,
		},
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// WithLogger overrides the logger.
func (r *Responder) WithLogger(l *slog.Logger) *Responder {
	r.logger = l
	return r
}

// Handle decodes one request, runs it and encodes the reply.
func (r *Responder) Handle(ctx context.Context, data []byte) []byte {
	var req server.Request

	var resp server.Response

	if err := sonic.Unmarshal(data, &req); err != nil {
		resp = server.Response{Status: http.StatusBadRequest, Error: "invalid JSON: " + err.Error()}
	} else {
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		runCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp = server.Process(runCtx, r.svc, req, r.defaults, r.logger.With(slog.String("request_id", req.ID)))
		cancel()
	}

	out, err := sonic.Marshal(resp)
	if err != nil {
		out, _ = sonic.Marshal(server.Response{ID: resp.ID, Status: http.StatusInternalServerError, Error: "encode response"})
	}

	return out
}

// Start connects, subscribes and serves until ctx is cancelled, then drains
// in-flight requests.
func (r *Responder) Start(ctx context.Context) error {
	if r.svc == nil {
		return errors.New("bus: no pipeline configured")
	}

	closed := make(chan struct{})

	opts := []nats.Option{
		nats.Name("go-piper-phonemize"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				r.logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			r.logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	}

	nc, err := nats.Connect(r.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to nats %s: %w", r.cfg.URL, err)
	}

	// Requests already taken keep running while the connection drains.
	handlerCtx := context.WithoutCancel(ctx)

	_, err = nc.QueueSubscribe(r.cfg.Subject, r.cfg.Queue, func(msg *nats.Msg) {
		if msg.Reply == "" {
			r.logger.Warn("dropping request without reply subject", slog.String("subject", msg.Subject))
			return
		}

		if err := msg.Respond(r.Handle(handlerCtx, msg.Data)); err != nil {
			r.logger.Error("nats respond failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe %s: %w", r.cfg.Subject, err)
	}

	r.logger.Info("nats responder listening",
		slog.String("url", nc.ConnectedUrl()),
		slog.String("subject", r.cfg.Subject),
		slog.String("queue", r.cfg.Queue),
	)

	<-ctx.Done()

	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("drain %s: %w", r.cfg.Subject, err)
	}

	<-closed

	return nil
}
