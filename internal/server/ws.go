package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// handleWS answers one JSON Response per JSON Request text frame, in order.
// The connection stays open until the client closes it.
func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, http.Header{RequestIDHeader: {requestID(r.Context())}})
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger(r.Context()).WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(h.opts.maxBodyBytes)

	log := h.logger(r.Context())
	log.DebugContext(r.Context(), "websocket connected", slog.String("remote", r.RemoteAddr))

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.DebugContext(r.Context(), "websocket closed", slog.String("error", err.Error()))
			}

			return
		}

		resp := h.wsMessage(r.Context(), msgType, msg, log)

		data, err := sonic.Marshal(resp)
		if err != nil {
			log.ErrorContext(r.Context(), "encode websocket response", slog.String("error", err.Error()))
			return
		}

		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.DebugContext(r.Context(), "websocket write failed", slog.String("error", err.Error()))
			return
		}
	}
}

func (h *handler) wsMessage(ctx context.Context, msgType int, msg []byte, log *slog.Logger) Response {
	if msgType != websocket.TextMessage {
		return Response{Status: http.StatusBadRequest, Error: "expected a JSON text frame"}
	}

	var req Request
	if err := sonic.Unmarshal(msg, &req); err != nil {
		return Response{Status: http.StatusBadRequest, Error: "invalid JSON: " + err.Error()}
	}

	if h.limiter != nil && !h.limiter.Allow() {
		return Response{ID: req.ID, Status: http.StatusTooManyRequests, Error: "rate limit exceeded"}
	}

	release, err := h.acquire(ctx)
	if err != nil {
		return Response{ID: req.ID, Status: http.StatusServiceUnavailable, Error: "cancelled while waiting for worker"}
	}
	defer release()

	runCtx, cancel := context.WithTimeout(ctx, h.opts.requestTimeout)
	defer cancel()

	return Process(runCtx, h.svc, req, h.defaults(), log)
}
