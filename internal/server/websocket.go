package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/router"
)

// serveWebSocket completes the upgrade handshake and runs the message
// loop: every inbound frame dispatches a fresh pipeline run with method
// "WEBSOCKET" over the upgraded route. A run that does not end in a 200
// closes the connection.
func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request, d *router.Dispatch) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		h.logger.Warn("websocket upgrade failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	h.logger.Info("websocket session started",
		slog.String("request_id", GetRequestID(r.Context())),
		slog.String("route", d.Route.Metadata.Name),
		slog.String("path", r.URL.Path))

	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		req := domain.NewRequestData("WEBSOCKET", r.URL.Path)
		req.Query = r.URL.RawQuery
		req.Protocol = "websocket"
		req.SourceAddr = r.RemoteAddr
		req.Body = frame
		for name, values := range r.Header {
			for _, v := range values {
				req.Headers.Add(name, v)
			}
		}

		fd, err := h.router.Dispatch(r.Context(), req)
		if err != nil {
			h.logger.Warn("websocket frame dispatch failed", slog.String("error", err.Error()))
			return
		}

		resp := fd.Result.Response
		if resp == nil || resp.Status() != http.StatusOK {
			status := 0
			if resp != nil {
				status = resp.Status()
			}
			h.logger.Info("closing websocket after non-200 pipeline result",
				slog.Int("status", status))
			fd.State.Release()
			return
		}

		writeErr := conn.WriteMessage(msgType, resp.Body())
		fd.State.Release()
		if writeErr != nil {
			h.logger.Warn("websocket write failed", slog.String("error", writeErr.Error()))
			return
		}
	}
}
