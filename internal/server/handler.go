package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/router"
)

// maxBodyBytes caps in-memory request bodies.
const maxBodyBytes = 10 << 20

// Handler is the transport adapter: it maps each HTTP request onto a
// request record, dispatches it through the router, and flushes the
// terminal response back onto the wire. Pipeline state is released only
// after the flush completes.
type Handler struct {
	router   *router.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates the transport adapter over a router.
func NewHandler(rt *router.Router, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		router: rt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := h.mapRequest(r)
	if err != nil {
		h.logger.Warn("rejecting unreadable request",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()))
		writeJSONError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	d, err := h.router.Dispatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrNoRouteMatched) {
			writeJSONError(w, http.StatusNotFound, "no route matched")
			return
		}
		AddError(r.Context(), err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer d.State.Release()

	resp := d.Result.Response
	if resp == nil {
		// Cancellation: the transport went away, nothing to flush.
		AddError(r.Context(), d.Result.Err)
		return
	}

	if d.Route.Metadata.Upgrade && resp.Upgraded {
		h.serveWebSocket(w, r, d)
		return
	}

	h.flush(w, resp)
}

// mapRequest copies the wire request into a request record. The body is
// read fully here; the pipeline state copies it into its arena.
func (h *Handler) mapRequest(r *http.Request) (*domain.RequestData, error) {
	req := domain.NewRequestData(r.Method, r.URL.Path)
	req.Query = r.URL.RawQuery
	req.Protocol = r.Proto
	req.SourceAddr = r.RemoteAddr

	if websocket.IsWebSocketUpgrade(r) {
		req.Upgrade = true
		req.Protocol = "websocket"
	}

	for name, values := range r.Header {
		for _, v := range values {
			req.Headers.Add(name, v)
		}
	}

	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		req.Body = body
	}
	return req, nil
}

// flush writes the terminal response to the wire: headers first in
// record order, then status, then the body or stream.
func (h *Handler) flush(w http.ResponseWriter, resp *domain.ResponseData) {
	for _, hdr := range resp.Headers().All() {
		w.Header().Add(hdr.Name, hdr.Value)
	}
	w.WriteHeader(resp.Status())

	if stream := resp.Stream(); stream != nil {
		defer stream.Close()
		if _, err := io.Copy(w, stream); err != nil {
			h.logger.Warn("response stream interrupted", slog.String("error", err.Error()))
		}
		return
	}
	if body := resp.Body(); len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			h.logger.Warn("response write failed", slog.String("error", err.Error()))
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
