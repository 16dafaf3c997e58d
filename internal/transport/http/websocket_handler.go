package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	apierrors "collisio/internal/errors"
	"collisio/internal/infrastructure"
	"collisio/internal/middleware"
	ws "collisio/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and attaches them to the progress hub
type WebSocketHandler struct {
	hub          *ws.Hub
	upgrader     websocket.Upgrader
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewWebSocketHandler creates the handler. Cross-origin upgrades are refused.
func NewWebSocketHandler(hub *ws.Hub, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:          hub,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "websocket")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     sameOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
	return h
}

// ServeHTTP handles GET /ws?run={id}
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	if runID != "" && !infrastructure.ValidRunID(runID) {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("run", "run must be a valid run id"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		return
	}

	traceID := middleware.GetRequestID(r.Context())
	h.logger.InfoContext(r.Context(), "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("run_id", runID))

	ws.ServeWS(h.hub, conn, runID, traceID, h.logger)
}

// sameOrigin accepts requests without an Origin header and those whose
// Origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
