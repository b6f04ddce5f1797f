package http

import (
	"net/http"

	"eventqa-service/internal/app"
	"eventqa-service/internal/auth"
	"eventqa-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler streams live per-question stats to admin dashboards. Clients
// receive a snapshot on connect and after every accepted submission.
type WSHandler struct {
	events   *app.EventService
	hub      *app.ResultsHub
	auth     *auth.Service
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(events *app.EventService, hub *app.ResultsHub, authSvc *auth.Service, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		events: events,
		hub:    hub,
		auth:   authSvc,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register mounts the live-results route on the mux.
func (h *WSHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/events/{id}/live", h.ServeLive)
}

type outboundMessage struct {
	Type    string            `json:"type"`
	Payload domain.EventStats `json:"payload"`
}

// ServeLive upgrades the request and pumps stats snapshots until the client
// disconnects.
func (h *WSHandler) ServeLive(w http.ResponseWriter, r *http.Request) {
	if !h.auth.IsAdmin() {
		http.Error(w, "admin access required", http.StatusForbidden)
		return
	}
	event, err := h.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	updates, cancel, err := h.hub.Subscribe(r.Context(), event.ID)
	if err != nil {
		h.log.Warn("live subscribe failed", zap.String("event_id", event.ID), zap.Error(err))
		http.Error(w, "live results unavailable", http.StatusInternalServerError)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reader goroutine only detects the client going away; inbound payloads
	// are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case stats, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "stats", Payload: stats}); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		}
	}
}
