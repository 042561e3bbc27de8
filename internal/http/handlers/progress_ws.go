package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"reelforge/internal/generation"
)

const wsWriteTimeout = 10 * time.Second

// ProgressWS upgrades to a websocket and streams aggregate progress events
// for one project until the client disconnects. The first event is always
// "connected"; afterwards the broadcaster pushes a snapshot per tick.
func (a *App) ProgressWS(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id required")
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := a.Stream.Subscribe(projectID)
	defer cancel()

	// Drain client frames so close/ping handling works; the stream is
	// write-only from the server side.
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
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Type == generation.StreamEventComplete {
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "generation complete"),
					time.Now().Add(wsWriteTimeout),
				)
				return
			}
		}
	}
}
