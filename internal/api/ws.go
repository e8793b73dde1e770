package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"pickplan/internal/model"
)

const (
	wsPingEvery = 20 * time.Second
	wsReadWait  = 60 * time.Second
	wsWriteWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// EventsWSHandler streams plan events of one store over a websocket. The
// first message is {"type":"connected"}; every later one is a PlanEvent.
func (s *Server) EventsWSHandler(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeId")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ch := s.Broker.Subscribe(storeID)
	defer s.Broker.Unsubscribe(storeID, ch)

	// The reader only watches for the client going away; incoming messages
	// are ignored.
	done := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsReadWait)) })
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	if err := write(model.PlanEvent{Type: "connected", Data: map[string]any{"storeId": storeID}}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				log.Debug().Err(err).Str("store", storeID).Msg("websocket write")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
