package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/AnshRaj112/reflect-backend/internal/services"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsReadLimit  = 4 * 1024
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is checked by the CORS layer before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RealtimeHandler streams cache invalidations to a user's open pages.
type RealtimeHandler struct {
	journal *services.JournalService
	hub     *services.Hub
}

func NewRealtimeHandler(journal *services.JournalService, hub *services.Hub) *RealtimeHandler {
	return &RealtimeHandler{journal: journal, hub: hub}
}

// Invalidations handles GET /ws/entries. The socket is server-push only;
// anything the client sends is read and dropped to keep pongs flowing.
func (h *RealtimeHandler) Invalidations(w http.ResponseWriter, r *http.Request) {
	user, err := h.journal.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	unregister := h.hub.Register(user.ID, conn)
	defer unregister()

	log := logger.Log.WithFields(logrus.Fields{"user_id": user.ID})
	log.Debug("realtime socket opened")

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Debug("realtime socket closed")
			return
		}
	}
}
