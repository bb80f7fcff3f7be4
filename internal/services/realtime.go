package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const userChannelPrefix = "journal:user:"

// InvalidationEvent tells a user's open pages that a surface changed.
type InvalidationEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// RealtimeConn is the minimal interface our WebSocket implementation must satisfy.
type RealtimeConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// userConnection serialises writes to one socket.
type userConnection struct {
	conn RealtimeConn
	mu   sync.Mutex
}

func (uc *userConnection) send(v interface{}) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.conn.WriteJSON(v)
}

// Hub is the registry of open sockets on this instance, grouped by user.
// Events arrive through Redis so every instance sees every invalidation.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*userConnection]struct{}
	started     sync.Once
}

func NewHub() *Hub {
	return &Hub{connections: make(map[string]map[*userConnection]struct{})}
}

// Register adds conn to userID's sockets and returns a func that removes it.
func (h *Hub) Register(userID string, conn RealtimeConn) func() {
	uc := &userConnection{conn: conn}

	h.mu.Lock()
	if h.connections[userID] == nil {
		h.connections[userID] = make(map[*userConnection]struct{})
	}
	h.connections[userID][uc] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.connections[userID], uc)
		if len(h.connections[userID]) == 0 {
			delete(h.connections, userID)
		}
	}
}

// Deliver writes event to every local socket of its user.
func (h *Hub) Deliver(event InvalidationEvent) {
	h.mu.RLock()
	conns := make([]*userConnection, 0, len(h.connections[event.UserID]))
	for uc := range h.connections[event.UserID] {
		conns = append(conns, uc)
	}
	h.mu.RUnlock()

	for _, uc := range conns {
		if err := uc.send(event); err != nil {
			logger.Log.WithFields(logrus.Fields{"user_id": event.UserID, "error": err}).Warn("error writing event to websocket")
			uc.conn.Close()
		}
	}
}

// Start runs the shared Redis listener once per hub.
func (h *Hub) Start(ctx context.Context, client *redis.Client) {
	h.started.Do(func() {
		go h.runSubscriber(ctx, client)
	})
}

func (h *Hub) runSubscriber(ctx context.Context, client *redis.Client) {
	if client == nil {
		logger.Log.Warn("Redis client not initialized; realtime subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, userChannelPrefix+"*")
			defer pubsub.Close()

			logger.Log.Info("✅ Realtime Redis subscriber started (pattern: " + userChannelPrefix + "*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Log.WithError(err).Warn("Redis subscriber error")
					select {
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event InvalidationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Log.WithError(err).Warn("failed to unmarshal invalidation event")
					continue
				}
				if event.UserID == "" {
					event.UserID = strings.TrimPrefix(msg.Channel, userChannelPrefix)
				}

				h.Deliver(event)
			}
		}()
	}
}

// RealtimePublisher announces invalidations on the owner's Redis channel.
type RealtimePublisher struct {
	client *redis.Client
}

func NewRealtimePublisher(client *redis.Client) *RealtimePublisher {
	return &RealtimePublisher{client: client}
}

func (p *RealtimePublisher) Invalidate(ctx context.Context, ownerID, path string) error {
	data, err := json.Marshal(InvalidationEvent{
		Type:      "invalidate",
		UserID:    ownerID,
		Path:      path,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, userChannelPrefix+ownerID, data).Err()
}
