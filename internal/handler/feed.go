package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/retention/internal/event"
	"github.com/matthewbaird/retention/internal/eventbus"
)

const feedWriteTimeout = 5 * time.Second

// FeedHandler streams domain events over WebSocket.
type FeedHandler struct {
	broadcaster *eventbus.Broadcaster
}

func NewFeedHandler(b *eventbus.Broadcaster) *FeedHandler {
	return &FeedHandler{broadcaster: b}
}

// ServeHTTP upgrades to WebSocket and forwards events until either side
// goes away. ?member_id= limits the stream to one member.
// GET /v1/feed
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("member_id")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		pkgLog.Warn("feed: websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	events, cancel := h.broadcaster.Listen()
	defer cancel()

	// The feed is write-only; CloseRead handles control frames and cancels
	// ctx when the client disconnects.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			if memberID != "" && !affects(evt, memberID) {
				continue
			}
			if err := h.send(ctx, conn, evt); err != nil {
				pkgLog.Debug("feed: write failed", "error", err)
				return
			}
		}
	}
}

func (h *FeedHandler) send(ctx context.Context, conn *websocket.Conn, evt event.DomainEvent) error {
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, evt)
}

func affects(evt event.DomainEvent, memberID string) bool {
	for _, ref := range evt.AffectedEntities {
		if ref.EntityType == "member" && ref.EntityID == memberID {
			return true
		}
	}
	return false
}
