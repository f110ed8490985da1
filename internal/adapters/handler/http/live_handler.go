package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/services"
)

// Live message types pushed over the websocket.
const (
	LiveTypeCounts = "counts"
	LiveTypeVote   = "vote"
)

// LiveMessage is one frame of the live feed. The first frame after connect is
// a counts frame carrying the bootstrap tally; every later frame is a vote
// frame carrying the inserted row plus the tally including it. The client SDK
// decodes this same struct.
type LiveMessage struct {
	Type   string        `json:"type"`
	Event  string        `json:"event"`
	Vote   *domain.Vote  `json:"vote,omitempty"`
	Counts domain.Counts `json:"counts"`
	Error  string        `json:"error,omitempty"`
}

type LiveHandler struct {
	live *services.LiveService
	log  *slog.Logger

	upgrader websocket.Upgrader
}

func NewLiveHandler(live *services.LiveService, log *slog.Logger) *LiveHandler {
	return &LiveHandler{
		live: live,
		log:  log,
		upgrader: websocket.Upgrader{
			// Cross-origin policy is enforced by the CORS layer; the feed
			// itself is world-readable like the rest of the vote store.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *LiveHandler) ServeLive(w http.ResponseWriter, r *http.Request) {
	event := EventScope(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "event", event, "error", err)
		return
	}
	defer conn.Close()

	stream, err := h.live.Open(r.Context(), event)
	if err != nil {
		h.log.Error("failed to open live stream", "event", event, "error", err)
		conn.WriteJSON(LiveMessage{Type: LiveTypeCounts, Event: event, Counts: domain.NewCounts(), Error: MsgLoadFailed})
		return
	}
	defer stream.Close()

	first := LiveMessage{Type: LiveTypeCounts, Event: event, Counts: stream.Counts()}
	if stream.LoadErr() != nil {
		first.Error = MsgLoadFailed
	}
	if err := conn.WriteJSON(first); err != nil {
		return
	}

	// Drain (and discard) client frames so pings and closes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				stream.Close()
				return
			}
		}
	}()

	for vote := range stream.Events() {
		v := vote
		msg := LiveMessage{
			Type:   LiveTypeVote,
			Event:  event,
			Vote:   &v,
			Counts: stream.Counts(),
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
