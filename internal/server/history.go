package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/npuzant/peerchat/internal/types"
)

// historyReplayLimit caps how many retained messages a joiner is sent.
const historyReplayLimit = 200

// HistoryStore is the bounded-retention per-room message log. Messages age
// out of the retention window both eagerly, on every append to the touched
// room, and via the coordinator's periodic sweep so idle rooms are trimmed
// too. The store is only ever touched from the coordinator goroutine.
type HistoryStore struct {
	retention time.Duration
	logs      map[string][]types.Message
}

func NewHistoryStore(retention time.Duration) *HistoryStore {
	return &HistoryStore{
		retention: retention,
		logs:      make(map[string][]types.Message),
	}
}

// Append records a message and trims the touched room's log.
func (h *HistoryStore) Append(msg types.Message) {
	h.logs[msg.RoomId] = append(h.logs[msg.RoomId], msg)
	h.trim(msg.RoomId, msg.Created.Add(-h.retention))
}

// Recent returns up to limit retained messages for a room, oldest first.
func (h *HistoryStore) Recent(roomId string, limit int) []types.Message {
	log := h.logs[roomId]
	if len(log) > limit {
		log = log[len(log)-limit:]
	}

	out := make([]types.Message, len(log))
	copy(out, log)
	return out
}

// Sweep drops messages older than the retention window from every room.
func (h *HistoryStore) Sweep(now time.Time) {
	cutoff := now.Add(-h.retention)
	for roomId := range h.logs {
		h.trim(roomId, cutoff)
	}
}

func (h *HistoryStore) trim(roomId string, cutoff time.Time) {
	log := h.logs[roomId]
	kept := log[:0]
	for _, msg := range log {
		if !msg.Created.Before(cutoff) {
			kept = append(kept, msg)
		}
	}
	h.logs[roomId] = kept
}

// handleChatRoom appends the message and broadcasts the chat event to every
// member including the sender. Unknown rooms and muted senders are silent
// no-ops.
func (co *Coordinator) handleChatRoom(frame *ClientFrame) {
	room, ok := co.rooms[frame.RoomId]
	if !ok {
		return
	}

	sess, ok := co.session(frame.client.identity)
	if !ok || sess.Muted {
		return
	}

	msg := types.Message{
		Id:      uuid.NewString(),
		RoomId:  room.Id,
		Sender:  sess.Identity,
		Text:    frame.Text,
		Created: Now(),
	}

	co.history.Append(msg)
	co.stats.Incr(statMessages)

	co.broadcastRoom(room, chatRoomFrame(room.Id, sess.Identity, sess.Nickname, msg.Text, msg.Created))
}
