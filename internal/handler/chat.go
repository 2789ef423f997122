package handler

import (
	"net/http"
	"strconv"

	"github.com/hanbit-dev/fleamart/internal/service"
)

// ChatHandler handles direct conversations between users.
type ChatHandler struct {
	chats *service.ChatStore
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chats *service.ChatStore) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// HandleStart opens (or reuses) a conversation with another user, either
// directly or via one of their listings.
// POST /api/chats
// Request:  {"otherUserId":1} or {"productId":2}
// Response: {"room": {...}}
func (h *ChatHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OtherUserID int64 `json:"otherUserId"`
		ProductID   int64 `json:"productId"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	room, err := h.chats.Start(r.Context(), service.StartChatInput{
		OtherUserID: req.OtherUserID,
		ProductID:   req.ProductID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"room": toChatRoomDTO(*room),
	})
}

// HandleRooms lists the caller's conversations, most recent first.
// GET /api/chats
// Response: {"rooms": [...]}
func (h *ChatHandler) HandleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.chats.Rooms(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": toChatRoomDTOs(rooms),
	})
}

// HandleMessages returns a room's messages and marks the other party's
// messages as read.
// GET /api/chats/{id}/messages
// Response: {"messages": [...]}
func (h *ChatHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room id.")
		return
	}

	messages, err := h.chats.Messages(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": toChatMessageDTOs(messages),
	})
}

// HandleSend posts a message to a room.
// POST /api/chats/{id}/messages
// Request:  {"content":"..."}
// Response: {"message": {...}}
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room id.")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	message, err := h.chats.Send(r.Context(), id, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": toChatMessageDTO(*message),
	})
}
