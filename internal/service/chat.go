package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hanbit-dev/fleamart/internal/domain"
)

const (
	// Messages longer than maxChatMessageLen are cut to chatTruncateLen
	// runes plus an ellipsis rather than rejected.
	maxChatMessageLen = 500
	chatTruncateLen   = 497
)

// StartChatInput identifies the counterpart of a new conversation. Exactly
// one of OtherUserID and ProductID must be set; a product resolves to its
// seller.
type StartChatInput struct {
	OtherUserID int64
	ProductID   int64
}

// ChatRoomSummary is a room plus the derived fields the room list shows.
type ChatRoomSummary struct {
	Room        domain.ChatRoom
	UnreadCount int
	LastMessage *domain.ChatMessage
}

// ChatStore owns direct conversations between users: starting rooms,
// listing them, and exchanging sanitized messages inside them. Every
// operation is gated on room membership.
type ChatStore struct {
	kv        domain.KeyValueStore
	sessions  *SessionManager
	users     *UserStore
	validator *Validator
	audit     *AuditLog
	now       func() time.Time
}

// NewChatStore creates a new ChatStore.
func NewChatStore(kv domain.KeyValueStore, sessions *SessionManager, users *UserStore, validator *Validator, audit *AuditLog) *ChatStore {
	return &ChatStore{
		kv:        kv,
		sessions:  sessions,
		users:     users,
		validator: validator,
		audit:     audit,
		now:       time.Now,
	}
}

// Start opens a conversation between the current session and another user,
// reusing an existing room for the same pair and listing if one exists. A
// fresh room gets a server-written opening message.
func (s *ChatStore) Start(ctx context.Context, in StartChatInput) (*domain.ChatRoom, error) {
	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	otherID := in.OtherUserID
	opening := "Conversation started."

	if in.ProductID != 0 {
		product, err := s.findListedProduct(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if product.SellerID == actor.UserID() {
			return nil, fmt.Errorf("%w: cannot start a chat about your own listing", domain.ErrInvalidInput)
		}
		otherID = product.SellerID
		// Title is stored escaped, so it can be embedded as-is.
		opening = fmt.Sprintf("Conversation started about %s.", product.Title)
	} else {
		if otherID == 0 {
			return nil, fmt.Errorf("%w: a chat needs a counterpart", domain.ErrInvalidInput)
		}
		if _, err := s.users.GetByID(ctx, otherID); err != nil {
			return nil, err
		}
	}
	if otherID == actor.UserID() {
		return nil, fmt.Errorf("%w: cannot chat with yourself", domain.ErrInvalidInput)
	}

	rooms, err := loadCollection[domain.ChatRoom](ctx, s.kv, domain.KeyChatRooms)
	if err != nil {
		return nil, err
	}

	var maxID int64
	for i := range rooms {
		if rooms[i].ID > maxID {
			maxID = rooms[i].ID
		}
		if rooms[i].Active && rooms[i].ProductID == in.ProductID &&
			rooms[i].HasParticipant(actor.UserID()) && rooms[i].HasParticipant(otherID) {
			return &rooms[i], nil
		}
	}

	now := s.now().UTC()
	room := domain.ChatRoom{
		ID:             maxID + 1,
		ParticipantIDs: []int64{actor.UserID(), otherID},
		ProductID:      in.ProductID,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	rooms = append(rooms, room)
	if err := saveCollection(ctx, s.kv, domain.KeyChatRooms, rooms); err != nil {
		return nil, err
	}

	if _, err := s.appendMessage(ctx, room.ID, actor.UserID(), actor.Name, opening); err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, "chat_started", map[string]any{
		"roomId":      room.ID,
		"userId":      actor.UserID(),
		"otherUserId": otherID,
	}); err != nil {
		return nil, err
	}
	return &room, nil
}

// Rooms lists the active conversations of the current session, most
// recently updated first, each with its unread count and last message.
func (s *ChatStore) Rooms(ctx context.Context) ([]ChatRoomSummary, error) {
	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	rooms, err := loadCollection[domain.ChatRoom](ctx, s.kv, domain.KeyChatRooms)
	if err != nil {
		return nil, err
	}
	messages, err := loadCollection[domain.ChatMessage](ctx, s.kv, domain.KeyChatMessages)
	if err != nil {
		return nil, err
	}

	var out []ChatRoomSummary
	for _, room := range rooms {
		if !room.Active || !room.HasParticipant(actor.UserID()) {
			continue
		}
		summary := ChatRoomSummary{Room: room}
		for i := range messages {
			if messages[i].RoomID != room.ID {
				continue
			}
			if !messages[i].Read && messages[i].SenderID != actor.UserID() {
				summary.UnreadCount++
			}
			summary.LastMessage = &messages[i]
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Room.UpdatedAt.Equal(out[j].Room.UpdatedAt) {
			return out[i].Room.UpdatedAt.After(out[j].Room.UpdatedAt)
		}
		return out[i].Room.ID > out[j].Room.ID
	})
	return out, nil
}

// Messages returns a room's messages in send order and marks the other
// party's messages as read. Only participants may read a room.
func (s *ChatStore) Messages(ctx context.Context, roomID int64) ([]domain.ChatMessage, error) {
	actor, err := s.requireParticipant(ctx, roomID)
	if err != nil {
		return nil, err
	}

	messages, err := loadCollection[domain.ChatMessage](ctx, s.kv, domain.KeyChatMessages)
	if err != nil {
		return nil, err
	}

	var inRoom []domain.ChatMessage
	changed := false
	for i := range messages {
		if messages[i].RoomID != roomID {
			continue
		}
		if !messages[i].Read && messages[i].SenderID != actor.UserID() {
			messages[i].Read = true
			changed = true
		}
		inRoom = append(inRoom, messages[i])
	}
	if changed {
		if err := saveCollection(ctx, s.kv, domain.KeyChatMessages, messages); err != nil {
			return nil, err
		}
	}
	return inRoom, nil
}

// Send posts a message to a room from the current session. Content is
// scanned for injection attempts, escaped, and bounded before it is stored.
func (s *ChatStore) Send(ctx context.Context, roomID int64, content string) (*domain.ChatMessage, error) {
	actor, err := s.requireParticipant(ctx, roomID)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: a message needs content", domain.ErrInvalidInput)
	}
	if s.validator.ScanText(ctx, trimmed) {
		return nil, domain.ErrSecurityRejected
	}

	body := Sanitize(trimmed)
	if runes := []rune(body); len(runes) > maxChatMessageLen {
		body = string(runes[:chatTruncateLen]) + "..."
	}

	message, err := s.appendMessage(ctx, roomID, actor.UserID(), actor.Name, body)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, "chat_message_sent", map[string]any{
		"roomId":   roomID,
		"senderId": actor.UserID(),
	}); err != nil {
		return nil, err
	}
	return message, nil
}

// requireParticipant resolves the current session and checks it belongs to
// the room. Unknown rooms and non-participants are distinguishable to the
// caller but attempted intrusions are logged.
func (s *ChatStore) requireParticipant(ctx context.Context, roomID int64) (*SessionClaims, error) {
	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	rooms, err := loadCollection[domain.ChatRoom](ctx, s.kv, domain.KeyChatRooms)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		if rooms[i].ID != roomID {
			continue
		}
		if !rooms[i].HasParticipant(actor.UserID()) {
			slog.Warn("chat room access denied", "roomId", roomID, "userId", actor.UserID())
			return nil, domain.ErrUnauthorized
		}
		return actor, nil
	}
	return nil, domain.ErrNotFound
}

// appendMessage persists a message and bumps the room's UpdatedAt.
func (s *ChatStore) appendMessage(ctx context.Context, roomID, senderID int64, senderName, content string) (*domain.ChatMessage, error) {
	messages, err := loadCollection[domain.ChatMessage](ctx, s.kv, domain.KeyChatMessages)
	if err != nil {
		return nil, err
	}

	var maxID int64
	for _, m := range messages {
		if m.ID > maxID {
			maxID = m.ID
		}
	}

	message := domain.ChatMessage{
		ID:         maxID + 1,
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	messages = append(messages, message)
	if err := saveCollection(ctx, s.kv, domain.KeyChatMessages, messages); err != nil {
		return nil, err
	}

	rooms, err := loadCollection[domain.ChatRoom](ctx, s.kv, domain.KeyChatRooms)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		if rooms[i].ID == roomID {
			rooms[i].UpdatedAt = message.CreatedAt
			if err := saveCollection(ctx, s.kv, domain.KeyChatRooms, rooms); err != nil {
				return nil, err
			}
			break
		}
	}
	return &message, nil
}

// findListedProduct looks up a product that is still visible to buyers:
// not removed, and its seller not in the blocked set.
func (s *ChatStore) findListedProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	products, err := loadCollection[domain.Product](ctx, s.kv, domain.KeyProducts)
	if err != nil {
		return nil, err
	}
	blocked, err := loadCollection[int64](ctx, s.kv, domain.KeyBlockedUsers)
	if err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].ID != productID || products[i].Status == domain.ProductRemoved {
			continue
		}
		for _, id := range blocked {
			if id == products[i].SellerID {
				return nil, domain.ErrNotFound
			}
		}
		return &products[i], nil
	}
	return nil, domain.ErrNotFound
}
