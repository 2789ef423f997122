package handler

import (
	"time"

	"github.com/hanbit-dev/fleamart/internal/domain"
	"github.com/hanbit-dev/fleamart/internal/service"
)

// UserDTO is the JSON representation of a user.
type UserDTO struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// ProductDTO is the JSON representation of a product listing.
type ProductDTO struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"imageUrl"`
	SellerID    int64  `json:"sellerId"`
	SellerName  string `json:"sellerName"`
	Status      string `json:"status"`
	Views       int64  `json:"views"`
	CreatedAt   string `json:"createdAt"`
}

func toProductDTO(p *domain.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    "/api/images/" + p.ImageRef,
		SellerID:    p.SellerID,
		SellerName:  p.SellerName,
		Status:      string(p.Status),
		Views:       p.Views,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

func toProductDTOs(products []domain.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i := range products {
		dtos[i] = toProductDTO(&products[i])
	}
	return dtos
}

// ReportDTO is the JSON representation of a report.
type ReportDTO struct {
	ID              int64  `json:"id"`
	ReporterID      int64  `json:"reporterId"`
	TargetUserID    int64  `json:"targetUserId,omitempty"`
	TargetProductID int64  `json:"targetProductId,omitempty"`
	Reason          string `json:"reason"`
	Detail          string `json:"detail"`
	Processed       bool   `json:"processed"`
	CreatedAt       string `json:"createdAt"`
}

func toReportDTO(r domain.Report) ReportDTO {
	return ReportDTO{
		ID:              r.ID,
		ReporterID:      r.ReporterID,
		TargetUserID:    r.TargetUserID,
		TargetProductID: r.TargetProductID,
		Reason:          string(r.Reason),
		Detail:          r.Detail,
		Processed:       r.Processed,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
}

func toReportDTOs(reports []domain.Report) []ReportDTO {
	dtos := make([]ReportDTO, len(reports))
	for i, r := range reports {
		dtos[i] = toReportDTO(r)
	}
	return dtos
}

// ChatRoomDTO is the JSON representation of a chat room, including the
// derived fields the room list shows.
type ChatRoomDTO struct {
	ID             int64           `json:"id"`
	ParticipantIDs []int64         `json:"participantIds"`
	ProductID      int64           `json:"productId,omitempty"`
	UnreadCount    int             `json:"unreadCount"`
	LastMessage    *ChatMessageDTO `json:"lastMessage,omitempty"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
}

func toChatRoomDTO(room domain.ChatRoom) ChatRoomDTO {
	return ChatRoomDTO{
		ID:             room.ID,
		ParticipantIDs: room.ParticipantIDs,
		ProductID:      room.ProductID,
		CreatedAt:      room.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      room.UpdatedAt.Format(time.RFC3339),
	}
}

func toChatRoomDTOs(summaries []service.ChatRoomSummary) []ChatRoomDTO {
	dtos := make([]ChatRoomDTO, len(summaries))
	for i, s := range summaries {
		dto := toChatRoomDTO(s.Room)
		dto.UnreadCount = s.UnreadCount
		if s.LastMessage != nil {
			last := toChatMessageDTO(*s.LastMessage)
			dto.LastMessage = &last
		}
		dtos[i] = dto
	}
	return dtos
}

// ChatMessageDTO is the JSON representation of a chat message.
type ChatMessageDTO struct {
	ID         int64  `json:"id"`
	RoomID     int64  `json:"roomId"`
	SenderID   int64  `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	Read       bool   `json:"read"`
	CreatedAt  string `json:"createdAt"`
}

func toChatMessageDTO(m domain.ChatMessage) ChatMessageDTO {
	return ChatMessageDTO{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
}

func toChatMessageDTOs(messages []domain.ChatMessage) []ChatMessageDTO {
	dtos := make([]ChatMessageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = toChatMessageDTO(m)
	}
	return dtos
}

// AuditEntryDTO is the JSON representation of an activity log entry.
type AuditEntryDTO struct {
	Action    string         `json:"action"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp"`
}

func toAuditEntryDTOs(entries []domain.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			Action:    e.Action,
			Data:      e.Data,
			Timestamp: e.Timestamp.Format(time.RFC3339),
		}
	}
	return dtos
}
