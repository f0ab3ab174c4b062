package repository

import (
	"context"
	"time"

	"rebazar/internal/domain/entity"
)

type ChatRepository interface {
	// CreateConversation persists a new conversation. It fails with a
	// CONFLICT error when a conversation for the same (user, vendor,
	// product) triple already exists.
	CreateConversation(ctx context.Context, conv *entity.Conversation) error
	GetConversationByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]*entity.Conversation, error)
	ListConversationsByVendor(ctx context.Context, vendorID string) ([]*entity.Conversation, error)
	SetConversationBlocked(ctx context.Context, id string, blocked bool, blockedBy string) error

	// AppendMessage durably stores the message and updates the parent
	// conversation's preview in the same transaction. The preview only
	// moves forward: an append racing with a newer one leaves the newer
	// preview in place.
	AppendMessage(ctx context.Context, message *entity.Message) error
	// ListMessages returns the conversation's messages ordered by creation
	// time ascending. A non-nil after restricts the result to messages
	// created strictly later.
	ListMessages(ctx context.Context, conversationID string, after *time.Time) ([]*entity.Message, error)
}
