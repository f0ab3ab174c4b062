package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rebazar/internal/domain/entity"
	"rebazar/internal/domain/repository"
	"rebazar/pkg/errors"
	"rebazar/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) CreateConversation(ctx context.Context, conv *entity.Conversation) error {
	if conv.ID == "" {
		conv.ID = entity.ConversationID(conv.UserID, conv.VendorID, conv.ProductID)
	}

	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	// Create (not Set) so the losing side of a concurrent create for the
	// same triple observes AlreadyExists instead of silently overwriting.
	_, err := r.client.Collection("conversations").Doc(conv.ID).Create(ctx, conv)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists", err)
		}
		return errors.Internal("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetConversationByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection("conversations").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}

	return &conv, nil
}

func (r *firestoreChatRepository) ListConversationsByUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	return r.listConversations(ctx, "userId", userID)
}

func (r *firestoreChatRepository) ListConversationsByVendor(ctx context.Context, vendorID string) ([]*entity.Conversation, error) {
	return r.listConversations(ctx, "vendorId", vendorID)
}

// listConversations orders by lastMessageAt descending; Firestore sorts null
// values last in descending order, so conversations without messages trail.
func (r *firestoreChatRepository) listConversations(ctx context.Context, field, value string) ([]*entity.Conversation, error) {
	query := r.client.Collection("conversations").
		Where(field, "==", value).
		OrderBy("lastMessageAt", firestore.Desc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var conversations []*entity.Conversation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing conversations for %s=%s: %v", field, value, err)
			return nil, errors.Internal("Failed to list conversations", err)
		}

		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			logger.Error("Error parsing conversation data for %s=%s: %v", field, value, err)
			return nil, errors.Internal("Failed to parse conversation data", err)
		}

		conversations = append(conversations, &conv)
	}

	return conversations, nil
}

func (r *firestoreChatRepository) SetConversationBlocked(ctx context.Context, id string, blocked bool, blockedBy string) error {
	_, err := r.client.Collection("conversations").Doc(id).Update(ctx, []firestore.Update{
		{Path: "blocked", Value: blocked},
		{Path: "blockedBy", Value: blockedBy},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to update conversation moderation state", err)
	}

	return nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	convRef := r.client.Collection("conversations").Doc(message.ConversationID)
	msgRef := convRef.Collection("messages").Doc(message.ID)

	// Message insert and preview update commit together, so a reader never
	// sees a fresher preview than the ledger. The preview only moves
	// forward in time: when two appends race, the later message wins the
	// preview and neither message is lost.
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			return err
		}

		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return err
		}

		if err := tx.Create(msgRef, message); err != nil {
			return err
		}

		if conv.LastMessageAt != nil && conv.LastMessageAt.After(message.CreatedAt) {
			return nil
		}

		return tx.Update(convRef, []firestore.Update{
			{Path: "lastMessage", Value: message.Body},
			{Path: "lastMessageAt", Value: message.CreatedAt},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to append message", err)
	}

	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, conversationID string, after *time.Time) ([]*entity.Message, error) {
	query := r.client.Collection("conversations").Doc(conversationID).Collection("messages").Query
	if after != nil {
		query = query.Where("createdAt", ">", *after)
	}
	// Equal timestamps fall back to document id order, which is stable
	// across repeated reads.
	query = query.OrderBy("createdAt", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for conversation %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Error("Error parsing message data for conversation %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to parse message data", err)
		}

		messages = append(messages, &message)
	}

	return messages, nil
}
