package usecase

import (
	"context"
	"strings"
	"time"

	"rebazar/internal/domain/entity"
	"rebazar/internal/domain/repository"
	"rebazar/pkg/errors"
	"rebazar/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	vendorRepo  repository.VendorRepository
	productRepo repository.ProductRepository
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	vendorRepo repository.VendorRepository,
	productRepo repository.ProductRepository,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		vendorRepo:  vendorRepo,
		productRepo: productRepo,
	}
}

type StartConversationInput struct {
	VendorID  string
	ProductID string
}

// ConversationResponse enriches a conversation with the display fields chat
// lists need: the counterpart's name and the product title.
type ConversationResponse struct {
	*entity.Conversation
	CounterpartName string `json:"counterpart_name,omitempty"`
	ProductTitle    string `json:"product_title,omitempty"`
}

// StartConversation returns the conversation for (user, vendor, product),
// creating it on first contact. Calling it twice for the same triple never
// creates a duplicate: ids are deterministic and a lost create race falls
// back to reading the winner's row.
func (uc *ChatUseCase) StartConversation(ctx context.Context, userID string, input StartConversationInput) (*entity.Conversation, error) {
	if input.VendorID == "" || input.ProductID == "" {
		return nil, errors.BadRequest("vendorId and productId are required", nil)
	}

	// The product must exist and belong to the named vendor, otherwise a
	// chat could be opened against a mismatched vendor/product pair.
	if _, err := uc.productRepo.GetByIDAndVendor(ctx, input.ProductID, input.VendorID); err != nil {
		return nil, err
	}

	id := entity.ConversationID(userID, input.VendorID, input.ProductID)

	conv, err := uc.chatRepo.GetConversationByID(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	conv = &entity.Conversation{
		ID:        id,
		UserID:    userID,
		VendorID:  input.VendorID,
		ProductID: input.ProductID,
	}

	if err := uc.chatRepo.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, "CONFLICT") {
			// Another request created the conversation first; theirs is
			// the one that counts.
			logger.Debug("StartConversation: lost create race for conversation %s, reusing existing", id)
			return uc.chatRepo.GetConversationByID(ctx, id)
		}
		logger.Error("StartConversation: failed to create conversation %s: %v", id, err)
		return nil, err
	}

	return conv, nil
}

// ListUserConversations returns the user's conversations, most recently
// active first, each carrying the vendor's name and the product title.
func (uc *ChatUseCase) ListUserConversations(ctx context.Context, userID string) ([]*ConversationResponse, error) {
	conversations, err := uc.chatRepo.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		resp := &ConversationResponse{Conversation: conv}

		if vendor, err := uc.vendorRepo.GetByID(ctx, conv.VendorID); err == nil {
			resp.CounterpartName = vendor.Name
		} else {
			logger.Warn("ListUserConversations: vendor %s lookup failed for conversation %s: %v", conv.VendorID, conv.ID, err)
		}
		uc.attachProductTitle(ctx, resp)

		result = append(result, resp)
	}

	return result, nil
}

// ListVendorConversations is the vendor-side counterpart of
// ListUserConversations.
func (uc *ChatUseCase) ListVendorConversations(ctx context.Context, vendorID string) ([]*ConversationResponse, error) {
	conversations, err := uc.chatRepo.ListConversationsByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	result := make([]*ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		resp := &ConversationResponse{Conversation: conv}

		if user, err := uc.userRepo.GetByID(ctx, conv.UserID); err == nil {
			resp.CounterpartName = user.Name
		} else {
			logger.Warn("ListVendorConversations: user %s lookup failed for conversation %s: %v", conv.UserID, conv.ID, err)
		}
		uc.attachProductTitle(ctx, resp)

		result = append(result, resp)
	}

	return result, nil
}

func (uc *ChatUseCase) attachProductTitle(ctx context.Context, resp *ConversationResponse) {
	product, err := uc.productRepo.GetByID(ctx, resp.ProductID)
	if err != nil {
		logger.Warn("Product %s lookup failed for conversation %s: %v", resp.ProductID, resp.ID, err)
		return
	}
	resp.ProductTitle = product.Title
}

// SendMessage appends a message to the conversation on behalf of the
// principal. The sender role is derived from the principal kind, never from
// the payload, and the sender must be the conversation's user or vendor.
func (uc *ChatUseCase) SendMessage(ctx context.Context, principal entity.Principal, conversationID, body string) (*entity.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.BadRequest("Message is required", nil)
	}

	conv, err := uc.chatRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if conv.Blocked {
		return nil, errors.Forbidden("Chat is blocked", nil)
	}

	var senderRole string
	switch principal.Kind {
	case entity.PrincipalUser:
		if principal.ID != conv.UserID {
			return nil, errors.Forbidden("You are not a participant in this chat", nil)
		}
		senderRole = entity.SenderRoleUser
	case entity.PrincipalVendor:
		if principal.ID != conv.VendorID {
			return nil, errors.Forbidden("You are not a participant in this chat", nil)
		}
		senderRole = entity.SenderRoleVendor
	default:
		return nil, errors.Forbidden("Only chat participants can send messages", nil)
	}

	message := &entity.Message{
		ConversationID: conversationID,
		SenderRole:     senderRole,
		SenderID:       principal.ID,
		Body:           body,
		CreatedAt:      time.Now(),
	}

	if err := uc.chatRepo.AppendMessage(ctx, message); err != nil {
		logger.Error("SendMessage: failed to append message to conversation %s: %v", conversationID, err)
		return nil, err
	}

	return message, nil
}

// ListMessages returns the conversation history in creation order. A non-nil
// after restricts the result to messages created strictly later, which is the
// polling contract clients use for incremental reads. Blocked conversations
// stay readable.
func (uc *ChatUseCase) ListMessages(ctx context.Context, principal entity.Principal, conversationID string, after *time.Time) ([]*entity.Message, error) {
	conv, err := uc.chatRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conv.HasParticipant(principal) {
		return nil, errors.Forbidden("You are not a participant in this chat", nil)
	}

	return uc.chatRepo.ListMessages(ctx, conversationID, after)
}

// BlockConversation disables message writes on the conversation. Admins may
// block any conversation; a vendor only their own. Reads are unaffected.
func (uc *ChatUseCase) BlockConversation(ctx context.Context, principal entity.Principal, conversationID string) (*entity.Conversation, error) {
	return uc.setBlocked(ctx, principal, conversationID, true)
}

// UnblockConversation re-opens a blocked conversation, clearing the recorded
// moderation actor.
func (uc *ChatUseCase) UnblockConversation(ctx context.Context, principal entity.Principal, conversationID string) (*entity.Conversation, error) {
	return uc.setBlocked(ctx, principal, conversationID, false)
}

func (uc *ChatUseCase) setBlocked(ctx context.Context, principal entity.Principal, conversationID string, blocked bool) (*entity.Conversation, error) {
	conv, err := uc.chatRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	var actor string
	switch principal.Kind {
	case entity.PrincipalAdmin:
		actor = entity.BlockedByAdmin
	case entity.PrincipalVendor:
		if principal.ID != conv.VendorID {
			return nil, errors.Forbidden("You can only moderate your own chats", nil)
		}
		actor = entity.BlockedByVendor
	default:
		return nil, errors.Forbidden("Only vendors and admins can moderate chats", nil)
	}

	if !blocked {
		actor = ""
	}

	if err := uc.chatRepo.SetConversationBlocked(ctx, conversationID, blocked, actor); err != nil {
		logger.Error("setBlocked: failed to update conversation %s (blocked=%t): %v", conversationID, blocked, err)
		return nil, err
	}

	conv.Blocked = blocked
	conv.BlockedBy = actor
	return conv, nil
}
