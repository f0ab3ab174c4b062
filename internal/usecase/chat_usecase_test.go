package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebazar/internal/domain/entity"
	"rebazar/pkg/errors"
)

type memoryChatRepository struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
}

func newMemoryChatRepository() *memoryChatRepository {
	return &memoryChatRepository{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
	}
}

func (r *memoryChatRepository) CreateConversation(ctx context.Context, conv *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv.ID == "" {
		conv.ID = entity.ConversationID(conv.UserID, conv.VendorID, conv.ProductID)
	}
	if _, exists := r.conversations[conv.ID]; exists {
		return errors.Conflict("Conversation already exists", nil)
	}

	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	clone := *conv
	r.conversations[conv.ID] = &clone
	return nil
}

func (r *memoryChatRepository) GetConversationByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	clone := *conv
	return &clone, nil
}

func (r *memoryChatRepository) listConversations(match func(*entity.Conversation) bool) []*entity.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*entity.Conversation
	for _, conv := range r.conversations {
		if match(conv) {
			clone := *conv
			result = append(result, &clone)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].LastMessageAt, result[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	return result
}

func (r *memoryChatRepository) ListConversationsByUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	return r.listConversations(func(c *entity.Conversation) bool { return c.UserID == userID }), nil
}

func (r *memoryChatRepository) ListConversationsByVendor(ctx context.Context, vendorID string) ([]*entity.Conversation, error) {
	return r.listConversations(func(c *entity.Conversation) bool { return c.VendorID == vendorID }), nil
}

func (r *memoryChatRepository) SetConversationBlocked(ctx context.Context, id string, blocked bool, blockedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	conv.Blocked = blocked
	conv.BlockedBy = blockedBy
	conv.UpdatedAt = time.Now()
	return nil
}

func (r *memoryChatRepository) AppendMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[message.ConversationID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	clone := *message
	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], &clone)

	if conv.LastMessageAt == nil || !conv.LastMessageAt.After(message.CreatedAt) {
		at := message.CreatedAt
		conv.LastMessage = message.Body
		conv.LastMessageAt = &at
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (r *memoryChatRepository) ListMessages(ctx context.Context, conversationID string, after *time.Time) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*entity.Message
	for _, msg := range r.messages[conversationID] {
		if after != nil && !msg.CreatedAt.After(*after) {
			continue
		}
		clone := *msg
		result = append(result, &clone)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

type memoryUserRepository struct {
	users map[string]*entity.User
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

type memoryVendorRepository struct {
	vendors map[string]*entity.Vendor
}

func (r *memoryVendorRepository) GetByID(ctx context.Context, id string) (*entity.Vendor, error) {
	vendor, ok := r.vendors[id]
	if !ok {
		return nil, errors.NotFound("Vendor", nil)
	}
	return vendor, nil
}

type memoryProductRepository struct {
	products map[string]*entity.Product
}

func (r *memoryProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	return product, nil
}

func (r *memoryProductRepository) GetByIDAndVendor(ctx context.Context, id, vendorID string) (*entity.Product, error) {
	product, ok := r.products[id]
	if !ok || product.VendorID != vendorID {
		return nil, errors.NotFound("Product for this vendor", nil)
	}
	return product, nil
}

type chatFixture struct {
	uc       *ChatUseCase
	chatRepo *memoryChatRepository
}

func newChatFixture() *chatFixture {
	chatRepo := newMemoryChatRepository()
	userRepo := &memoryUserRepository{users: map[string]*entity.User{
		"user-1": {ID: "user-1", Name: "Asha", Status: "active"},
		"user-2": {ID: "user-2", Name: "Bram", Status: "active"},
	}}
	vendorRepo := &memoryVendorRepository{vendors: map[string]*entity.Vendor{
		"vendor-1": {ID: "vendor-1", Name: "Gadget Hub", Status: entity.VendorStatusApproved},
		"vendor-2": {ID: "vendor-2", Name: "Tech Corner", Status: entity.VendorStatusApproved},
	}}
	productRepo := &memoryProductRepository{products: map[string]*entity.Product{
		"product-1": {ID: "product-1", VendorID: "vendor-1", Title: "Used Laptop", Price: 450},
		"product-2": {ID: "product-2", VendorID: "vendor-2", Title: "Camera", Price: 300},
	}}

	return &chatFixture{
		uc:       NewChatUseCase(chatRepo, userRepo, vendorRepo, productRepo),
		chatRepo: chatRepo,
	}
}

func userPrincipal(id string) entity.Principal {
	return entity.Principal{Kind: entity.PrincipalUser, ID: id}
}

func vendorPrincipal(id string) entity.Principal {
	return entity.Principal{Kind: entity.PrincipalVendor, ID: id}
}

func adminPrincipal() entity.Principal {
	return entity.Principal{Kind: entity.PrincipalAdmin, ID: "admin-1"}
}

func TestStartConversationCreatesOncePerTriple(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	first, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)
	assert.False(t, first.Blocked)
	assert.Empty(t, first.BlockedBy)
	assert.Empty(t, first.LastMessage)
	assert.Nil(t, first.LastMessageAt)

	second, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.chatRepo.conversations, 1)
}

// racingChatRepository misses the first lookup, simulating a concurrent
// request that commits the conversation between our lookup and create.
type racingChatRepository struct {
	*memoryChatRepository
	missed bool
}

func (r *racingChatRepository) GetConversationByID(ctx context.Context, id string) (*entity.Conversation, error) {
	if !r.missed {
		r.missed = true
		return nil, errors.NotFound("Chat", nil)
	}
	return r.memoryChatRepository.GetConversationByID(ctx, id)
}

func TestStartConversationCreateRaceFallsBackToWinner(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	racing := &racingChatRepository{memoryChatRepository: f.chatRepo}
	uc := NewChatUseCase(racing, &memoryUserRepository{}, &memoryVendorRepository{}, &memoryProductRepository{products: map[string]*entity.Product{
		"product-1": {ID: "product-1", VendorID: "vendor-1", Title: "Used Laptop"},
	}})

	// The winner's row already exists under the deterministic id, so the
	// create hits the uniqueness constraint and falls back to reading it.
	winner := &entity.Conversation{
		UserID:    "user-1",
		VendorID:  "vendor-1",
		ProductID: "product-1",
	}
	require.NoError(t, f.chatRepo.CreateConversation(ctx, winner))

	conv, err := uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, conv.ID)
	assert.True(t, racing.missed)
	assert.Len(t, f.chatRepo.conversations, 1)
}

func TestStartConversationRejectsMismatchedVendorProduct(t *testing.T) {
	f := newChatFixture()

	// product-1 belongs to vendor-1, not vendor-2.
	_, err := f.uc.StartConversation(context.Background(), "user-1", StartConversationInput{VendorID: "vendor-2", ProductID: "product-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestStartConversationRequiresVendorAndProduct(t *testing.T) {
	f := newChatFixture()

	_, err := f.uc.StartConversation(context.Background(), "user-1", StartConversationInput{VendorID: "vendor-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendMessageDerivesRoleFromPrincipal(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	userMsg, err := f.uc.SendMessage(ctx, userPrincipal("user-1"), conv.ID, "Is this available?")
	require.NoError(t, err)
	assert.Equal(t, entity.SenderRoleUser, userMsg.SenderRole)
	assert.Equal(t, "user-1", userMsg.SenderID)

	vendorMsg, err := f.uc.SendMessage(ctx, vendorPrincipal("vendor-1"), conv.ID, "Yes")
	require.NoError(t, err)
	assert.Equal(t, entity.SenderRoleVendor, vendorMsg.SenderRole)
	assert.Equal(t, "vendor-1", vendorMsg.SenderID)
}

func TestSendMessageTrimsBodyAndUpdatesPreview(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	msg, err := f.uc.SendMessage(ctx, userPrincipal("user-1"), conv.ID, "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Body)
	assert.False(t, msg.SeenByUser)
	assert.False(t, msg.SeenByVendor)

	stored, err := f.chatRepo.GetConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello there", stored.LastMessage)
	require.NotNil(t, stored.LastMessageAt)
	assert.Equal(t, msg.CreatedAt, *stored.LastMessageAt)
}

func TestAppendMessageKeepsNewestPreview(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, f.chatRepo.AppendMessage(ctx, &entity.Message{
		ID:             "msg-newer",
		ConversationID: conv.ID,
		SenderRole:     entity.SenderRoleVendor,
		SenderID:       "vendor-1",
		Body:           "newer",
		CreatedAt:      now,
	}))

	// A racing append that commits with an earlier timestamp must not
	// rewind the preview, but its message still lands in the history.
	require.NoError(t, f.chatRepo.AppendMessage(ctx, &entity.Message{
		ID:             "msg-late",
		ConversationID: conv.ID,
		SenderRole:     entity.SenderRoleUser,
		SenderID:       "user-1",
		Body:           "late",
		CreatedAt:      now.Add(-time.Second),
	}))

	stored, err := f.chatRepo.GetConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "newer", stored.LastMessage)
	require.NotNil(t, stored.LastMessageAt)
	assert.True(t, stored.LastMessageAt.Equal(now))

	all, err := f.uc.ListMessages(ctx, userPrincipal("user-1"), conv.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "late", all[0].Body)
	assert.Equal(t, "newer", all[1].Body)
}

func TestSendMessageRejectsEmptyBody(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := f.uc.SendMessage(ctx, userPrincipal("user-1"), conv.ID, body)
		require.Error(t, err)
		assert.True(t, errors.Is(err, "BAD_REQUEST"))
	}
}

func TestSendMessageUnknownConversation(t *testing.T) {
	f := newChatFixture()

	_, err := f.uc.SendMessage(context.Background(), userPrincipal("user-1"), "missing", "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestParticipantIsolation(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	outsiders := []entity.Principal{
		userPrincipal("user-2"),
		vendorPrincipal("vendor-2"),
		adminPrincipal(),
	}

	for _, p := range outsiders {
		_, err := f.uc.SendMessage(ctx, p, conv.ID, "let me in")
		require.Error(t, err)
		assert.True(t, errors.Is(err, "FORBIDDEN"), "send as %s/%s", p.Kind, p.ID)

		_, err = f.uc.ListMessages(ctx, p, conv.ID, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, "FORBIDDEN"), "list as %s/%s", p.Kind, p.ID)
	}
}

func TestListMessagesOrderingAndPolling(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	bodies := []string{"one", "two", "three", "four"}
	var sent []*entity.Message
	for _, body := range bodies {
		msg, err := f.uc.SendMessage(ctx, userPrincipal("user-1"), conv.ID, body)
		require.NoError(t, err)
		sent = append(sent, msg)
		time.Sleep(time.Millisecond)
	}

	all, err := f.uc.ListMessages(ctx, userPrincipal("user-1"), conv.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, len(bodies))
	for i, msg := range all {
		assert.Equal(t, bodies[i], msg.Body)
		if i > 0 {
			assert.False(t, msg.CreatedAt.Before(all[i-1].CreatedAt))
		}
	}

	// Strictly-greater filter: polling from message two's timestamp must
	// return three and four only, and repeat identically absent new writes.
	after := sent[1].CreatedAt
	newer, err := f.uc.ListMessages(ctx, vendorPrincipal("vendor-1"), conv.ID, &after)
	require.NoError(t, err)
	require.Len(t, newer, 2)
	assert.Equal(t, "three", newer[0].Body)
	assert.Equal(t, "four", newer[1].Body)

	again, err := f.uc.ListMessages(ctx, vendorPrincipal("vendor-1"), conv.ID, &after)
	require.NoError(t, err)
	assert.Equal(t, newer, again)
}

func TestModerationGate(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	_, err = f.uc.SendMessage(ctx, userPrincipal("user-1"), conv.ID, "before block")
	require.NoError(t, err)

	blocked, err := f.uc.BlockConversation(ctx, vendorPrincipal("vendor-1"), conv.ID)
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)
	assert.Equal(t, entity.BlockedByVendor, blocked.BlockedBy)

	// Both participants are locked out of writes.
	for _, p := range []entity.Principal{userPrincipal("user-1"), vendorPrincipal("vendor-1")} {
		_, err := f.uc.SendMessage(ctx, p, conv.ID, "while blocked")
		require.Error(t, err)
		assert.True(t, errors.Is(err, "FORBIDDEN"))
	}

	// History stays readable.
	messages, err := f.uc.ListMessages(ctx, userPrincipal("user-1"), conv.ID, nil)
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	unblocked, err := f.uc.UnblockConversation(ctx, vendorPrincipal("vendor-1"), conv.ID)
	require.NoError(t, err)
	assert.False(t, unblocked.Blocked)
	assert.Empty(t, unblocked.BlockedBy)

	_, err = f.uc.SendMessage(ctx, userPrincipal("user-1"), conv.ID, "after unblock")
	require.NoError(t, err)
}

func TestModerationActorRules(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	// A user cannot moderate at all.
	_, err = f.uc.BlockConversation(ctx, userPrincipal("user-1"), conv.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	// A vendor cannot moderate somebody else's conversation.
	_, err = f.uc.BlockConversation(ctx, vendorPrincipal("vendor-2"), conv.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	// An admin can moderate any conversation, and the actor is recorded.
	blocked, err := f.uc.BlockConversation(ctx, adminPrincipal(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BlockedByAdmin, blocked.BlockedBy)
}

func TestConversationListsAreScopedAndEnriched(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	first, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)
	second, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-2", ProductID: "product-2"})
	require.NoError(t, err)
	_, err = f.uc.StartConversation(ctx, "user-2", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)

	// Messaging the second conversation makes it the most recent; the
	// untouched first conversation (no messages) sorts last.
	_, err = f.uc.SendMessage(ctx, userPrincipal("user-1"), second.ID, "hello camera shop")
	require.NoError(t, err)

	userChats, err := f.uc.ListUserConversations(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, userChats, 2)
	assert.Equal(t, second.ID, userChats[0].ID)
	assert.Equal(t, "Tech Corner", userChats[0].CounterpartName)
	assert.Equal(t, "Camera", userChats[0].ProductTitle)
	assert.Equal(t, first.ID, userChats[1].ID)
	assert.Equal(t, "Gadget Hub", userChats[1].CounterpartName)
	assert.Equal(t, "Used Laptop", userChats[1].ProductTitle)

	vendorChats, err := f.uc.ListVendorConversations(ctx, "vendor-1")
	require.NoError(t, err)
	require.Len(t, vendorChats, 2)
	for _, chat := range vendorChats {
		assert.Equal(t, "vendor-1", chat.VendorID)
		assert.Equal(t, "Used Laptop", chat.ProductTitle)
	}
}

func TestUserVendorExchangeScenario(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.uc.StartConversation(ctx, "user-1", StartConversationInput{VendorID: "vendor-1", ProductID: "product-1"})
	require.NoError(t, err)
	assert.False(t, conv.Blocked)

	question, err := f.uc.SendMessage(ctx, userPrincipal("user-1"), conv.ID, "Is this available?")
	require.NoError(t, err)

	stored, err := f.chatRepo.GetConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Is this available?", stored.LastMessage)

	time.Sleep(time.Millisecond)
	reply, err := f.uc.SendMessage(ctx, vendorPrincipal("vendor-1"), conv.ID, "Yes")
	require.NoError(t, err)
	assert.Equal(t, entity.SenderRoleVendor, reply.SenderRole)

	after := question.CreatedAt
	newer, err := f.uc.ListMessages(ctx, userPrincipal("user-1"), conv.ID, &after)
	require.NoError(t, err)
	require.Len(t, newer, 1)
	assert.Equal(t, "Yes", newer[0].Body)
}
