package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"rebazar/internal/adapter/api/middleware"
	"rebazar/internal/domain/entity"
	"rebazar/internal/usecase"
	"rebazar/pkg/errors"
	"rebazar/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startChatRequest struct {
	VendorID  string `json:"vendor_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

func principalFrom(c echo.Context) (entity.Principal, error) {
	principal, ok := c.Get(middleware.PrincipalKey).(entity.Principal)
	if !ok {
		return entity.Principal{}, errors.Unauthorized("Authentication required", nil)
	}
	return principal, nil
}

// StartChat creates or returns the user's conversation for a vendor/product
// pair.
func (h *ChatHandler) StartChat(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req startChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request payload", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.chatUseCase.StartConversation(c.Request().Context(), principal.ID, usecase.StartConversationInput{
		VendorID:  req.VendorID,
		ProductID: req.ProductID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

// GetUserChats lists the authenticated user's conversations.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	chats, err := h.chatUseCase.ListUserConversations(c.Request().Context(), principal.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chats)
}

// GetVendorChats lists the authenticated vendor's conversations.
func (h *ChatHandler) GetVendorChats(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	chats, err := h.chatUseCase.ListVendorConversations(c.Request().Context(), principal.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chats)
}

// SendMessage appends a message to a conversation on behalf of the
// authenticated participant.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request payload", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), principal, c.Param("id"), req.Message)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// GetMessages returns a conversation's messages in creation order. An
// optional RFC3339 `after` query parameter restricts the result to messages
// created strictly later, which is how clients poll for new messages.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var after *time.Time
	if afterStr := c.QueryParam("after"); afterStr != "" {
		parsed, err := time.Parse(time.RFC3339Nano, afterStr)
		if err != nil {
			return response.Error(c, errors.BadRequest("after must be an RFC3339 timestamp", err))
		}
		after = &parsed
	}

	messages, err := h.chatUseCase.ListMessages(c.Request().Context(), principal, c.Param("id"), after)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// BlockChat disables message writes on a conversation.
func (h *ChatHandler) BlockChat(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	conv, err := h.chatUseCase.BlockConversation(c.Request().Context(), principal, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

// UnblockChat re-opens a blocked conversation.
func (h *ChatHandler) UnblockChat(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	conv, err := h.chatUseCase.UnblockConversation(c.Request().Context(), principal, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}
