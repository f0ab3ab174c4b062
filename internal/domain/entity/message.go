package entity

import "time"

const (
	SenderRoleUser   = "user"
	SenderRoleVendor = "vendor"
)

// Message is an immutable entry in a conversation's ledger. SenderID always
// matches the parent conversation's user or vendor id per SenderRole.
type Message struct {
	ID             string `json:"id" firestore:"id"`
	ConversationID string `json:"conversation_id" firestore:"conversationId"`
	SenderRole     string `json:"sender_role" firestore:"senderRole"`
	SenderID       string `json:"sender_id" firestore:"senderId"`
	Body           string `json:"message" firestore:"message"`

	// Reserved for read receipts. Nothing updates these after creation yet.
	SeenByUser   bool `json:"seen_by_user" firestore:"seenByUser"`
	SeenByVendor bool `json:"seen_by_vendor" firestore:"seenByVendor"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
