package entity

import (
	"time"

	"github.com/google/uuid"
)

// Moderation actors recorded on a blocked conversation.
const (
	BlockedByAdmin  = "admin"
	BlockedByVendor = "vendor"
)

// Conversation is the single thread tying one user, one vendor and one product
// together. At most one conversation exists per (user, vendor, product) triple.
type Conversation struct {
	ID        string `json:"id" firestore:"id"`
	UserID    string `json:"user_id" firestore:"userId"`
	VendorID  string `json:"vendor_id" firestore:"vendorId"`
	ProductID string `json:"product_id" firestore:"productId"`

	// Preview of the most recent accepted message, shown in chat lists.
	LastMessage   string     `json:"last_message" firestore:"lastMessage"`
	LastMessageAt *time.Time `json:"last_message_at" firestore:"lastMessageAt"`

	// Moderation state. A blocked conversation rejects new messages but
	// stays readable for both participants.
	Blocked   bool   `json:"blocked" firestore:"blocked"`
	BlockedBy string `json:"blocked_by,omitempty" firestore:"blockedBy,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

var conversationNamespace = uuid.MustParse("6f1e9b52-8c7d-4a31-9b3e-2e5f0c4d8a17")

// ConversationID derives the id for a triple deterministically, so the same
// (user, vendor, product) always addresses the same record and a duplicate
// create fails on the storage layer's uniqueness of document ids.
func ConversationID(userID, vendorID, productID string) string {
	return uuid.NewSHA1(conversationNamespace, []byte(userID+"/"+vendorID+"/"+productID)).String()
}

// HasParticipant reports whether the principal is the conversation's user or
// vendor. Authorization is re-derived from this on every operation.
func (c *Conversation) HasParticipant(p Principal) bool {
	switch p.Kind {
	case PrincipalUser:
		return p.ID == c.UserID
	case PrincipalVendor:
		return p.ID == c.VendorID
	default:
		return false
	}
}
