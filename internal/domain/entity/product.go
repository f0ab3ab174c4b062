package entity

import "time"

type Product struct {
	ID          string  `json:"id" firestore:"id"`
	VendorID    string  `json:"vendor_id" firestore:"vendorId"`
	Title       string  `json:"title" firestore:"title"`
	Description string  `json:"description,omitempty" firestore:"description,omitempty"`
	Price       float64 `json:"price" firestore:"price"`
	Condition   string  `json:"condition,omitempty" firestore:"condition,omitempty"`
	City        string  `json:"city,omitempty" firestore:"city,omitempty"`
	Status      string  `json:"status" firestore:"status"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
