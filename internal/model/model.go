// Package model defines the client-side DTOs exchanged with the webhook
// backend. None of these entities are owned by this app; the backend assigns
// every id.
package model

import "strings"

// Credentials is the persisted credential record identifying the session.
// Token and UserID are always set and cleared together.
type Credentials struct {
	Token  string
	UserID string
	APIKey string
}

// Product is a storefront product as returned by the backend. Up to four
// image URLs are carried in fixed slots.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	SellerID    string  `json:"seller_id"`
	ImageURL1   string  `json:"image_url_1,omitempty"`
	ImageURL2   string  `json:"image_url_2,omitempty"`
	ImageURL3   string  `json:"image_url_3,omitempty"`
	ImageURL4   string  `json:"image_url_4,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// statusSynonyms maps backend status labels, including the Arabic ones some
// webhook flows emit, onto the canonical values.
var statusSynonyms = map[string]OrderStatus{
	"pending":      StatusPending,
	"new":          StatusPending,
	"قيد الانتظار": StatusPending,
	"معلق":         StatusPending,
	"confirmed":    StatusConfirmed,
	"مؤكد":         StatusConfirmed,
	"delivered":    StatusDelivered,
	"تم التوصيل":   StatusDelivered,
	"تم التسليم":   StatusDelivered,
	"cancelled":    StatusCancelled,
	"canceled":     StatusCancelled,
	"ملغي":         StatusCancelled,
}

// ParseOrderStatus normalizes a backend status label. Unknown labels map to
// pending so a renamed status never hides an order.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return StatusPending, false
	}
	return st, true
}

// Valid reports whether the status is one of the canonical values.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is a customer order as returned by the backend.
type Order struct {
	ID              string `json:"id"`
	ProductName     string `json:"product_name"`
	Phone           string `json:"phone"`
	DeliveryAddress string `json:"delivery_address"`
	Status          string `json:"status"`
	Quantity        int    `json:"quantity"`
	CreatedAt       string `json:"created_at"`
}

// CanonicalStatus returns the normalized status of the order.
func (o Order) CanonicalStatus() OrderStatus {
	st, _ := ParseOrderStatus(o.Status)
	return st
}

// PendingImage is a transient image selected for submission: created by the
// picker, consumed by the base64/upload pipeline, then discarded.
type PendingImage struct {
	URI    string // local file path
	Name   string
	Type   string // image/jpeg or image/png
	Base64 string // data:<mime>;base64,... once encoded
}
