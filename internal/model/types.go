// Package model contains the domain types shared across packages.
package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a referenced record is absent.
// Callers compare with errors.Is; stores may wrap it with context.
var ErrNotFound = errors.New("not found")

// Role distinguishes buyers from marketplace administrators. Roles are fixed
// at signup; there is no promotion path.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account in the marketplace.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Note is a study-note PDF listed in the catalog. ObjectKey points at the
// private blob and is never serialized to clients.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	ObjectKey   string    `json:"-"`
	Preview     string    `json:"preview,omitempty"`
	Category    string    `json:"category,omitempty"`
	Semester    string    `json:"semester,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OrderStatus enumerates the approval lifecycle of a purchase.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusApproved OrderStatus = "approved"
	StatusRejected OrderStatus = "rejected"
)

// ParseOrderStatus validates a raw status value. Anything outside the three
// known states is refused rather than passed through.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(raw) {
	case StatusPending, StatusApproved, StatusRejected:
		return OrderStatus(raw), true
	}
	return "", false
}

// FreeAccessProof is the reserved proof reference recorded on orders created
// while the marketplace ran in free mode. No screenshot backs it.
const FreeAccessProof = "FREE_ACCESS"

// Order records one purchase attempt. Amount is a snapshot of the note price
// at creation time and is never recomputed. Only Status (and UpdatedAt) may
// change after creation; rows are kept forever as an audit trail.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	NoteID     string      `json:"noteId"`
	Amount     float64     `json:"amount"`
	ProofKey   string      `json:"-"`
	Status     OrderStatus `json:"status"`
	Superseded bool        `json:"-"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// UserOrder joins an order with the public fields of its note for the
// buyer-facing listing.
type UserOrder struct {
	Order
	NoteTitle       string `json:"noteTitle"`
	NoteDescription string `json:"noteDescription"`
}

// AdminOrder joins an order with buyer and note details for admin review.
type AdminOrder struct {
	Order
	UserName  string  `json:"userName"`
	UserEmail string  `json:"userEmail"`
	NoteTitle string  `json:"noteTitle"`
	NotePrice float64 `json:"notePrice"`
}

// AccessMode is the global paid/free switch.
type AccessMode string

const (
	ModeFree AccessMode = "free"
	ModePaid AccessMode = "paid"
)

// ParseAccessMode validates a raw mode value.
func ParseAccessMode(raw string) (AccessMode, bool) {
	switch AccessMode(raw) {
	case ModeFree, ModePaid:
		return AccessMode(raw), true
	}
	return "", false
}

// Defaults applied when the payment settings row is first created.
const (
	DefaultUPIID     = "lenkasriram1@ybl"
	DefaultPayeeName = "Sriram Lenka"
)

// PaymentSettings is the singleton marketplace configuration: the access
// mode plus the payee details shown to buyers in paid mode.
type PaymentSettings struct {
	Mode      AccessMode `json:"mode"`
	UPIID     string     `json:"upiId"`
	PayeeName string     `json:"payeeName"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
