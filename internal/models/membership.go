package models

import (
	"strings"
	"time"
)

// Payment states.
const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
)

// Tier describes a purchasable membership level.
type Tier struct {
	Key   string
	Label string
	Price string
}

// Tiers lists the purchasable memberships in display order.
var Tiers = []Tier{
	{Key: MembershipBronze, Label: "Bronze", Price: "Rp24.900"},
	{Key: MembershipSilver, Label: "Silver", Price: "Rp49.900"},
	{Key: MembershipGold, Label: "Gold", Price: "Rp59.900"},
}

// LookupTier finds a purchasable tier by key, case-insensitively.
func LookupTier(key string) (Tier, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, t := range Tiers {
		if t.Key == key {
			return t, true
		}
	}
	return Tier{}, false
}

// MembershipPayment is a request to upgrade a user's membership.
type MembershipPayment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Tier         string    `gorm:"size:20;not null" json:"tier"`
	ProductName  string    `gorm:"size:100;not null" json:"product_name"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	Phone        string    `gorm:"size:50;not null" json:"phone"`
	Address      string    `gorm:"size:500" json:"address"`
	Province     string    `gorm:"size:100;not null" json:"province"`
	City         string    `gorm:"size:100;not null" json:"city"`
	District     string    `gorm:"size:100;not null" json:"district"`
	PostalCode   string    `gorm:"size:10" json:"postal_code,omitempty"`
	PaymentProof string    `gorm:"size:500" json:"payment_proof,omitempty"`
	Status       string    `gorm:"size:20;not null;default:pending" json:"status"`
	Version      int       `gorm:"not null;default:0" json:"-"`
}

// GetUserID returns the applicant's ID.
func (m *MembershipPayment) GetUserID() uint {
	return m.UserID
}

// Approved reports whether an administrator has approved the payment.
func (m *MembershipPayment) Approved() bool {
	return m.Status == PaymentApproved
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&User{},
		&PasswordResetToken{},
		&Category{},
		&Product{},
		&Offer{},
		&MembershipPayment{},
	}
}
