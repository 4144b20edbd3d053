package models

import (
	"strings"
	"time"
)

// Product conditions.
const (
	ConditionNew  = "new"
	ConditionUsed = "used"
)

// MaxProductImages caps the number of pictures attached to a listing.
const MaxProductImages = 4

// DefaultProductImage is shown for listings without pictures.
const DefaultProductImage = "images/products/default.png"

// Category is a named product tag managed by administrators.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:100;not null" json:"name"`
}

// Product is a listing. It only shows in the catalog once IsVerified is set.
type Product struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	User             *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	CategoryID       uint      `gorm:"index;not null" json:"category_id"`
	Category         *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Price            int64     `gorm:"not null;index" json:"price"`
	Condition        string    `gorm:"size:10;not null" json:"condition"`
	ReasonForSelling string    `gorm:"size:1000" json:"reason_for_selling"`
	Description      string    `gorm:"type:text" json:"description"`
	Location         string    `gorm:"size:100;index" json:"location"`
	FullAddress      string    `gorm:"size:500" json:"full_address"`
	Images           []string  `gorm:"serializer:json;type:text" json:"images"`
	IsVerified       bool      `gorm:"not null;default:false;index" json:"is_verified"`
	PaymentProof     string    `gorm:"size:500" json:"payment_proof,omitempty"`
}

// GetUserID returns the owning user's ID.
func (p *Product) GetUserID() uint {
	return p.UserID
}

// CoverImage returns the first picture or the default one.
func (p Product) CoverImage() string {
	if len(p.Images) == 0 {
		return DefaultProductImage
	}
	return p.Images[0]
}

// CategoryName tolerates a dangling category reference.
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// ParseCondition normalises form input. The Indonesian labels used by the
// sell form are accepted as well.
func ParseCondition(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ConditionNew, "baru":
		return ConditionNew, true
	case ConditionUsed, "bekas":
		return ConditionUsed, true
	}
	return "", false
}

// Offer is a bid by a buyer on a product.
type Offer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProductID  uint      `gorm:"index;not null" json:"product_id"`
	Product    *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	OfferPrice float64   `gorm:"not null" json:"offer_price"`
}

// GetUserID returns the bidder's ID.
func (o *Offer) GetUserID() uint {
	return o.UserID
}
