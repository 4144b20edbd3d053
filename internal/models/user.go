package models

import (
	"strings"
	"time"
)

// Membership tiers a user can hold.
const (
	MembershipNone   = "none"
	MembershipBronze = "bronze"
	MembershipSilver = "silver"
	MembershipGold   = "gold"
)

// DefaultProfilePicture is used until the user uploads their own.
const DefaultProfilePicture = "images/pictures/default.png"

// User is a marketplace account.
type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Username            string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email               string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password            string     `gorm:"size:255;not null" json:"-"` // bcrypt hash
	IsAdmin             bool       `gorm:"not null;default:false" json:"is_admin"`
	Phone               string     `gorm:"size:50" json:"phone"`
	Address             string     `gorm:"size:500" json:"address"`
	Birthdate           *time.Time `json:"birthdate,omitempty"`
	Membership          string     `gorm:"size:20;not null;default:none" json:"membership"`
	MembershipExpiresAt *time.Time `json:"membership_expires_at,omitempty"`
	ProfilePicturePath  string     `gorm:"size:500" json:"profile_picture_path"`
	// Version is bumped on every membership change so concurrent approvals
	// can detect each other.
	Version int `gorm:"not null;default:0" json:"-"`
}

// IsValidMembership reports whether tier is one of the known tiers, including none.
func IsValidMembership(tier string) bool {
	switch tier {
	case MembershipNone, MembershipBronze, MembershipSilver, MembershipGold:
		return true
	}
	return false
}

// MembershipActive reports whether the user holds a paid tier at t.
// A nil expiry on a paid tier means permanent.
func (u *User) MembershipActive(t time.Time) bool {
	if u.Membership == "" || u.Membership == MembershipNone {
		return false
	}
	return u.MembershipExpiresAt == nil || t.Before(*u.MembershipExpiresAt)
}

// PictureOrDefault returns the stored picture path or the shared default.
func (u User) PictureOrDefault() string {
	if strings.TrimSpace(u.ProfilePicturePath) == "" {
		return DefaultProfilePicture
	}
	return u.ProfilePicturePath
}

// PasswordResetToken is a one-shot credential reset link.
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint      `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

// Expired reports whether the token can no longer be used at t.
func (t *PasswordResetToken) Expired(at time.Time) bool {
	return !at.Before(t.ExpiresAt)
}
