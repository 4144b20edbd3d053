package store

import (
	"context"
	"time"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/models"
	"gorm.io/gorm"
)

// Users persists accounts.
type Users struct {
	db *gorm.DB
}

// Create inserts u. A taken username or email is a Conflict.
func (s *Users) Create(ctx context.Context, u *models.User) error {
	if u.Membership == "" {
		u.Membership = models.MembershipNone
	}
	if u.ProfilePicturePath == "" {
		u.ProfilePicturePath = models.DefaultProfilePicture
	}
	return mapErr("user.create", s.db.WithContext(ctx).Create(u).Error)
}

func (s *Users) ByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, mapErr("user.get", err)
	}
	return &u, nil
}

func (s *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, mapErr("user.get_by_email", err)
	}
	return &u, nil
}

// EmailTaken reports whether any account uses email.
func (s *Users) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, mapErr("user.email_taken", err)
	}
	return n > 0, nil
}

// ProfileUpdate carries the self-service profile fields.
type ProfileUpdate struct {
	Username  string
	Phone     string
	Address   string
	Birthdate *time.Time
}

func (s *Users) UpdateProfile(ctx context.Context, id uint, p ProfileUpdate) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"username":  p.Username,
		"phone":     p.Phone,
		"address":   p.Address,
		"birthdate": p.Birthdate,
	})
	return rowsOrNotFound("user.update_profile", res)
}

func (s *Users) SetPicture(ctx context.Context, id uint, path string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("profile_picture_path", path)
	return rowsOrNotFound("user.set_picture", res)
}

func (s *Users) SetPassword(ctx context.Context, id uint, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	return rowsOrNotFound("user.set_password", res)
}

// SetAdmin promotes or demotes id.
func (s *Users) SetAdmin(ctx context.Context, id uint, admin bool) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", admin)
	return rowsOrNotFound("user.set_admin", res)
}

// SetMembership changes the tier only if the row is still at version and
// bumps the version. A stale version is a Conflict.
func (s *Users) SetMembership(ctx context.Context, id uint, version int, tier string, expiresAt *time.Time) error {
	if !models.IsValidMembership(tier) {
		return apperr.Validation("user.set_membership", "Invalid membership type.")
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"membership":            tier,
			"membership_expires_at": expiresAt,
			"version":               gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return mapErr("user.set_membership", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("user.set_membership", "The user was modified concurrently. Please try again.", nil)
	}
	return nil
}

// List returns every user, oldest first.
func (s *Users) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, mapErr("user.list", err)
	}
	return users, nil
}

func (s *Users) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, mapErr("user.count", err)
}

func (s *Users) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	return rowsOrNotFound("user.delete", res)
}

// ResetTokens persists password reset links.
type ResetTokens struct {
	db *gorm.DB
}

func (s *ResetTokens) Create(ctx context.Context, t *models.PasswordResetToken) error {
	return mapErr("reset_token.create", s.db.WithContext(ctx).Create(t).Error)
}

func (s *ResetTokens) ByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&t).Error; err != nil {
		return nil, mapErr("reset_token.get", err)
	}
	return &t, nil
}

// DeleteForUser removes every outstanding token of userID.
func (s *ResetTokens) DeleteForUser(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PasswordResetToken{}).Error
	return mapErr("reset_token.delete", err)
}

func rowsOrNotFound(op string, res *gorm.DB) error {
	if res.Error != nil {
		return mapErr(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return &apperr.Error{Kind: apperr.KindNotFound, Op: op}
	}
	return nil
}
