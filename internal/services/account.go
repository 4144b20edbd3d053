package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/mailer"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/storage"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/validation"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

const minPasswordLen = 6

// AccountService covers registration, login, password reset and profile edits.
type AccountService struct {
	store   *store.Store
	mailer  mailer.Mailer
	files   FileStore
	baseURL string
	now     func() time.Time
	cost    int
}

func NewAccountService(s *store.Store, m mailer.Mailer, files FileStore, baseURL string) *AccountService {
	return &AccountService{
		store:   s,
		mailer:  m,
		files:   files,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		cost:    bcrypt.DefaultCost,
	}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Username        string     `form:"username" validate:"required,max=100"`
	Email           string     `form:"email" validate:"required,email,max=255"`
	Password        string     `form:"password" validate:"required,min=6"`
	ConfirmPassword string     `form:"confirm_password"`
	Phone           string     `form:"phone" validate:"max=50"`
	Address         string     `form:"address" validate:"max=500"`
	Birthdate       *time.Time `form:"-"`
}

// Register creates an account with membership none.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "account.register"
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.Password != in.ConfirmPassword {
		return nil, apperr.Validation(op, "Passwords do not match")
	}
	if v := validation.Struct(in); !v.Empty() {
		return nil, apperr.Validation(op, violationMessage(v))
	}

	taken, err := s.store.Users.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict(op, "Email already exists", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   string(hash),
		Phone:      in.Phone,
		Address:    in.Address,
		Birthdate:  in.Birthdate,
		Membership: models.MembershipNone,
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		if apperr.IsConflict(err) {
			return nil, apperr.Conflict(op, "Username already exists", err)
		}
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	const op = "account.login"
	u, err := s.store.Users.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound(op, "User not found!")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, apperr.Unauthorized(op, "Invalid password!")
	}
	return u, nil
}

// RequestPasswordReset stores a one-hour token and mails the reset link.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "account.forgot_password"
	email = normalizeEmail(email)
	u, err := s.store.Users.ByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound(op, "User not found")
		}
		return err
	}

	tok := &models.PasswordResetToken{
		UserID:    u.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(ResetTokenTTL),
	}
	if err := s.store.ResetTokens.Create(ctx, tok); err != nil {
		return err
	}

	msg := mailer.Message{
		To:      u.Email,
		Subject: "Password Reset",
		Body:    "To reset your password, please click the link: " + s.ResetLink(tok.Token),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return &apperr.Error{Op: op, Message: "Error sending email. Please try again.", Err: err}
	}
	return nil
}

// ResetLink is the absolute URL mailed to the user.
func (s *AccountService) ResetLink(token string) string {
	return s.baseURL + "/reset/" + token
}

// CheckResetToken returns the token if it exists and has not expired.
func (s *AccountService) CheckResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	const op = "account.reset_token"
	t, err := s.store.ResetTokens.ByToken(ctx, token)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound(op, "Invalid token")
		}
		return nil, err
	}
	if t.Expired(s.now()) {
		return nil, apperr.Validation(op, "Invalid token")
	}
	return t, nil
}

// ResetPassword sets a new password and burns every token of the user.
func (s *AccountService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	const op = "account.reset_password"
	if password != confirm {
		return apperr.Validation(op, "Passwords do not match")
	}
	if len(password) < minPasswordLen {
		return apperr.Validation(op, "Password must be at least 6 characters.")
	}
	t, err := s.CheckResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.Users.SetPassword(ctx, t.UserID, string(hash)); err != nil {
			return err
		}
		return tx.ResetTokens.DeleteForUser(ctx, t.UserID)
	})
}

// AdminOutcome reports what EnsureAdmin did.
type AdminOutcome int

const (
	AdminSkipped AdminOutcome = iota
	AdminCreated
	AdminUpdated
	AdminUnchanged
)

// EnsureAdmin creates the bootstrap administrator or re-hashes its
// password when it changed. Empty credentials skip the step.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) (AdminOutcome, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return AdminSkipped, nil
	}
	hash := func() (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		return string(b), err
	}

	u, err := s.store.Users.ByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		h, err := hash()
		if err != nil {
			return AdminSkipped, fmt.Errorf("hash admin password: %w", err)
		}
		now := s.now()
		admin := &models.User{
			Username:   "Admin",
			Email:      email,
			Password:   h,
			IsAdmin:    true,
			Phone:      "0000000000",
			Address:    "Admin Address",
			Birthdate:  &now,
			Membership: models.MembershipGold,
		}
		if err := s.store.Users.Create(ctx, admin); err != nil {
			return AdminSkipped, err
		}
		return AdminCreated, nil
	}
	if err != nil {
		return AdminSkipped, err
	}

	outcome := AdminUnchanged
	if !u.IsAdmin {
		if err := s.store.Users.SetAdmin(ctx, u.ID, true); err != nil {
			return AdminSkipped, err
		}
		outcome = AdminUpdated
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		h, err := hash()
		if err != nil {
			return AdminSkipped, fmt.Errorf("hash admin password: %w", err)
		}
		if err := s.store.Users.SetPassword(ctx, u.ID, h); err != nil {
			return AdminSkipped, err
		}
		outcome = AdminUpdated
	}
	return outcome, nil
}

// ProfileInput is the profile edit form.
type ProfileInput struct {
	Username  string `form:"username" validate:"required,max=100"`
	Phone     string `form:"phone" validate:"max=50"`
	Address   string `form:"address" validate:"max=500"`
	Birthdate string `form:"birthdate" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateProfile applies the self-service profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) error {
	const op = "account.update_profile"
	in.Username = strings.TrimSpace(in.Username)
	if v := validation.Struct(in); !v.Empty() {
		return apperr.Validation(op, violationMessage(v))
	}
	birth, err := ParseDate(in.Birthdate)
	if err != nil {
		return apperr.Validation(op, "Invalid birthdate.")
	}
	err = s.store.Users.UpdateProfile(ctx, userID, store.ProfileUpdate{
		Username:  in.Username,
		Phone:     in.Phone,
		Address:   in.Address,
		Birthdate: birth,
	})
	if apperr.IsConflict(err) {
		return apperr.Conflict(op, "Username already exists", err)
	}
	if apperr.IsNotFound(err) {
		return apperr.NotFound(op, "User not found")
	}
	return err
}

// UpdatePicture stores a new profile picture and deletes the previous one.
func (s *AccountService) UpdatePicture(ctx context.Context, userID uint, up Upload) error {
	const op = "account.update_picture"
	u, err := s.store.Users.ByID(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound(op, "User not found")
		}
		return err
	}
	ref, err := saveUpload(ctx, s.files, storage.DirPictures, up)
	if err != nil {
		return uploadError(op, err)
	}
	if err := s.store.Users.SetPicture(ctx, userID, ref); err != nil {
		removeAll(ctx, s.files, []string{ref})
		return err
	}
	removeAll(ctx, s.files, []string{u.ProfilePicturePath})
	return nil
}

// ParseDate reads a yyyy-mm-dd form value. Empty means unset.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func violationMessage(v validation.Violations) string {
	return "Please check the form (" + v.First() + ")."
}

func uploadError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "Unsupported file type.", Err: err}
	case errors.Is(err, storage.ErrTooLarge):
		return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "File is too large.", Err: err}
	}
	return &apperr.Error{Kind: apperr.KindStore, Op: op, Message: "Could not store the uploaded file.", Err: err}
}
