package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/storage"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/validation"
)

// Approval durations accepted from the admin screen.
const (
	DurationOneMonth  = "1 month"
	DurationPermanent = "permanent"
)

// MembershipService runs the tier purchase flow.
type MembershipService struct {
	store *store.Store
	files FileStore
	now   func() time.Time
}

func NewMembershipService(s *store.Store, files FileStore) *MembershipService {
	return &MembershipService{store: s, files: files, now: time.Now}
}

// ApplyInput is the buyer details form.
type ApplyInput struct {
	FirstName  string `form:"namaDepan" validate:"required,max=100"`
	LastName   string `form:"namaBelakang" validate:"max=100"`
	Phone      string `form:"nomorTelepon" validate:"required,max=50"`
	Address    string `form:"alamatDomisili" validate:"max=500"`
	Province   string `form:"provinsiDomisili" validate:"required,max=100"`
	City       string `form:"kotaKabupatenDomisili" validate:"required,max=100"`
	District   string `form:"kecamatanDomisili" validate:"required,max=100"`
	PostalCode string `form:"kodePosDomisili" validate:"max=10"`
}

// Apply opens a pending payment for tierKey.
func (s *MembershipService) Apply(ctx context.Context, userID uint, tierKey string, in ApplyInput) (*models.MembershipPayment, error) {
	const op = "membership.apply"
	tier, ok := models.LookupTier(tierKey)
	if !ok {
		return nil, apperr.Validation(op, "Invalid membership type.")
	}
	if v := validation.Struct(in); !v.Empty() {
		return nil, apperr.Validation(op, violationMessage(v))
	}
	m := &models.MembershipPayment{
		UserID:      userID,
		Tier:        tier.Key,
		ProductName: tier.Label + " Membership",
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		Province:    strings.TrimSpace(in.Province),
		City:        strings.TrimSpace(in.City),
		District:    strings.TrimSpace(in.District),
		PostalCode:  strings.TrimSpace(in.PostalCode),
	}
	if err := s.store.Memberships.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Payment loads one payment with its applicant.
func (s *MembershipService) Payment(ctx context.Context, id uint) (*models.MembershipPayment, error) {
	m, err := s.store.Memberships.ByID(ctx, id)
	if apperr.IsNotFound(err) {
		return nil, apperr.NotFound("membership.payment", "Membership payment not found.")
	}
	return m, err
}

// AttachProof stores the transfer receipt of a pending payment.
func (s *MembershipService) AttachProof(ctx context.Context, m *models.MembershipPayment, up Upload) error {
	const op = "membership.attach_proof"
	if m.Approved() {
		return apperr.Conflict(op, "This membership payment was already processed.", nil)
	}
	ref, err := saveUpload(ctx, s.files, storage.DirPayments, up)
	if err != nil {
		return uploadError(op, err)
	}
	if err := s.store.Memberships.SetProof(ctx, m.ID, ref); err != nil {
		removeAll(ctx, s.files, []string{ref})
		return err
	}
	removeAll(ctx, s.files, []string{m.PaymentProof})
	m.PaymentProof = ref
	return nil
}

// Expiry turns an approval duration into the membership expiry. A nil
// time means the tier never lapses.
func Expiry(duration string, now time.Time) (*time.Time, bool) {
	switch strings.ToLower(strings.TrimSpace(duration)) {
	case DurationOneMonth:
		t := now.AddDate(0, 1, 0)
		return &t, true
	case DurationPermanent:
		return nil, true
	}
	return nil, false
}

// Approve grants tierKey to the applicant. Both rows are version checked
// inside one transaction, so a concurrent approval or membership change
// fails with a Conflict and leaves nothing half applied.
func (s *MembershipService) Approve(ctx context.Context, paymentID uint, tierKey, duration string) error {
	const op = "membership.approve"
	tier, ok := models.LookupTier(tierKey)
	if !ok {
		return apperr.Validation(op, "Invalid membership type.")
	}
	expires, ok := Expiry(duration, s.now())
	if !ok {
		return apperr.Validation(op, "Invalid membership duration.")
	}
	return s.store.Tx(ctx, func(tx *store.Store) error {
		m, err := tx.Memberships.ByID(ctx, paymentID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return apperr.NotFound(op, "Membership payment not found.")
			}
			return err
		}
		u, err := tx.Users.ByID(ctx, m.UserID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return apperr.NotFound(op, "User not found")
			}
			return err
		}
		if err := tx.Memberships.MarkApproved(ctx, m.ID, m.Version, tier.Key); err != nil {
			return err
		}
		return tx.Users.SetMembership(ctx, u.ID, u.Version, tier.Key, expires)
	})
}

// List returns every payment for the admin screen.
func (s *MembershipService) List(ctx context.Context) ([]models.MembershipPayment, error) {
	return s.store.Memberships.All(ctx)
}

// Delete removes a payment and its receipt.
func (s *MembershipService) Delete(ctx context.Context, id uint) error {
	m, err := s.Payment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Memberships.Delete(ctx, id); err != nil {
		return err
	}
	removeAll(ctx, s.files, []string{m.PaymentProof})
	return nil
}
