package store

import (
	"context"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/models"
	"gorm.io/gorm"
)

// Memberships persists membership payment requests.
type Memberships struct {
	db *gorm.DB
}

func (s *Memberships) Create(ctx context.Context, m *models.MembershipPayment) error {
	if _, ok := models.LookupTier(m.Tier); !ok {
		return apperr.Validation("membership.create", "Invalid membership type.")
	}
	m.Status = models.PaymentPending
	return mapErr("membership.create", s.db.WithContext(ctx).Create(m).Error)
}

func (s *Memberships) ByID(ctx context.Context, id uint) (*models.MembershipPayment, error) {
	var m models.MembershipPayment
	if err := s.db.WithContext(ctx).Preload("User").First(&m, id).Error; err != nil {
		return nil, mapErr("membership.get", err)
	}
	return &m, nil
}

func (s *Memberships) SetProof(ctx context.Context, id uint, ref string) error {
	res := s.db.WithContext(ctx).Model(&models.MembershipPayment{}).Where("id = ?", id).Update("payment_proof", ref)
	return rowsOrNotFound("membership.set_proof", res)
}

// MarkApproved flips a pending payment at version to approved. A stale
// version or an already approved payment is a Conflict.
func (s *Memberships) MarkApproved(ctx context.Context, id uint, version int, tier string) error {
	res := s.db.WithContext(ctx).Model(&models.MembershipPayment{}).
		Where("id = ? AND version = ? AND status = ?", id, version, models.PaymentPending).
		Updates(map[string]any{
			"status":  models.PaymentApproved,
			"tier":    tier,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return mapErr("membership.approve", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("membership.approve", "This membership payment was already processed.", nil)
	}
	return nil
}

// All lists every payment with its applicant, newest first.
func (s *Memberships) All(ctx context.Context) ([]models.MembershipPayment, error) {
	var ms []models.MembershipPayment
	if err := s.db.WithContext(ctx).Preload("User").Order("id DESC").Find(&ms).Error; err != nil {
		return nil, mapErr("membership.all", err)
	}
	return ms, nil
}

func (s *Memberships) Delete(ctx context.Context, id uint) error {
	return rowsOrNotFound("membership.delete", s.db.WithContext(ctx).Delete(&models.MembershipPayment{}, id))
}

// CountPending returns the number of payments awaiting approval.
func (s *Memberships) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.MembershipPayment{}).
		Where("status = ?", models.PaymentPending).Count(&n).Error
	return n, mapErr("membership.count_pending", err)
}

// ByUser lists the payments of one applicant, newest first.
func (s *Memberships) ByUser(ctx context.Context, userID uint) ([]models.MembershipPayment, error) {
	var ms []models.MembershipPayment
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&ms).Error; err != nil {
		return nil, mapErr("membership.by_user", err)
	}
	return ms, nil
}

// DeleteByUser removes every payment of userID.
func (s *Memberships) DeleteByUser(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.MembershipPayment{}).Error
	return mapErr("membership.delete_by_user", err)
}
