package store

import (
	"context"
	"math"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/models"
	"gorm.io/gorm"
)

// Categories persists product categories.
type Categories struct {
	db *gorm.DB
}

func (s *Categories) List(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&cats).Error; err != nil {
		return nil, mapErr("category.list", err)
	}
	return cats, nil
}

func (s *Categories) ByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, mapErr("category.get_by_name", err)
	}
	return &c, nil
}

func (s *Categories) Create(ctx context.Context, c *models.Category) error {
	return mapErr("category.create", s.db.WithContext(ctx).Create(c).Error)
}

func (s *Categories) Rename(ctx context.Context, id uint, name string) error {
	res := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("name", name)
	return rowsOrNotFound("category.rename", res)
}

// Delete removes the category. Products keep their dangling reference.
func (s *Categories) Delete(ctx context.Context, id uint) error {
	return rowsOrNotFound("category.delete", s.db.WithContext(ctx).Delete(&models.Category{}, id))
}

func (s *Categories) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Category{}).Count(&n).Error
	return n, mapErr("category.count", err)
}

// Products persists listings.
type Products struct {
	db *gorm.DB
}

func (s *Products) checkInvariants(ctx context.Context, op string, p *models.Product) error {
	if p.Price < 0 {
		return apperr.Validation(op, "Price must not be negative.")
	}
	if len(p.Images) > models.MaxProductImages {
		return apperr.Validation(op, "A product can have at most 4 images.")
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", p.CategoryID).Count(&n).Error; err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return apperr.Validation(op, "Category not found.")
	}
	return nil
}

// Create inserts an unverified listing.
func (s *Products) Create(ctx context.Context, p *models.Product) error {
	if err := s.checkInvariants(ctx, "product.create", p); err != nil {
		return err
	}
	p.IsVerified = false
	return mapErr("product.create", s.db.WithContext(ctx).Create(p).Error)
}

// ByID loads a product with its category and seller.
func (s *Products) ByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Preload("Category").Preload("User").First(&p, id).Error
	if err != nil {
		return nil, mapErr("product.get", err)
	}
	return &p, nil
}

// Update writes the owner-editable fields of p.
func (s *Products) Update(ctx context.Context, p *models.Product) error {
	if err := s.checkInvariants(ctx, "product.update", p); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", p.ID).
		Select("name", "category_id", "price", "condition", "reason_for_selling",
			"description", "location", "full_address", "images").
		Updates(p)
	return rowsOrNotFound("product.update", res)
}

func (s *Products) SetPaymentProof(ctx context.Context, id uint, ref string) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("payment_proof", ref)
	return rowsOrNotFound("product.set_payment_proof", res)
}

// Verify makes the product visible in the catalog.
func (s *Products) Verify(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_verified", true)
	return rowsOrNotFound("product.verify", res)
}

// Delete removes the product and the offers made on it.
func (s *Products) Delete(ctx context.Context, id uint) error {
	return mapErr("product.delete", s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.Offer{}).Error; err != nil {
			return err
		}
		return rowsOrNotFound("product.delete", tx.Delete(&models.Product{}, id))
	}))
}

// ByUser lists the products of one seller, newest first.
func (s *Products) ByUser(ctx context.Context, userID uint) ([]models.Product, error) {
	var ps []models.Product
	err := s.db.WithContext(ctx).Preload("Category").
		Where("user_id = ?", userID).Order("id DESC").Find(&ps).Error
	if err != nil {
		return nil, mapErr("product.by_user", err)
	}
	return ps, nil
}

// All lists every product for the admin dashboard, newest first.
func (s *Products) All(ctx context.Context) ([]models.Product, error) {
	var ps []models.Product
	err := s.db.WithContext(ctx).Preload("Category").Preload("User").Order("id DESC").Find(&ps).Error
	if err != nil {
		return nil, mapErr("product.all", err)
	}
	return ps, nil
}

// Count returns the number of products; unverifiedOnly restricts to pending ones.
func (s *Products) Count(ctx context.Context, unverifiedOnly bool) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if unverifiedOnly {
		q = q.Where("is_verified = ?", false)
	}
	err := q.Count(&n).Error
	return n, mapErr("product.count", err)
}

// Offers persists bids. Offers are never updated.
type Offers struct {
	db *gorm.DB
}

func (s *Offers) Create(ctx context.Context, o *models.Offer) error {
	if math.IsNaN(o.OfferPrice) || math.IsInf(o.OfferPrice, 0) || o.OfferPrice <= 0 {
		return apperr.Validation("offer.create", "Invalid offer price.")
	}
	return mapErr("offer.create", s.db.WithContext(ctx).Create(o).Error)
}

// ByProduct lists the offers on a product with their bidders, highest first.
func (s *Offers) ByProduct(ctx context.Context, productID uint) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.db.WithContext(ctx).Preload("User").
		Where("product_id = ?", productID).Order("offer_price DESC, id ASC").Find(&offers).Error
	if err != nil {
		return nil, mapErr("offer.by_product", err)
	}
	return offers, nil
}

// ByUser lists the offers a buyer made, newest first.
func (s *Offers) ByUser(ctx context.Context, userID uint) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).Order("id DESC").Find(&offers).Error
	if err != nil {
		return nil, mapErr("offer.by_user", err)
	}
	return offers, nil
}

func (s *Offers) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Offer{}).Count(&n).Error
	return n, mapErr("offer.count", err)
}

// DeleteByUser removes every listing of userID. Offers on them must be
// removed first with Offers.DeleteOnProductsOf.
func (s *Products) DeleteByUser(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Product{}).Error
	return mapErr("product.delete_by_user", err)
}

// DeleteByUser removes every offer made by userID.
func (s *Offers) DeleteByUser(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Offer{}).Error
	return mapErr("offer.delete_by_user", err)
}

// DeleteOnProductsOf removes every offer made on a listing of sellerID.
func (s *Offers) DeleteOnProductsOf(ctx context.Context, sellerID uint) error {
	db := s.db.WithContext(ctx)
	sub := db.Model(&models.Product{}).Select("id").Where("user_id = ?", sellerID)
	err := db.Where("product_id IN (?)", sub).Delete(&models.Offer{}).Error
	return mapErr("offer.delete_on_products_of", err)
}
