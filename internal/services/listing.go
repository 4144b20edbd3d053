package services

import (
	"context"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/storage"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/validation"
)

// ListingService is the seller side: creating, editing and paying for listings.
type ListingService struct {
	store *store.Store
	files FileStore
}

func NewListingService(s *store.Store, files FileStore) *ListingService {
	return &ListingService{store: s, files: files}
}

// ListingInput is the sell / edit form.
type ListingInput struct {
	Name             string `form:"productName" validate:"required,max=255"`
	CategoryID       uint   `form:"category" validate:"required"`
	Price            int64  `form:"price" validate:"gte=0"`
	Condition        string `form:"condition" validate:"required"`
	ReasonForSelling string `form:"reasonForSelling" validate:"max=1000"`
	Description      string `form:"description"`
	Location         string `form:"location" validate:"max=100"`
	FullAddress      string `form:"fullAddress" validate:"max=500"`
}

func (in ListingInput) check(op string, images int) (string, error) {
	if v := validation.Struct(in); !v.Empty() {
		return "", apperr.Validation(op, violationMessage(v))
	}
	cond, ok := models.ParseCondition(in.Condition)
	if !ok {
		return "", apperr.Validation(op, "Invalid condition.")
	}
	if images > models.MaxProductImages {
		return "", apperr.Validation(op, "A product can have at most 4 images.")
	}
	return cond, nil
}

// Create stores the images, then the unverified listing.
func (s *ListingService) Create(ctx context.Context, sellerID uint, in ListingInput, images []Upload) (*models.Product, error) {
	const op = "listing.create"
	cond, err := in.check(op, len(images))
	if err != nil {
		return nil, err
	}
	refs, err := saveAll(ctx, s.files, storage.DirProducts, images)
	if err != nil {
		return nil, uploadError(op, err)
	}
	p := &models.Product{
		UserID:           sellerID,
		Name:             in.Name,
		CategoryID:       in.CategoryID,
		Price:            in.Price,
		Condition:        cond,
		ReasonForSelling: in.ReasonForSelling,
		Description:      in.Description,
		Location:         in.Location,
		FullAddress:      in.FullAddress,
		Images:           refs,
	}
	if err := s.store.Products.Create(ctx, p); err != nil {
		removeAll(ctx, s.files, refs)
		return nil, err
	}
	return p, nil
}

// Update rewrites an owned listing. New images replace all old ones; with
// no new images the old ones are kept.
func (s *ListingService) Update(ctx context.Context, p *models.Product, in ListingInput, images []Upload) error {
	const op = "listing.update"
	cond, err := in.check(op, len(images))
	if err != nil {
		return err
	}
	old := p.Images
	var refs []string
	if len(images) > 0 {
		if refs, err = saveAll(ctx, s.files, storage.DirProducts, images); err != nil {
			return uploadError(op, err)
		}
	}

	next := *p
	next.Name = in.Name
	next.CategoryID = in.CategoryID
	next.Price = in.Price
	next.Condition = cond
	next.ReasonForSelling = in.ReasonForSelling
	next.Description = in.Description
	next.Location = in.Location
	next.FullAddress = in.FullAddress
	if refs != nil {
		next.Images = refs
	}
	if err := s.store.Products.Update(ctx, &next); err != nil {
		removeAll(ctx, s.files, refs)
		return err
	}
	if refs != nil {
		removeAll(ctx, s.files, old)
	}
	*p = next
	return nil
}

// AttachPaymentProof stores the listing fee receipt.
func (s *ListingService) AttachPaymentProof(ctx context.Context, p *models.Product, up Upload) error {
	const op = "listing.payment_proof"
	ref, err := saveUpload(ctx, s.files, storage.DirPayments, up)
	if err != nil {
		return uploadError(op, err)
	}
	if err := s.store.Products.SetPaymentProof(ctx, p.ID, ref); err != nil {
		removeAll(ctx, s.files, []string{ref})
		return err
	}
	removeAll(ctx, s.files, []string{p.PaymentProof})
	p.PaymentProof = ref
	return nil
}

// Verify publishes a listing in the catalog.
func (s *ListingService) Verify(ctx context.Context, id uint) error {
	err := s.store.Products.Verify(ctx, id)
	if apperr.IsNotFound(err) {
		return apperr.NotFound("listing.verify", "Product not found.")
	}
	return err
}

// Delete removes a listing, the offers on it and its files.
func (s *ListingService) Delete(ctx context.Context, id uint) error {
	p, err := s.store.Products.ByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("listing.delete", "Product not found.")
		}
		return err
	}
	if err := s.store.Products.Delete(ctx, id); err != nil {
		return err
	}
	removeAll(ctx, s.files, append(p.Images, p.PaymentProof))
	return nil
}
