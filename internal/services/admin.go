package services

import (
	"context"
	"strings"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/store"
)

// CacheInvalidator is told when the category list changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// AdminService backs the administrator dashboard.
type AdminService struct {
	store *store.Store
	files FileStore
	cache CacheInvalidator
}

func NewAdminService(s *store.Store, files FileStore, cache CacheInvalidator) *AdminService {
	return &AdminService{store: s, files: files, cache: cache}
}

// Stats are the dashboard counters.
type Stats struct {
	Users              int64
	Products           int64
	UnverifiedProducts int64
	Offers             int64
	PendingMemberships int64
	Categories         int64
}

func (s *AdminService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Users, err = s.store.Users.Count(ctx); err != nil {
		return st, err
	}
	if st.Products, err = s.store.Products.Count(ctx, false); err != nil {
		return st, err
	}
	if st.UnverifiedProducts, err = s.store.Products.Count(ctx, true); err != nil {
		return st, err
	}
	if st.Offers, err = s.store.Offers.Count(ctx); err != nil {
		return st, err
	}
	if st.PendingMemberships, err = s.store.Memberships.CountPending(ctx); err != nil {
		return st, err
	}
	st.Categories, err = s.store.Categories.Count(ctx)
	return st, err
}

// DeleteUser removes a user and everything hanging off the account in one
// transaction. Stored files go only after the commit.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id uint) error {
	const op = "admin.delete_user"
	if actorID == id {
		return apperr.Validation(op, "You cannot delete your own account.")
	}
	var refs []string
	err := s.store.Tx(ctx, func(tx *store.Store) error {
		u, err := tx.Users.ByID(ctx, id)
		if err != nil {
			if apperr.IsNotFound(err) {
				return apperr.NotFound(op, "User not found")
			}
			return err
		}
		products, err := tx.Products.ByUser(ctx, id)
		if err != nil {
			return err
		}
		payments, err := tx.Memberships.ByUser(ctx, id)
		if err != nil {
			return err
		}

		if err := tx.Offers.DeleteByUser(ctx, id); err != nil {
			return err
		}
		if err := tx.Offers.DeleteOnProductsOf(ctx, id); err != nil {
			return err
		}
		if err := tx.Products.DeleteByUser(ctx, id); err != nil {
			return err
		}
		if err := tx.Memberships.DeleteByUser(ctx, id); err != nil {
			return err
		}
		if err := tx.ResetTokens.DeleteForUser(ctx, id); err != nil {
			return err
		}
		if err := tx.Users.Delete(ctx, id); err != nil {
			return err
		}

		refs = append(refs, u.ProfilePicturePath)
		for _, p := range products {
			refs = append(refs, p.Images...)
			refs = append(refs, p.PaymentProof)
		}
		for _, m := range payments {
			refs = append(refs, m.PaymentProof)
		}
		return nil
	})
	if err != nil {
		return err
	}
	removeAll(ctx, s.files, refs)
	return nil
}

func (s *AdminService) Users(ctx context.Context) ([]models.User, error) {
	return s.store.Users.List(ctx)
}

func (s *AdminService) Products(ctx context.Context) ([]models.Product, error) {
	return s.store.Products.All(ctx)
}

func (s *AdminService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.Categories.List(ctx)
}

func categoryName(op, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperr.Validation(op, "Category name is required.")
	}
	if len(name) > 100 {
		return "", apperr.Validation(op, "Category name is too long.")
	}
	return name, nil
}

// CreateCategory adds a category unless the name is already used.
func (s *AdminService) CreateCategory(ctx context.Context, raw string) (*models.Category, error) {
	const op = "admin.create_category"
	name, err := categoryName(op, raw)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Categories.ByName(ctx, name); err == nil {
		return nil, apperr.Conflict(op, "Category already exists.", nil)
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}
	c := &models.Category{Name: name}
	if err := s.store.Categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return c, nil
}

func (s *AdminService) RenameCategory(ctx context.Context, id uint, raw string) error {
	const op = "admin.rename_category"
	name, err := categoryName(op, raw)
	if err != nil {
		return err
	}
	if err := s.store.Categories.Rename(ctx, id, name); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound(op, "Category not found.")
		}
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// DeleteCategory leaves products pointing at the removed category.
func (s *AdminService) DeleteCategory(ctx context.Context, id uint) error {
	const op = "admin.delete_category"
	if err := s.store.Categories.Delete(ctx, id); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound(op, "Category not found.")
		}
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}
