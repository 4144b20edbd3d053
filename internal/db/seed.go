package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-katalog/internal/models"
	"gorm.io/gorm"
)

// DefaultCategories are created on first start so the sell form is usable
// before an administrator adds their own.
var DefaultCategories = []string{
	"Fashion",
	"Elektronik",
	"Buku",
	"Perabot Rumah",
	"Hobi & Koleksi",
	"Olahraga",
	"Lainnya",
}

// Seed inserts the default categories that do not exist yet. It is safe to
// run on every start.
func Seed(ctx context.Context, db *gorm.DB) (created int, err error) {
	for _, name := range DefaultCategories {
		var existing models.Category
		err := db.WithContext(ctx).Where("name = ?", name).First(&existing).Error
		switch {
		case err == nil:
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return created, fmt.Errorf("seed category %q: %w", name, err)
		}
		if err := db.WithContext(ctx).Create(&models.Category{Name: name}).Error; err != nil {
			return created, fmt.Errorf("seed category %q: %w", name, err)
		}
		created++
	}
	return created, nil
}
