// Package store is the persistence layer: one small repository per
// aggregate, all backed by gorm. Every error leaving this package is an
// *apperr.Error so handlers can branch on its Kind.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-katalog/internal/apperr"
	"gorm.io/gorm"
)

// Store bundles the repositories over one connection or transaction.
type Store struct {
	db *gorm.DB

	Users       *Users
	ResetTokens *ResetTokens
	Categories  *Categories
	Products    *Products
	Offers      *Offers
	Memberships *Memberships
}

// New returns a Store over db.
func New(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       &Users{db: db},
		ResetTokens: &ResetTokens{db: db},
		Categories:  &Categories{db: db},
		Products:    &Products{db: db},
		Offers:      &Offers{db: db},
		Memberships: &Memberships{db: db},
	}
}

// DB exposes the underlying handle for read models such as the catalog engine.
func (s *Store) DB() *gorm.DB { return s.db }

// Tx runs fn inside one transaction. An error from fn rolls everything back
// and is returned unchanged.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
	return mapErr("store.tx", err)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperr.Store("store.ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperr.Store("store.ping", err)
	}
	return nil
}

// mapErr turns a gorm/driver error into the application taxonomy.
// Errors that already carry a Kind pass through.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Err: err}
	case isDuplicate(err):
		return apperr.Conflict(op, "", err)
	}
	return apperr.Store(op, err)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
