package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-katalog/internal/models"
	"github.com/golang-migrate/migrate/v4"
	// Registers the postgres:// database driver.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// requiredTables must exist once the schema is applied.
var requiredTables = []string{"users", "categories", "products", "offers", "membership_payments"}

// Migrate applies the schema. With sqlURL set the versioned SQL migrations run
// through golang-migrate; otherwise gorm's AutoMigrate is used, which is
// convenient in development and tests.
func Migrate(db *gorm.DB, sqlURL string) error {
	if sqlURL != "" {
		if err := runSQLMigrations(sqlURL); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	} else {
		for _, m := range models.All() {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

func runSQLMigrations(databaseURL string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
