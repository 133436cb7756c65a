package cli

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
	"github.com/DoyleJ11/auction-room-backend/internal/config"
)

// openDB connects when a DSN is configured; nil means no database.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Postgres.DSN == "" {
		return nil, nil
	}
	return catalog.OpenPostgres(cfg.Postgres.DSN)
}

func newCatalogProvider(cfg *config.Config, db *gorm.DB) (catalog.Provider, error) {
	switch cfg.Catalog.Source {
	case "embedded":
		return catalog.NewEmbeddedProvider(), nil
	case "file":
		return catalog.NewDirProvider(cfg.Catalog.Path), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres catalog needs postgres.dsn")
		}
		return catalog.NewPostgresProvider(db), nil
	}
	return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
}

func closeDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
