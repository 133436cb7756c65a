package catalog

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type entityRow struct {
	Season    string `gorm:"primaryKey"`
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Role      string `gorm:"not null"`
	BasePrice int64  `gorm:"not null"`
	Overseas  bool   `gorm:"not null;default:false"`
}

func (entityRow) TableName() string { return "catalog_entities" }

type franchiseRow struct {
	Season    string `gorm:"primaryKey"`
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	ShortName string
}

func (franchiseRow) TableName() string { return "catalog_franchises" }

type squadRow struct {
	Season      string `gorm:"primaryKey"`
	FranchiseID string `gorm:"primaryKey"`
	EntityID    string `gorm:"primaryKey"`
	Position    int    `gorm:"not null"`
}

func (squadRow) TableName() string { return "catalog_squad_members" }

// PostgresProvider loads catalogs from the catalog_* tables.
type PostgresProvider struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func NewPostgresProvider(db *gorm.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) Migrate(ctx context.Context) error {
	return p.db.WithContext(ctx).AutoMigrate(&entityRow{}, &franchiseRow{}, &squadRow{})
}

func (p *PostgresProvider) Load(ctx context.Context, season string) (*Catalog, error) {
	db := p.db.WithContext(ctx)

	var franchises []franchiseRow
	if err := db.Where("season = ?", season).Order("id").Find(&franchises).Error; err != nil {
		return nil, fmt.Errorf("load franchises: %w", err)
	}
	if len(franchises) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSeasonNotFound, season)
	}

	var entities []entityRow
	if err := db.Where("season = ?", season).Order("id").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}

	var squads []squadRow
	if err := db.Where("season = ?", season).Order("franchise_id, position").Find(&squads).Error; err != nil {
		return nil, fmt.Errorf("load squads: %w", err)
	}

	c := &Catalog{
		Season:        season,
		Entities:      make([]Entity, 0, len(entities)),
		Franchises:    make([]Franchise, 0, len(franchises)),
		DefaultSquads: make(map[string][]EntityID),
	}
	for _, f := range franchises {
		c.Franchises = append(c.Franchises, Franchise{ID: f.ID, Name: f.Name, ShortName: f.ShortName})
	}
	for _, e := range entities {
		c.Entities = append(c.Entities, Entity{
			ID:        EntityID(e.ID),
			Name:      e.Name,
			Role:      Role(e.Role),
			BasePrice: e.BasePrice,
			Overseas:  e.Overseas,
		})
	}
	for _, s := range squads {
		c.DefaultSquads[s.FranchiseID] = append(c.DefaultSquads[s.FranchiseID], EntityID(s.EntityID))
	}

	if err := c.Index(); err != nil {
		return nil, err
	}
	return c, nil
}

// Import writes a catalog into the tables, replacing the season.
func (p *PostgresProvider) Import(ctx context.Context, c *Catalog) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&squadRow{}, &entityRow{}, &franchiseRow{}} {
			if err := tx.Where("season = ?", c.Season).Delete(model).Error; err != nil {
				return err
			}
		}

		franchises := make([]franchiseRow, 0, len(c.Franchises))
		for _, f := range c.Franchises {
			franchises = append(franchises, franchiseRow{Season: c.Season, ID: f.ID, Name: f.Name, ShortName: f.ShortName})
		}
		if len(franchises) > 0 {
			if err := tx.Create(&franchises).Error; err != nil {
				return err
			}
		}

		entities := make([]entityRow, 0, len(c.Entities))
		for _, e := range c.Entities {
			entities = append(entities, entityRow{
				Season: c.Season, ID: string(e.ID), Name: e.Name,
				Role: string(e.Role), BasePrice: e.BasePrice, Overseas: e.Overseas,
			})
		}
		if len(entities) > 0 {
			if err := tx.Create(&entities).Error; err != nil {
				return err
			}
		}

		var squads []squadRow
		for team, ids := range c.DefaultSquads {
			for i, id := range ids {
				squads = append(squads, squadRow{Season: c.Season, FranchiseID: team, EntityID: string(id), Position: i})
			}
		}
		if len(squads) > 0 {
			return tx.Create(&squads).Error
		}
		return nil
	})
}
