package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

type roomRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code        string    `gorm:"type:varchar(16);not null;index"`
	Season      string    `gorm:"type:varchar(32);not null;index"`
	Phase       string    `gorm:"type:varchar(16);not null"`
	Unsold      string    `gorm:"type:text"`
	CompletedAt time.Time `gorm:"type:timestamptz;not null"`
	Teams       []teamRow `gorm:"foreignKey:RoomID"`
	Sales       []saleRow `gorm:"foreignKey:RoomID"`
}

func (roomRow) TableName() string { return "auction_rooms" }

type teamRow struct {
	RoomID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamID     string    `gorm:"type:varchar(16);primaryKey"`
	Controller string    `gorm:"type:varchar(8);not null"`
	Budget     int64     `gorm:"not null"`
	Roster     string    `gorm:"type:text"`
	Retained   string    `gorm:"type:text"`
}

func (teamRow) TableName() string { return "auction_teams" }

type saleRow struct {
	RoomID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Lot    int       `gorm:"primaryKey"`
	Entity string    `gorm:"type:varchar(32);not null"`
	TeamID string    `gorm:"type:varchar(16);not null;index"`
	Amount int64     `gorm:"not null"`
	ViaRTM bool      `gorm:"not null;default:false"`
}

func (saleRow) TableName() string { return "auction_sales" }

// GormRecorder writes rooms, final ledgers and sales to Postgres.
type GormRecorder struct {
	db    *gorm.DB
	log   *zap.Logger
	newID func() uuid.UUID
	now   func() time.Time
}

func NewGormRecorder(db *gorm.DB, log *zap.Logger) *GormRecorder {
	return &GormRecorder{db: db, log: log, newID: uuid.New, now: time.Now}
}

func (g *GormRecorder) Migrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&roomRow{}, &teamRow{}, &saleRow{})
}

// Record inserts the finished room once. Rows are keyed by the room's ID,
// so a later room reusing the code gets its own record.
func (g *GormRecorder) Record(ctx context.Context, room engine.State) error {
	row := toRow(room, roomID(room, g.newID), g.now().UTC())
	err := g.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		g.log.Info("room already recorded", zap.String("room", room.Code), zap.Stringer("id", row.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("record room %s: %w", room.Code, err)
	}
	return nil
}

func toRow(s engine.State, id uuid.UUID, at time.Time) roomRow {
	row := roomRow{
		ID:          id,
		Code:        s.Code,
		Season:      s.Season,
		Phase:       string(s.Phase),
		Unsold:      joinIDs(s.Unsold),
		CompletedAt: at,
	}
	for _, t := range s.Teams {
		row.Teams = append(row.Teams, teamRow{
			RoomID:     id,
			TeamID:     string(t.ID),
			Controller: string(t.Controller),
			Budget:     t.Budget,
			Roster:     joinIDs(t.Roster),
			Retained:   joinIDs(t.Retained),
		})
	}
	for _, sale := range s.Sales {
		row.Sales = append(row.Sales, saleRow{
			RoomID: id,
			Lot:    sale.Lot,
			Entity: string(sale.Entity),
			TeamID: string(sale.Team),
			Amount: sale.Amount,
			ViaRTM: sale.ViaRTM,
		})
	}
	return row
}

// roomID reuses the room's own uuid; rooms built without one get a fresh id.
func roomID(s engine.State, fallback func() uuid.UUID) uuid.UUID {
	if id, err := uuid.Parse(s.ID); err == nil {
		return id
	}
	return fallback()
}

func joinIDs[T ~string](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
