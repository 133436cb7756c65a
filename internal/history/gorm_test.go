package history

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

func TestToRow(t *testing.T) {
	id := uuid.MustParse("7b0c2f38-60a4-4a4e-9a43-2d4f8c1f6b11")
	at := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	s := engine.State{
		Code:   "ABC123",
		Season: "2025",
		Phase:  engine.PhaseComplete,
		Teams: []engine.Team{
			{ID: "CHN", Controller: engine.ControllerHuman, Budget: 40, Roster: []catalog.EntityID{"P001", "P050"}, Retained: []catalog.EntityID{"P001"}},
			{ID: "MUM", Controller: engine.ControllerAI, Budget: 100},
		},
		Sales:  []engine.Sale{{Lot: 3, Entity: "P050", Team: "CHN", Amount: 60, ViaRTM: true}},
		Unsold: []catalog.EntityID{"P051", "P052"},
	}

	row := toRow(s, id, at)

	assert.Equal(t, "ABC123", row.Code)
	assert.Equal(t, "complete", row.Phase)
	assert.Equal(t, "P051,P052", row.Unsold)
	assert.Equal(t, at, row.CompletedAt)
	require.Len(t, row.Teams, 2)
	assert.Equal(t, teamRow{RoomID: id, TeamID: "CHN", Controller: "human", Budget: 40, Roster: "P001,P050", Retained: "P001"}, row.Teams[0])
	assert.Equal(t, "", row.Teams[1].Roster)
	require.Len(t, row.Sales, 1)
	assert.Equal(t, saleRow{RoomID: id, Lot: 3, Entity: "P050", TeamID: "CHN", Amount: 60, ViaRTM: true}, row.Sales[0])
}

func TestRoomID(t *testing.T) {
	fresh := uuid.MustParse("0f6f6a3e-3c1a-4a7e-8a53-5d0a3c9b2e10")
	fallback := func() uuid.UUID { return fresh }

	first := engine.State{ID: "7b0c2f38-60a4-4a4e-9a43-2d4f8c1f6b11", Code: "ABC123"}
	second := engine.State{ID: "c4a1e9d2-1b7f-4f0e-9d1c-6e2b8a7f3d45", Code: "ABC123"}

	assert.Equal(t, uuid.MustParse(first.ID), roomID(first, fallback))
	assert.NotEqual(t, roomID(first, fallback), roomID(second, fallback), "same code, different rooms")
	assert.Equal(t, fresh, roomID(engine.State{Code: "ABC123"}, fallback))
	assert.Equal(t, fresh, roomID(engine.State{ID: "not-a-uuid"}, fallback))
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"duplicate", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped duplicate", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"other sqlstate", &pgconn.PgError{Code: "23503"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
