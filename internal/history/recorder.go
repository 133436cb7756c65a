// Package history archives finished rooms.
package history

//go:generate mockgen -package=mocks -destination=mocks/mock_recorder.go github.com/DoyleJ11/auction-room-backend/internal/history Recorder

import (
	"context"

	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

// Recorder stores the final state of a completed room. It is called once
// per room, off the room's goroutine.
type Recorder interface {
	Record(ctx context.Context, room engine.State) error
}
