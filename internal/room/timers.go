package room

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

// reconcileTimer makes the armed deadline match the state. A new key
// cancels the old timer before the replacement is scheduled.
func (r *Room) reconcileTimer() {
	key, deadline, ok := engine.PendingTimer(r.state)
	if ok && r.timer != nil && key == r.timerKey && deadline.Equal(r.timerAt) {
		return
	}
	r.stopTimer()
	if !ok {
		return
	}

	d := max(deadline.Sub(r.clock.Now()), 0)
	r.timerKey = key
	r.timerAt = deadline
	r.timer = r.clock.AfterFunc(d, func() { r.post(timerFired{key: key}) })
	r.log.Debug("deadline armed", zap.String("kind", string(key.Kind)),
		zap.Int("lot", key.Lot), zap.Int("seq", key.Seq), zap.Time("at", deadline))
}

func (r *Room) stopTimer() {
	if r.timer == nil {
		return
	}
	r.timer.Stop()
	r.timer = nil
}
