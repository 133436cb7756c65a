package room

import (
	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

func (r *Room) scheduleAI() {
	if r.strategy == nil {
		return
	}
	if r.thinkDelay <= 0 {
		r.aiDue = true
		return
	}
	r.stopAI()
	version := r.version
	r.aiTimer = r.clock.AfterFunc(r.thinkDelay, func() { r.post(aiTurn{version: version}) })
}

func (r *Room) stopAI() {
	r.aiDue = false
	if r.aiTimer != nil {
		r.aiTimer.Stop()
		r.aiTimer = nil
	}
}

// runAI applies immediate automated moves until no AI team wants to act.
func (r *Room) runAI() {
	for i := 0; r.aiDue && !r.stopped && i < maxAISteps; i++ {
		r.aiDue = false
		r.stepAI()
	}
	r.aiDue = false
}

// stepAI applies the first accepted move among the AI teams, in team order.
// AI commands take the same validated path as a human's.
func (r *Room) stepAI() bool {
	if r.strategy == nil || r.state.Phase.Finished() {
		return false
	}
	for _, t := range r.state.Teams {
		if t.Controller != engine.ControllerAI {
			continue
		}
		cmd, ok := r.strategy.Decide(r.state, t.ID)
		if !ok {
			continue
		}
		cmd.Team = t.ID
		cmd.Participant = engine.AIParticipant
		cmd.At = r.clock.Now()
		if r.apply(cmd, "") {
			return true
		}
	}
	return false
}
