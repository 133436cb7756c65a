// Package ai holds automated bidders. A strategy only proposes commands;
// the room applies them through the same validated path as human input.
package ai

import (
	"cmp"
	"slices"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

type Strategy interface {
	// Decide returns the next command team wants to issue, if any.
	Decide(s engine.State, team engine.TeamID) (engine.Command, bool)
}

// Budgeted values every entity at a multiple of its base price and never
// commits more than that.
type Budgeted struct {
	ValueFactor float64
}

func NewBudgeted() *Budgeted {
	return &Budgeted{ValueFactor: 3}
}

func (b *Budgeted) Decide(s engine.State, id engine.TeamID) (engine.Command, bool) {
	t, ok := s.Team(id)
	if !ok || t.Controller != engine.ControllerAI {
		return engine.Command{}, false
	}
	cmd := engine.Command{Team: id, Participant: engine.AIParticipant}

	switch s.Phase {
	case engine.PhaseRetention:
		if t.RetentionDone {
			return engine.Command{}, false
		}
		if pick, ok := b.retention(s, t); ok {
			cmd.Type = engine.CmdRetain
			cmd.Entity = pick
			return cmd, true
		}
		cmd.Type = engine.CmdFinishRetention
		return cmd, true

	case engine.PhaseBidding:
		return b.bidding(s, t, cmd)
	}
	return engine.Command{}, false
}

// retention keeps the most valuable previous player whose slot cost does
// not exceed what the team would pay for them at auction.
func (b *Budgeted) retention(s engine.State, t engine.Team) (catalog.EntityID, bool) {
	cost, ok := s.Rules.SlotCost(len(t.Retained))
	if !ok {
		return "", false
	}
	var candidates []catalog.Entity
	for _, id := range t.DefaultSquad {
		if slices.Contains(t.Retained, id) {
			continue
		}
		if e, ok := s.Catalog().Entity(id); ok {
			candidates = append(candidates, e)
		}
	}
	slices.SortStableFunc(candidates, func(x, y catalog.Entity) int {
		return cmp.Compare(y.BasePrice, x.BasePrice)
	})
	for _, e := range candidates {
		if b.limit(e, t) < cost {
			continue
		}
		if engine.CanAcquire(s, t.ID, e.ID, cost) == nil {
			return e.ID, true
		}
	}
	return "", false
}

func (b *Budgeted) bidding(s engine.State, t engine.Team, cmd engine.Command) (engine.Command, bool) {
	entity, ok := s.CurrentEntity()
	if !ok {
		return engine.Command{}, false
	}
	limit := b.limit(entity, t)

	switch s.Round.Status {
	case engine.RoundOpen:
		if s.Round.Holder == t.ID {
			return engine.Command{}, false
		}
		next, ok := engine.NextBid(s)
		if !ok || next > limit || engine.CanAcquire(s, t.ID, entity.ID, next) != nil {
			return engine.Command{}, false
		}
		cmd.Type = engine.CmdBid
		cmd.Amount = next
		return cmd, true

	case engine.RoundRTM:
		offer := s.Round.RTM
		if offer == nil {
			return engine.Command{}, false
		}
		switch {
		case offer.Status == engine.RTMOffered && offer.Holder == t.ID:
			cmd.Type = engine.CmdDeclineRTM
			if offer.Amount <= limit {
				cmd.Type = engine.CmdExerciseRTM
			}
			return cmd, true
		case offer.Status == engine.RTMHikeWindow && offer.Winner == t.ID:
			// One step up while the entity is still worth it, else let it go.
			cmd.Type = engine.CmdPassRTM
			raised := offer.Amount + s.Rules.Increment(offer.Amount)
			if raised <= limit && engine.CanAcquire(s, t.ID, entity.ID, raised) == nil {
				cmd.Type = engine.CmdRaiseRTM
				cmd.Amount = raised
			}
			return cmd, true
		case offer.Status == engine.RTMAwaitMatch && offer.Holder == t.ID:
			cmd.Type = engine.CmdForfeitRTM
			if offer.Amount <= limit && engine.CanAcquire(s, t.ID, entity.ID, offer.Amount) == nil {
				cmd.Type = engine.CmdMatchRTM
				cmd.Amount = offer.Amount
			}
			return cmd, true
		}
	}
	return engine.Command{}, false
}

func (b *Budgeted) limit(e catalog.Entity, t engine.Team) int64 {
	return min(int64(float64(e.BasePrice)*b.ValueFactor), t.Budget)
}
