package engine

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
)

// rosterRoom checks the squad-size and overseas invariants for adding entity.
func rosterRoom(s *State, t *Team, entity catalog.Entity) error {
	if len(t.Roster) >= s.Rules.MaxSquad {
		return ErrSquadFull
	}
	if entity.Overseas && t.OverseasCount >= s.Rules.OverseasCap {
		return ErrOverseasCap
	}
	return nil
}

// CanAcquire reports whether team could take entity at amount without
// breaking a ledger invariant.
func CanAcquire(s State, team TeamID, entity catalog.EntityID, amount int64) error {
	i := s.TeamIndex(team)
	if i < 0 {
		return ErrUnknownTeam
	}
	return canAcquire(&s, &s.Teams[i], entity, amount)
}

func canAcquire(s *State, t *Team, id catalog.EntityID, amount int64) error {
	if amount > t.Budget {
		return ErrInsufficientBudget
	}
	entity, ok := s.catalog.Entity(id)
	if !ok {
		return fmt.Errorf("%w: entity %q not in catalog", ErrInvariantViolation, id)
	}
	return rosterRoom(s, t, entity)
}

func addToRoster(t *Team, entity catalog.Entity, cost int64) {
	t.Budget -= cost
	t.Roster = append(t.Roster, entity.ID)
	if entity.Overseas {
		t.OverseasCount++
	}
}

// settle is the only writer of acquisitions during bidding. Every check here
// was already enforced when the winning amount was accepted, so a failure
// means an upstream bug.
func settle(s *State, team TeamID, id catalog.EntityID, amount int64, viaRTM bool) ([]Event, error) {
	i := s.TeamIndex(team)
	if i < 0 {
		return nil, fmt.Errorf("%w: settle to unknown team %q", ErrInvariantViolation, team)
	}
	t := &s.Teams[i]
	if slices.Contains(t.Roster, id) {
		return nil, fmt.Errorf("%w: %q already on %q", ErrInvariantViolation, id, team)
	}
	if err := canAcquire(s, t, id, amount); err != nil {
		return nil, fmt.Errorf("%w: settle %q to %q at %d: %v", ErrInvariantViolation, id, team, amount, err)
	}

	entity, _ := s.catalog.Entity(id)
	addToRoster(t, entity, amount)
	s.Sales = append(s.Sales, Sale{Lot: s.Round.Lot, Entity: id, Team: team, Amount: amount, ViaRTM: viaRTM})
	s.Round.Status = RoundResolved
	s.Round.Holder = team
	s.Round.Amount = amount
	return []Event{{Type: EvtPlayerSold, Team: team, Entity: id, Amount: amount, Lot: s.Round.Lot}}, nil
}
