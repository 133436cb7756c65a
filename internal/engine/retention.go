package engine

import (
	"slices"
	"time"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
)

// startRetention opens the retention phase. Every team's budget, retained
// list and previous squad are reset from the rules and catalog.
func startRetention(s *State, cmd Command) ([]Event, error) {
	if s.Phase != PhaseSetup {
		return nil, ErrWrongPhase
	}
	if cmd.Participant != "" && s.Host != "" && cmd.Participant != s.Host {
		return nil, ErrNotHost
	}

	s.Phase = PhaseRetention
	fillVacancies(s)
	for i := range s.Teams {
		t := &s.Teams[i]
		t.DefaultSquad = s.catalog.Squad(string(t.ID))
		t.Retained = []catalog.EntityID{}
		t.Roster = []catalog.EntityID{}
		t.Budget = s.Rules.Purse
		t.RTMRemaining = s.Rules.RTMRights
		t.OverseasCount = 0
		t.RetentionDone = t.Controller == ControllerNone
	}
	if s.Rules.RetentionWindow > 0 {
		s.RetentionDeadline = cmd.At.Add(s.Rules.RetentionWindow)
	}

	events := []Event{{Type: EvtRetentionStarted}}
	if allRetentionDone(s) {
		events = append(events, startBidding(s, cmd)...)
	}
	return events, nil
}

func retainPlayer(s *State, cmd Command) ([]Event, error) {
	if s.Phase != PhaseRetention {
		return nil, ErrWrongPhase
	}
	t, err := actingTeam(s, cmd)
	if err != nil {
		return nil, err
	}
	if t.RetentionDone {
		return nil, ErrRetentionDone
	}
	if !slices.Contains(t.DefaultSquad, cmd.Entity) {
		return nil, ErrNotInDefaultSquad
	}
	if slices.Contains(t.Retained, cmd.Entity) {
		return nil, ErrAlreadyRetained
	}
	cost, ok := s.Rules.SlotCost(len(t.Retained))
	if !ok {
		return nil, ErrRetentionSlotsFull
	}
	if cost > t.Budget {
		return nil, ErrInsufficientBudget
	}
	entity, _ := s.catalog.Entity(cmd.Entity)
	if err := rosterRoom(s, t, entity); err != nil {
		return nil, err
	}

	t.Retained = append(t.Retained, cmd.Entity)
	addToRoster(t, entity, cost)
	return []Event{{Type: EvtPlayerRetained, Team: t.ID, Entity: cmd.Entity, Amount: cost}}, nil
}

func finishRetention(s *State, cmd Command) ([]Event, error) {
	if s.Phase != PhaseRetention {
		return nil, ErrWrongPhase
	}
	t, err := actingTeam(s, cmd)
	if err != nil {
		return nil, err
	}
	if t.RetentionDone {
		return nil, ErrRetentionDone
	}
	return finishTeamRetention(s, t, cmd), nil
}

func finishTeamRetention(s *State, t *Team, cmd Command) []Event {
	t.RetentionDone = true
	events := []Event{{Type: EvtRetentionFinished, Team: t.ID}}
	if allRetentionDone(s) {
		events = append(events, startBidding(s, cmd)...)
	}
	return events
}

func retentionTimeout(s *State, cmd Command) ([]Event, error) {
	if s.Phase != PhaseRetention || s.RetentionDeadline.IsZero() {
		return nil, ErrStaleTimer
	}
	var events []Event
	for i := range s.Teams {
		if !s.Teams[i].RetentionDone {
			s.Teams[i].RetentionDone = true
			events = append(events, Event{Type: EvtRetentionFinished, Team: s.Teams[i].ID})
		}
	}
	return append(events, startBidding(s, cmd)...), nil
}

func allRetentionDone(s *State) bool {
	for _, t := range s.Teams {
		if !t.RetentionDone {
			return false
		}
	}
	return true
}

// startBidding fixes the pool from the room's order minus everything
// retained and opens the first lot.
func startBidding(s *State, cmd Command) []Event {
	retained := make(map[catalog.EntityID]bool)
	for _, t := range s.Teams {
		for _, id := range t.Retained {
			retained[id] = true
		}
	}
	s.Pool = s.Pool[:0]
	for _, id := range s.PoolOrder {
		if !retained[id] {
			s.Pool = append(s.Pool, id)
		}
	}

	s.Phase = PhaseBidding
	s.RetentionDeadline = time.Time{}
	s.Cursor = 0
	events := []Event{{Type: EvtBiddingStarted}}
	return append(events, openLot(s, cmd)...)
}
