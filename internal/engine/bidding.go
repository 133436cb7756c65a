package engine

import (
	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
)

// NextBid is the only amount the next bid may carry: the base price for the
// opening bid, otherwise the current amount plus the band's increment.
func NextBid(s State) (int64, bool) {
	if s.Phase != PhaseBidding || s.Round.Status != RoundOpen {
		return 0, false
	}
	if s.Round.Holder == "" {
		entity, ok := s.catalog.Entity(s.Round.Entity)
		if !ok {
			return 0, false
		}
		return entity.BasePrice, true
	}
	return s.Round.Amount + s.Rules.Increment(s.Round.Amount), true
}

func placeBid(s *State, cmd Command) ([]Event, error) {
	if s.Phase != PhaseBidding {
		return nil, ErrWrongPhase
	}
	if s.Round.Status != RoundOpen {
		return nil, ErrNoOpenLot
	}
	t, err := actingTeam(s, cmd)
	if err != nil {
		return nil, err
	}
	if !cmd.At.Before(s.Round.Deadline) {
		return nil, ErrLotClosed
	}
	if s.Round.Holder == t.ID {
		return nil, ErrAlreadyHighBidder
	}
	want, _ := NextBid(*s)
	switch {
	case cmd.Amount < want:
		return nil, ErrStaleBid
	case cmd.Amount > want:
		return nil, ErrBidIncrement
	}
	if err := canAcquire(s, t, s.Round.Entity, cmd.Amount); err != nil {
		return nil, err
	}

	s.Round.Amount = cmd.Amount
	s.Round.Holder = t.ID
	s.Round.Seq++
	s.Round.History = append(s.Round.History, Bid{Team: t.ID, Amount: cmd.Amount, At: cmd.At})
	s.Round.Deadline = cmd.At.Add(s.Rules.BidTimer)
	return []Event{{Type: EvtBidAccepted, Team: t.ID, Entity: s.Round.Entity, Amount: cmd.Amount, Lot: s.Round.Lot}}, nil
}

// roundTimeout closes the open lot: unsold without bids, otherwise an RTM
// offer when one is due, otherwise settlement to the high bidder.
func roundTimeout(s *State, cmd Command) ([]Event, error) {
	if s.Phase != PhaseBidding || s.Round.Status != RoundOpen {
		return nil, ErrStaleTimer
	}
	if cmd.Lot != s.Round.Lot || cmd.Seq != s.Round.Seq {
		return nil, ErrStaleTimer
	}

	if s.Round.Holder == "" {
		s.Round.Status = RoundResolved
		s.Unsold = append(s.Unsold, s.Round.Entity)
		events := []Event{{Type: EvtLotUnsold, Entity: s.Round.Entity, Lot: s.Round.Lot}}
		return append(events, advance(s, cmd)...), nil
	}

	if holder, ok := rtmEligible(s); ok {
		return offerRTM(s, cmd, holder), nil
	}

	events, err := settle(s, s.Round.Holder, s.Round.Entity, s.Round.Amount, false)
	if err != nil {
		return nil, err
	}
	return append(events, advance(s, cmd)...), nil
}

func advance(s *State, cmd Command) []Event {
	s.Cursor++
	return openLot(s, cmd)
}

// openLot puts Pool[Cursor] in play, or completes the auction when the pool
// is exhausted or no team has a free squad slot.
func openLot(s *State, cmd Command) []Event {
	if s.Cursor >= len(s.Pool) || !anySquadRoom(s) {
		if s.Cursor < len(s.Pool) {
			s.Unsold = append(s.Unsold, s.Pool[s.Cursor:]...)
		}
		s.Phase = PhaseComplete
		s.Round = Round{Status: RoundIdle, Lot: -1}
		return []Event{{Type: EvtAuctionCompleted}}
	}

	s.Round = Round{
		Lot:      s.Cursor,
		Entity:   s.Pool[s.Cursor],
		Status:   RoundOpen,
		History:  []Bid{},
		Deadline: cmd.At.Add(s.Rules.BidTimer),
	}
	return []Event{{Type: EvtLotOpened, Entity: s.Round.Entity, Lot: s.Round.Lot}}
}

func anySquadRoom(s *State) bool {
	for _, t := range s.Teams {
		if len(t.Roster) < s.Rules.MaxSquad {
			return true
		}
	}
	return false
}

// Remaining lists the entities still waiting for a lot, current one excluded.
func Remaining(s State) []catalog.EntityID {
	if s.Phase != PhaseBidding || s.Cursor+1 >= len(s.Pool) {
		return nil
	}
	return append([]catalog.EntityID{}, s.Pool[s.Cursor+1:]...)
}
