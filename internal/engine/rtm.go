package engine

// rtmEligible finds the previous franchise of the lot's entity if it may
// match the winning bid. Unbound teams are skipped since nobody can decide
// for them.
func rtmEligible(s *State) (TeamID, bool) {
	if s.Rules.RTMRights <= 0 {
		return "", false
	}
	prev, ok := s.catalog.PreviousTeam(s.Round.Entity)
	if !ok {
		return "", false
	}
	i := s.TeamIndex(TeamID(prev))
	if i < 0 {
		return "", false
	}
	t := &s.Teams[i]
	if t.ID == s.Round.Holder || t.RTMRemaining <= 0 || t.Controller == ControllerNone {
		return "", false
	}
	if canAcquire(s, t, s.Round.Entity, s.Round.Amount) != nil {
		return "", false
	}
	return t.ID, true
}

func offerRTM(s *State, cmd Command, holder TeamID) []Event {
	s.Round.Status = RoundRTM
	s.Round.Seq++
	s.Round.RTM = &RTMOffer{
		Holder:   holder,
		Winner:   s.Round.Holder,
		Amount:   s.Round.Amount,
		Status:   RTMOffered,
		Deadline: cmd.At.Add(s.Rules.RTMWindow),
	}
	return []Event{{Type: EvtRTMOffered, Team: holder, Entity: s.Round.Entity, Amount: s.Round.Amount, Lot: s.Round.Lot, RTM: RTMOffered}}
}

// pendingRTM checks that an RTM decision in status want is open, that the
// window has not passed, and that the acting team is the expected side.
func pendingRTM(s *State, cmd Command, want RTMStatus, holderActs bool) (*RTMOffer, error) {
	if s.Phase != PhaseBidding {
		return nil, ErrWrongPhase
	}
	offer := s.Round.RTM
	if s.Round.Status != RoundRTM || offer == nil || offer.Status != want {
		return nil, ErrNoRTMOffer
	}
	t, err := actingTeam(s, cmd)
	if err != nil {
		return nil, err
	}
	if holderActs && t.ID != offer.Holder {
		return nil, ErrNotRightsHolder
	}
	if !holderActs && t.ID != offer.Winner {
		return nil, ErrNotRTMWinner
	}
	if !cmd.At.Before(offer.Deadline) {
		return nil, ErrLotClosed
	}
	return offer, nil
}

func exerciseRTM(s *State, cmd Command) ([]Event, error) {
	offer, err := pendingRTM(s, cmd, RTMOffered, true)
	if err != nil {
		return nil, err
	}
	holder, _ := s.Team(offer.Holder)
	if holder.RTMRemaining <= 0 {
		return nil, ErrNoRTMRights
	}

	if !s.Rules.RTMHike {
		return rtmToHolder(s, cmd)
	}
	offer.Status = RTMHikeWindow
	offer.Deadline = cmd.At.Add(s.Rules.RTMWindow)
	s.Round.Seq++
	return []Event{{Type: EvtRTMExercised, Team: offer.Holder, Entity: s.Round.Entity, Amount: offer.Amount, Lot: s.Round.Lot, RTM: RTMHikeWindow}}, nil
}

func declineRTM(s *State, cmd Command) ([]Event, error) {
	if _, err := pendingRTM(s, cmd, RTMOffered, true); err != nil {
		return nil, err
	}
	return rtmToWinner(s, cmd, RTMDeclined)
}

// raiseRTM is the winner's single hike after the rights-holder exercised.
func raiseRTM(s *State, cmd Command) ([]Event, error) {
	offer, err := pendingRTM(s, cmd, RTMHikeWindow, false)
	if err != nil {
		return nil, err
	}
	if cmd.Amount <= offer.Amount {
		return nil, ErrRaiseTooLow
	}
	winner := &s.Teams[s.TeamIndex(offer.Winner)]
	if err := canAcquire(s, winner, s.Round.Entity, cmd.Amount); err != nil {
		return nil, err
	}

	offer.Amount = cmd.Amount
	offer.Status = RTMAwaitMatch
	offer.Deadline = cmd.At.Add(s.Rules.RTMWindow)
	s.Round.Seq++
	return []Event{{Type: EvtRTMRaised, Team: offer.Winner, Entity: s.Round.Entity, Amount: cmd.Amount, Lot: s.Round.Lot, RTM: RTMAwaitMatch}}, nil
}

func passRTM(s *State, cmd Command) ([]Event, error) {
	if _, err := pendingRTM(s, cmd, RTMHikeWindow, false); err != nil {
		return nil, err
	}
	return rtmToHolder(s, cmd)
}

func matchRTM(s *State, cmd Command) ([]Event, error) {
	offer, err := pendingRTM(s, cmd, RTMAwaitMatch, true)
	if err != nil {
		return nil, err
	}
	if cmd.Amount != offer.Amount {
		return nil, ErrMatchAmount
	}
	holder := &s.Teams[s.TeamIndex(offer.Holder)]
	if err := canAcquire(s, holder, s.Round.Entity, offer.Amount); err != nil {
		return nil, err
	}
	return rtmToHolder(s, cmd)
}

func forfeitRTM(s *State, cmd Command) ([]Event, error) {
	if _, err := pendingRTM(s, cmd, RTMAwaitMatch, true); err != nil {
		return nil, err
	}
	return rtmToWinner(s, cmd, RTMForfeited)
}

// rtmTimeout resolves whichever side failed to act in time.
func rtmTimeout(s *State, cmd Command) ([]Event, error) {
	offer := s.Round.RTM
	if s.Phase != PhaseBidding || s.Round.Status != RoundRTM || offer == nil {
		return nil, ErrStaleTimer
	}
	if cmd.Lot != s.Round.Lot || cmd.Seq != s.Round.Seq {
		return nil, ErrStaleTimer
	}
	switch offer.Status {
	case RTMOffered:
		return rtmToWinner(s, cmd, RTMExpired)
	case RTMHikeWindow:
		return rtmToHolder(s, cmd)
	case RTMAwaitMatch:
		return rtmToWinner(s, cmd, RTMForfeited)
	}
	return nil, ErrStaleTimer
}

func rtmToHolder(s *State, cmd Command) ([]Event, error) {
	offer := s.Round.RTM
	events, err := settle(s, offer.Holder, s.Round.Entity, offer.Amount, true)
	if err != nil {
		return nil, err
	}
	s.Teams[s.TeamIndex(offer.Holder)].RTMRemaining--
	offer.Status = RTMMatched
	events = append([]Event{{Type: EvtRTMResolved, Team: offer.Holder, Entity: s.Round.Entity, Amount: offer.Amount, Lot: s.Round.Lot, RTM: RTMMatched}}, events...)
	return append(events, advance(s, cmd)...), nil
}

func rtmToWinner(s *State, cmd Command, status RTMStatus) ([]Event, error) {
	offer := s.Round.RTM
	events, err := settle(s, offer.Winner, s.Round.Entity, offer.Amount, false)
	if err != nil {
		return nil, err
	}
	offer.Status = status
	events = append([]Event{{Type: EvtRTMResolved, Team: offer.Winner, Entity: s.Round.Entity, Amount: offer.Amount, Lot: s.Round.Lot, RTM: status}}, events...)
	return append(events, advance(s, cmd)...), nil
}
