package engine

// actingTeam resolves cmd.Team and checks that cmd.Participant controls it.
func actingTeam(s *State, cmd Command) (*Team, error) {
	i := s.TeamIndex(cmd.Team)
	if i < 0 {
		return nil, ErrUnknownTeam
	}
	t := &s.Teams[i]
	switch {
	case cmd.Participant == AIParticipant && t.Controller == ControllerAI:
	case cmd.Participant != "" && t.Controller == ControllerHuman && t.Participant == cmd.Participant:
	default:
		return nil, ErrNotYourTeam
	}
	return t, nil
}

func claimTeam(s *State, cmd Command) ([]Event, error) {
	if cmd.Participant == "" || cmd.Participant == AIParticipant {
		return nil, ErrNotYourTeam
	}
	i := s.TeamIndex(cmd.Team)
	if i < 0 {
		return nil, ErrUnknownTeam
	}
	t := &s.Teams[i]
	if t.Controller == ControllerHuman {
		if t.Participant == cmd.Participant {
			return nil, ErrAlreadyBound
		}
		return nil, ErrTeamTaken
	}
	if _, bound := s.TeamOf(cmd.Participant); bound {
		return nil, ErrAlreadyBound
	}

	t.Controller = ControllerHuman
	t.Participant = cmd.Participant
	return []Event{{Type: EvtTeamClaimed, Team: t.ID}}, nil
}

// releaseTeam unbinds a human. Before the auction starts the slot simply
// empties; afterwards the room's disconnect policy decides who takes over.
// The last participant id is kept so a reconnect can rebind.
func releaseTeam(s *State, cmd Command) ([]Event, error) {
	t, err := actingTeam(s, cmd)
	if err != nil {
		return nil, err
	}
	if t.Controller != ControllerHuman {
		return nil, ErrNotYourTeam
	}

	t.Controller = ControllerNone
	if s.Phase != PhaseSetup && s.Rules.DisconnectPolicy == DisconnectAI {
		t.Controller = ControllerAI
	}

	events := []Event{{Type: EvtTeamReleased, Team: t.ID}}
	if s.Phase == PhaseRetention && t.Controller == ControllerNone && !t.RetentionDone {
		events = append(events, finishTeamRetention(s, t, cmd)...)
	}
	return events, nil
}

// fillVacancies applies the AI-fill policy to every team without a human.
func fillVacancies(s *State) {
	if !s.Rules.AIFill {
		return
	}
	for i := range s.Teams {
		if s.Teams[i].Controller == ControllerNone {
			s.Teams[i].Controller = ControllerAI
		}
	}
}
