package engine

import (
	"errors"
	"time"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
)

// Rejections leave the state untouched and are reported only to the caller.
var (
	ErrWrongPhase         = errors.New("action not allowed in this phase")
	ErrRoomFinished       = errors.New("room is no longer running")
	ErrUnknownTeam        = errors.New("unknown team")
	ErrNotYourTeam        = errors.New("team is not controlled by this participant")
	ErrNotHost            = errors.New("only the host can do that")
	ErrTeamTaken          = errors.New("team already has a human controller")
	ErrAlreadyBound       = errors.New("participant already controls a team")
	ErrNotInDefaultSquad  = errors.New("entity is not in the team's previous squad")
	ErrAlreadyRetained    = errors.New("entity already retained")
	ErrRetentionSlotsFull = errors.New("no retention slots left")
	ErrRetentionDone      = errors.New("team already finished retention")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrSquadFull          = errors.New("squad is full")
	ErrOverseasCap        = errors.New("overseas cap reached")
	ErrNoOpenLot          = errors.New("no lot is open for bidding")
	ErrAlreadyHighBidder  = errors.New("team already holds the high bid")
	ErrStaleBid           = errors.New("bid no longer exceeds the current high bid")
	ErrBidIncrement       = errors.New("bid does not match the required increment")
	ErrLotClosed          = errors.New("bidding window has closed")
	ErrStaleTimer         = errors.New("timer no longer applies")
	ErrNoRTMOffer         = errors.New("no right-to-match decision is pending")
	ErrNotRightsHolder    = errors.New("team does not hold the right to match")
	ErrNotRTMWinner       = errors.New("team did not win the lot")
	ErrNoRTMRights        = errors.New("team has no right-to-match cards left")
	ErrRaiseTooLow        = errors.New("raise must exceed the matched amount")
	ErrMatchAmount        = errors.New("match must equal the raised amount")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// ErrInvariantViolation means validated state failed to settle. It is fatal
// to the room.
var ErrInvariantViolation = errors.New("ledger invariant violated")

type CommandType string

const (
	CmdClaimTeam        CommandType = "ClaimTeam"
	CmdReleaseTeam      CommandType = "ReleaseTeam"
	CmdStartRetention   CommandType = "StartRetention"
	CmdRetain           CommandType = "Retain"
	CmdFinishRetention  CommandType = "FinishRetention"
	CmdRetentionTimeout CommandType = "RetentionTimeout"
	CmdBid              CommandType = "Bid"
	CmdRoundTimeout     CommandType = "RoundTimeout"
	CmdExerciseRTM      CommandType = "ExerciseRTM"
	CmdDeclineRTM       CommandType = "DeclineRTM"
	CmdRaiseRTM         CommandType = "RaiseRTM"
	CmdPassRTM          CommandType = "PassRTM"
	CmdMatchRTM         CommandType = "MatchRTM"
	CmdForfeitRTM       CommandType = "ForfeitRTM"
	CmdRTMTimeout       CommandType = "RTMTimeout"
	CmdClose            CommandType = "Close"
)

// Command is one state-changing request. Participant and At are stamped by
// the room from the connection and its clock when the command is processed,
// never taken from the client.
type Command struct {
	Type        CommandType
	Team        TeamID
	Participant string
	Entity      catalog.EntityID
	Amount      int64
	Lot         int
	Seq         int
	At          time.Time
}

type EventType string

const (
	EvtTeamClaimed       EventType = "TeamClaimed"
	EvtTeamReleased      EventType = "TeamReleased"
	EvtRetentionStarted  EventType = "RetentionStarted"
	EvtPlayerRetained    EventType = "PlayerRetained"
	EvtRetentionFinished EventType = "RetentionFinished"
	EvtBiddingStarted    EventType = "BiddingStarted"
	EvtLotOpened         EventType = "LotOpened"
	EvtBidAccepted       EventType = "BidAccepted"
	EvtLotUnsold         EventType = "LotUnsold"
	EvtRTMOffered        EventType = "RTMOffered"
	EvtRTMExercised      EventType = "RTMExercised"
	EvtRTMRaised         EventType = "RTMRaised"
	EvtRTMResolved       EventType = "RTMResolved"
	EvtPlayerSold        EventType = "PlayerSold"
	EvtAuctionCompleted  EventType = "AuctionCompleted"
	EvtRoomClosed        EventType = "RoomClosed"
)

type Event struct {
	Type   EventType
	Team   TeamID
	Entity catalog.EntityID
	Amount int64
	Lot    int
	RTM    RTMStatus
}

// Apply validates cmd against s and returns the resulting state. On any
// error the returned state is s itself, unmodified.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if s.Phase.Finished() {
		return nil, s, ErrRoomFinished
	}

	var fn func(*State, Command) ([]Event, error)
	switch cmd.Type {
	case CmdClaimTeam:
		fn = claimTeam
	case CmdReleaseTeam:
		fn = releaseTeam
	case CmdStartRetention:
		fn = startRetention
	case CmdRetain:
		fn = retainPlayer
	case CmdFinishRetention:
		fn = finishRetention
	case CmdRetentionTimeout:
		fn = retentionTimeout
	case CmdBid:
		fn = placeBid
	case CmdRoundTimeout:
		fn = roundTimeout
	case CmdExerciseRTM:
		fn = exerciseRTM
	case CmdDeclineRTM:
		fn = declineRTM
	case CmdRaiseRTM:
		fn = raiseRTM
	case CmdPassRTM:
		fn = passRTM
	case CmdMatchRTM:
		fn = matchRTM
	case CmdForfeitRTM:
		fn = forfeitRTM
	case CmdRTMTimeout:
		fn = rtmTimeout
	case CmdClose:
		fn = closeRoom
	default:
		return nil, s, ErrUnsupportedCommand
	}

	next := s.Clone()
	events, err := fn(&next, cmd)
	if err != nil {
		return nil, s, err
	}
	return events, next, nil
}

// IsRejection reports whether err is an ordinary refusal rather than a
// fatal room error.
func IsRejection(err error) bool {
	return err != nil && !errors.Is(err, ErrInvariantViolation)
}

// MarkErrored moves the room into the errored phase after a fatal failure.
func MarkErrored(s State, cause error) State {
	next := s.Clone()
	next.Phase = PhaseErrored
	next.Error = cause.Error()
	next.Round.Deadline = time.Time{}
	return next
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func closeRoom(s *State, cmd Command) ([]Event, error) {
	if cmd.Participant != "" && s.Host != "" && cmd.Participant != s.Host {
		return nil, ErrNotHost
	}
	s.Phase = PhaseClosed
	s.Round.Deadline = time.Time{}
	return []Event{{Type: EvtRoomClosed}}, nil
}
