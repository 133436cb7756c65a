package engine

import "time"

type TimerKind string

const (
	TimerRetention TimerKind = "retention"
	TimerBid       TimerKind = "bid"
	TimerRTM       TimerKind = "rtm"
)

// TimerKey names exactly one deadline. Any change of round or accepted bid
// produces a new key, so a timer armed under an old key is stale.
type TimerKey struct {
	Kind TimerKind
	Lot  int
	Seq  int
}

// PendingTimer reports the deadline the room must have armed for s.
func PendingTimer(s State) (TimerKey, time.Time, bool) {
	switch {
	case s.Phase == PhaseRetention && !s.RetentionDeadline.IsZero():
		return TimerKey{Kind: TimerRetention, Lot: -1}, s.RetentionDeadline, true
	case s.Phase == PhaseBidding && s.Round.Status == RoundOpen:
		return TimerKey{Kind: TimerBid, Lot: s.Round.Lot, Seq: s.Round.Seq}, s.Round.Deadline, true
	case s.Phase == PhaseBidding && s.Round.Status == RoundRTM && s.Round.RTM != nil:
		return TimerKey{Kind: TimerRTM, Lot: s.Round.Lot, Seq: s.Round.Seq}, s.Round.RTM.Deadline, true
	}
	return TimerKey{}, time.Time{}, false
}

// TimeoutCommand is the system command delivered when key's deadline passes.
func TimeoutCommand(key TimerKey, at time.Time) Command {
	cmd := Command{Lot: key.Lot, Seq: key.Seq, At: at}
	switch key.Kind {
	case TimerRetention:
		cmd.Type = CmdRetentionTimeout
	case TimerBid:
		cmd.Type = CmdRoundTimeout
	case TimerRTM:
		cmd.Type = CmdRTMTimeout
	}
	return cmd
}
