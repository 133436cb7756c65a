package engine

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
)

func checkInvariants(t *testing.T, s State, step int) {
	t.Helper()
	owner := make(map[catalog.EntityID]TeamID)
	for _, tm := range s.Teams {
		if tm.Budget < 0 {
			t.Fatalf("step %d: team %s budget %d", step, tm.ID, tm.Budget)
		}
		if len(tm.Roster) > s.Rules.MaxSquad {
			t.Fatalf("step %d: team %s roster %d > %d", step, tm.ID, len(tm.Roster), s.Rules.MaxSquad)
		}
		overseas := 0
		for _, id := range tm.Roster {
			if prev, dup := owner[id]; dup {
				t.Fatalf("step %d: %s on %s and %s", step, id, prev, tm.ID)
			}
			owner[id] = tm.ID
			if e, _ := s.Catalog().Entity(id); e.Overseas {
				overseas++
			}
		}
		if overseas > s.Rules.OverseasCap || overseas != tm.OverseasCount {
			t.Fatalf("step %d: team %s overseas %d (tracked %d)", step, tm.ID, overseas, tm.OverseasCount)
		}
	}
}

func randomCommand(r *rand.Rand, s State, now time.Time) Command {
	participants := map[TeamID]string{"A": "pa", "B": "pb", "C": "pc"}
	tm := s.Teams[r.IntN(len(s.Teams))]
	cmd := Command{Team: tm.ID, Participant: participants[tm.ID], At: now}

	switch r.IntN(9) {
	case 0:
		cmd.Type = CmdRetain
		if len(tm.DefaultSquad) > 0 {
			cmd.Entity = tm.DefaultSquad[r.IntN(len(tm.DefaultSquad))]
		}
	case 1:
		cmd.Type = CmdFinishRetention
	case 2, 3, 4:
		cmd.Type = CmdBid
		cmd.Amount, _ = NextBid(s)
		if r.IntN(5) == 0 {
			cmd.Amount += int64(r.IntN(5)) - 2
		}
	case 5:
		key, _, ok := PendingTimer(s)
		if !ok {
			return Command{Type: CmdRoundTimeout, Lot: -5, At: now}
		}
		return TimeoutCommand(key, now)
	default:
		kinds := []CommandType{CmdExerciseRTM, CmdDeclineRTM, CmdRaiseRTM, CmdPassRTM, CmdMatchRTM, CmdForfeitRTM}
		cmd.Type = kinds[r.IntN(len(kinds))]
		if s.Round.RTM != nil {
			cmd.Amount = s.Round.RTM.Amount + int64(r.IntN(3))*5
		}
	}
	return cmd
}

func TestProperty_RandomActionsNeverBreakLedger(t *testing.T) {
	rules := testRules()
	rules.MaxSquad = 3
	rules.OverseasCap = 1
	rules.RTMHike = true
	rules.RetentionWindow = time.Minute

	for seed := uint64(1); seed <= 40; seed++ {
		r := rand.New(rand.NewPCG(seed, 99))
		s := retentionState(t, rules)
		now := t0

		for step := 0; step < 400 && !s.Phase.Finished(); step++ {
			now = now.Add(time.Duration(r.IntN(4)) * time.Second)
			_, next, err := Apply(s, randomCommand(r, s, now))
			if err != nil {
				if !IsRejection(err) {
					t.Fatalf("seed %d step %d: fatal %v", seed, step, err)
				}
				continue
			}
			s = next
			checkInvariants(t, s, step)
		}
	}
}
