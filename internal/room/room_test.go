package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/DoyleJ11/auction-room-backend/internal/ai"
	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
	"github.com/DoyleJ11/auction-room-backend/internal/engine"
	"github.com/DoyleJ11/auction-room-backend/internal/history/mocks"
)

var start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const wait = 200 * time.Millisecond

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := &catalog.Catalog{
		Season:     "test",
		Franchises: []catalog.Franchise{{ID: "A", Name: "Alpha"}, {ID: "B", Name: "Bravo"}},
		Entities: []catalog.Entity{
			{ID: "a1", Name: "Ay One", Role: catalog.RoleBatter, BasePrice: 10},
			{ID: "f1", Name: "Eff One", Role: catalog.RoleBowler, BasePrice: 10},
			{ID: "f2", Name: "Eff Two", Role: catalog.RoleAllRounder, BasePrice: 10},
		},
		DefaultSquads: map[string][]catalog.EntityID{"A": {"a1"}},
	}
	require.NoError(t, c.Index())
	return c
}

func testRules() engine.Rules {
	return engine.Rules{
		Purse:            100,
		MaxRetention:     1,
		RetentionCost:    []int64{30},
		MaxSquad:         3,
		OverseasCap:      1,
		Increments:       []engine.IncrementBand{{Below: 0, Step: 2}},
		BidTimer:         10 * time.Second,
		RTMWindow:        5 * time.Second,
		RTMRights:        1,
		DisconnectPolicy: engine.DisconnectIdle,
	}
}

func newRoom(t *testing.T, rules engine.Rules, opts Options) (*Room, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClockAt(start)
	opts.Clock = clk
	s := engine.NewState("ROOM01", "pa", rules, testCatalog(t), []catalog.EntityID{"f1", "a1", "f2"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRoom(ctx, s, opts), clk
}

// helper: receive one outbound message with a timeout so tests never hang
func recv(t *testing.T, ch <-chan Outbound) Outbound {
	t.Helper()
	select {
	case out, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return out
	case <-time.After(wait):
		t.Fatalf("timed out waiting for outbound message")
		return Outbound{}
	}
}

func recvSnapshot(t *testing.T, ch <-chan Outbound) Snapshot {
	t.Helper()
	out := recv(t, ch)
	if out.Snapshot == nil {
		t.Fatalf("expected snapshot, got notice %+v", out.Notice)
	}
	return *out.Snapshot
}

func recvNotice(t *testing.T, ch <-chan Outbound) Notice {
	t.Helper()
	out := recv(t, ch)
	if out.Notice == nil {
		t.Fatalf("expected notice, got snapshot v%d", out.Snapshot.Version)
	}
	return *out.Notice
}

// recvUntil skips snapshots until one satisfies ok.
func recvUntil(t *testing.T, ch <-chan Outbound, ok func(engine.State) bool) engine.State {
	t.Helper()
	for {
		snap := recvSnapshot(t, ch)
		if ok(snap.State) {
			return snap.State
		}
	}
}

func recvNothing(t *testing.T, ch <-chan Outbound) {
	t.Helper()
	select {
	case out, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected nothing, got %+v", out)
	case <-time.After(50 * time.Millisecond):
	}
}

func recvClosed(t *testing.T, ch <-chan Outbound) {
	t.Helper()
	timeout := time.After(wait)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatalf("outbox was not closed")
		}
	}
}

// armed waits until exactly n timers are pending on clk.
func armed(t *testing.T, clk *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	require.NoError(t, clk.BlockUntilContext(ctx, n), "want %d pending timers", n)
}

func view(t *testing.T, r *Room) View {
	t.Helper()
	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(wait):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

func join(t *testing.T, r *Room, id, participant string) chan Outbound {
	t.Helper()
	out := make(chan Outbound, 16)
	r.Inbox() <- Join{ClientID: id, Participant: participant, Outbox: out}
	return out
}

// do sends cmd from client and returns the broadcast seen by every outbox.
func do(t *testing.T, r *Room, client string, cmd engine.Command, outs ...chan Outbound) Snapshot {
	t.Helper()
	r.Inbox() <- FromClient{ClientID: client, Cmd: cmd}
	var snap Snapshot
	for i, out := range outs {
		s := recvSnapshot(t, out)
		if i == 0 {
			snap = s
		}
	}
	return snap
}

// biddingRoom joins pa and pb, binds them to A and B and opens the first lot.
func biddingRoom(t *testing.T, rules engine.Rules, opts Options) (*Room, *clockwork.FakeClock, chan Outbound, chan Outbound) {
	t.Helper()
	r, clk := newRoom(t, rules, opts)
	outA := join(t, r, "ca", "pa")
	recvSnapshot(t, outA)
	outB := join(t, r, "cb", "pb")
	recvSnapshot(t, outB)

	do(t, r, "ca", engine.Command{Type: engine.CmdClaimTeam, Team: "A"}, outA, outB)
	do(t, r, "cb", engine.Command{Type: engine.CmdClaimTeam, Team: "B"}, outA, outB)
	do(t, r, "ca", engine.Command{Type: engine.CmdStartRetention}, outA, outB)
	do(t, r, "ca", engine.Command{Type: engine.CmdFinishRetention, Team: "A"}, outA, outB)
	snap := do(t, r, "cb", engine.Command{Type: engine.CmdFinishRetention, Team: "B"}, outA, outB)
	require.Equal(t, engine.PhaseBidding, snap.State.Phase)
	require.Equal(t, catalog.EntityID("f1"), snap.State.Round.Entity)
	return r, clk, outA, outB
}

func TestRoom_JoinSendsCurrentSnapshot_ClaimBroadcasts(t *testing.T) {
	r, _ := newRoom(t, testRules(), Options{})

	out := join(t, r, "c1", "pa")
	first := recvSnapshot(t, out)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, engine.PhaseSetup, first.State.Phase)

	next := do(t, r, "c1", engine.Command{Type: engine.CmdClaimTeam, Team: "A"}, out)
	assert.Equal(t, 1, next.Version)
	team, _ := next.State.Team("A")
	assert.Equal(t, engine.ControllerHuman, team.Controller)
	assert.Equal(t, "pa", team.Participant)
}

func TestRoom_RejectionIsPrivate(t *testing.T) {
	r, _ := newRoom(t, testRules(), Options{})
	outA := join(t, r, "ca", "pa")
	recvSnapshot(t, outA)
	outB := join(t, r, "cb", "pb")
	recvSnapshot(t, outB)

	do(t, r, "ca", engine.Command{Type: engine.CmdClaimTeam, Team: "A"}, outA, outB)

	r.Inbox() <- FromClient{ClientID: "cb", Cmd: engine.Command{Type: engine.CmdClaimTeam, Team: "A"}}
	n := recvNotice(t, outB)
	assert.Equal(t, engine.CmdClaimTeam, n.Command)
	assert.ErrorIs(t, n.Err, engine.ErrTeamTaken)
	recvNothing(t, outA)

	r.Inbox() <- FromClient{ClientID: "cb", Cmd: engine.Command{Type: engine.CmdStartRetention}}
	assert.ErrorIs(t, recvNotice(t, outB).Err, engine.ErrNotHost)

	assert.Equal(t, 1, view(t, r).Version)
}

func TestRoom_RejectsSpectatorsAndSystemCommands(t *testing.T) {
	r, _ := newRoom(t, testRules(), Options{})
	spec := join(t, r, "s1", "")
	recvSnapshot(t, spec)
	player := join(t, r, "c1", "pa")
	recvSnapshot(t, player)

	r.Inbox() <- FromClient{ClientID: "s1", Cmd: engine.Command{Type: engine.CmdStartRetention}}
	assert.ErrorIs(t, recvNotice(t, spec).Err, ErrSpectator)

	r.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdRoundTimeout}}
	assert.ErrorIs(t, recvNotice(t, player).Err, engine.ErrUnsupportedCommand)

	r.Inbox() <- FromClient{ClientID: "ghost", Cmd: engine.Command{Type: engine.CmdStartRetention}}
	assert.Equal(t, engine.PhaseSetup, view(t, r).State.Phase)
}

func TestRoom_BidTimerScenario(t *testing.T) {
	r, clk, outA, outB := biddingRoom(t, testRules(), Options{})

	snap := do(t, r, "ca", engine.Command{Type: engine.CmdBid, Team: "A", Amount: 10}, outA, outB)
	assert.Equal(t, start.Add(10*time.Second), snap.State.Round.Deadline)

	clk.Advance(2 * time.Second)
	r.Inbox() <- FromClient{ClientID: "ca", Cmd: engine.Command{Type: engine.CmdBid, Team: "A", Amount: 10}}
	assert.ErrorIs(t, recvNotice(t, outA).Err, engine.ErrAlreadyHighBidder)
	recvNothing(t, outB)

	clk.Advance(time.Second)
	snap = do(t, r, "cb", engine.Command{Type: engine.CmdBid, Team: "B", Amount: 12}, outA, outB)
	assert.Equal(t, start.Add(13*time.Second), snap.State.Round.Deadline)
	armed(t, clk, 1)

	// The original t=10 deadline must not close the round.
	clk.Advance(7 * time.Second)
	recvNothing(t, outA)

	clk.Advance(3 * time.Second)
	closed := recvSnapshot(t, outA)
	recvSnapshot(t, outB)
	require.Len(t, closed.State.Sales, 1)
	assert.Equal(t, engine.Sale{Lot: 0, Entity: "f1", Team: "B", Amount: 12}, closed.State.Sales[0])
	b, _ := closed.State.Team("B")
	assert.Equal(t, int64(88), b.Budget)
	assert.Equal(t, catalog.EntityID("a1"), closed.State.Round.Entity)
	assert.Equal(t, start.Add(23*time.Second), closed.State.Round.Deadline)
}

func TestRoom_ClientCommandsUseRoomClock(t *testing.T) {
	r, clk, outA, outB := biddingRoom(t, testRules(), Options{})
	clk.Advance(4 * time.Second)

	forged := start.Add(-time.Hour)
	snap := do(t, r, "ca", engine.Command{Type: engine.CmdBid, Team: "A", Amount: 10, At: forged}, outA, outB)
	require.Len(t, snap.State.Round.History, 1)
	assert.Equal(t, start.Add(4*time.Second), snap.State.Round.History[0].At)
	assert.Equal(t, start.Add(14*time.Second), snap.State.Round.Deadline)
}

func TestRoom_StaleTimerMessageDropped(t *testing.T) {
	r, _, outA, outB := biddingRoom(t, testRules(), Options{})
	do(t, r, "ca", engine.Command{Type: engine.CmdBid, Team: "A", Amount: 10}, outA, outB)

	r.Inbox() <- timerFired{key: engine.TimerKey{Kind: engine.TimerBid, Lot: 0, Seq: 0}}
	recvNothing(t, outA)

	v := view(t, r)
	assert.Equal(t, engine.RoundOpen, v.State.Round.Status)
	assert.Empty(t, v.State.Sales)
}

func TestRoom_RTMWindowExpiresToWinner(t *testing.T) {
	r, clk, outA, outB := biddingRoom(t, testRules(), Options{})

	clk.Advance(10 * time.Second)
	snap := recvSnapshot(t, outA)
	recvSnapshot(t, outB)
	require.Equal(t, []catalog.EntityID{"f1"}, snap.State.Unsold)
	require.Equal(t, catalog.EntityID("a1"), snap.State.Round.Entity)

	do(t, r, "cb", engine.Command{Type: engine.CmdBid, Team: "B", Amount: 10}, outA, outB)
	clk.Advance(10 * time.Second)
	offered := recvSnapshot(t, outA)
	recvSnapshot(t, outB)
	require.Equal(t, engine.RoundRTM, offered.State.Round.Status)
	require.Equal(t, engine.TeamID("A"), offered.State.Round.RTM.Holder)

	clk.Advance(5 * time.Second)
	expired := recvSnapshot(t, outA)
	recvSnapshot(t, outB)
	require.Len(t, expired.State.Sales, 1)
	assert.Equal(t, engine.TeamID("B"), expired.State.Sales[0].Team)
	a, _ := expired.State.Team("A")
	assert.Equal(t, 1, a.RTMRemaining)
}

func TestRoom_RTMExercisedByHolder(t *testing.T) {
	r, clk, outA, outB := biddingRoom(t, testRules(), Options{})
	clk.Advance(10 * time.Second)
	recvSnapshot(t, outA)
	recvSnapshot(t, outB)

	do(t, r, "cb", engine.Command{Type: engine.CmdBid, Team: "B", Amount: 10}, outA, outB)
	clk.Advance(10 * time.Second)
	recvSnapshot(t, outA)
	recvSnapshot(t, outB)

	snap := do(t, r, "ca", engine.Command{Type: engine.CmdExerciseRTM, Team: "A"}, outA, outB)
	a, _ := snap.State.Team("A")
	b, _ := snap.State.Team("B")
	assert.Contains(t, a.Roster, catalog.EntityID("a1"))
	assert.Equal(t, int64(90), a.Budget)
	assert.Equal(t, int64(100), b.Budget)
	assert.Equal(t, catalog.EntityID("f2"), snap.State.Round.Entity)
}

func TestRoom_DropSlowClient(t *testing.T) {
	r, _ := newRoom(t, testRules(), Options{})

	slow := make(chan Outbound, 1)
	r.Inbox() <- Join{ClientID: "slow", Participant: "ps", Outbox: slow}
	fast := join(t, r, "fast", "pa")
	recvSnapshot(t, fast)

	do(t, r, "fast", engine.Command{Type: engine.CmdClaimTeam, Team: "A"}, fast)

	v := view(t, r)
	assert.Equal(t, 1, v.NumClients)
	recvSnapshot(t, slow)
	recvClosed(t, slow)
}

func TestRoom_DisconnectIdlePolicyFinishesRetention(t *testing.T) {
	r, _ := newRoom(t, testRules(), Options{})
	outA := join(t, r, "ca", "pa")
	recvSnapshot(t, outA)
	outB := join(t, r, "cb", "pb")
	recvSnapshot(t, outB)
	do(t, r, "ca", engine.Command{Type: engine.CmdClaimTeam, Team: "A"}, outA, outB)
	do(t, r, "cb", engine.Command{Type: engine.CmdClaimTeam, Team: "B"}, outA, outB)
	do(t, r, "ca", engine.Command{Type: engine.CmdStartRetention}, outA, outB)
	do(t, r, "ca", engine.Command{Type: engine.CmdFinishRetention, Team: "A"}, outA, outB)

	r.Inbox() <- Leave{ClientID: "cb"}
	snap := recvSnapshot(t, outA)
	b, _ := snap.State.Team("B")
	assert.Equal(t, engine.ControllerNone, b.Controller)
	assert.Equal(t, engine.PhaseBidding, snap.State.Phase)
}

func TestRoom_DisconnectAIPolicy_RebindOnReconnect(t *testing.T) {
	rules := testRules()
	rules.DisconnectPolicy = engine.DisconnectAI
	r, _, outA, outB := biddingRoom(t, rules, Options{})

	r.Inbox() <- Leave{ClientID: "cb"}
	snap := recvSnapshot(t, outA)
	b, _ := snap.State.Team("B")
	assert.Equal(t, engine.ControllerAI, b.Controller)
	assert.Equal(t, "pb", b.Participant)

	// A second connection of pa leaving must not release A.
	extra := join(t, r, "ca2", "pa")
	recvSnapshot(t, extra)
	r.Inbox() <- Leave{ClientID: "ca2"}
	a, _ := view(t, r).State.Team("A")
	assert.Equal(t, engine.ControllerHuman, a.Controller)

	back := join(t, r, "cb2", "pb")
	recvSnapshot(t, back)
	rebound := recvSnapshot(t, back)
	b, _ = rebound.State.Team("B")
	assert.Equal(t, engine.ControllerHuman, b.Controller)
	assert.Equal(t, "pb", b.Participant)
	recvSnapshot(t, outA)
	recvNothing(t, outB)
}

func TestRoom_HostCloseTearsDown(t *testing.T) {
	closedCh := make(chan string, 1)
	r, clk, outA, outB := biddingRoom(t, testRules(), Options{OnClose: func(rm *Room) { closedCh <- rm.Code() }})

	r.Inbox() <- FromClient{ClientID: "cb", Cmd: engine.Command{Type: engine.CmdClose}}
	assert.ErrorIs(t, recvNotice(t, outB).Err, engine.ErrNotHost)

	r.Inbox() <- FromClient{ClientID: "ca", Cmd: engine.Command{Type: engine.CmdClose}}
	snap := recvSnapshot(t, outA)
	assert.Equal(t, engine.PhaseClosed, snap.State.Phase)
	recvClosed(t, outA)
	recvClosed(t, outB)

	select {
	case <-r.Done():
	case <-time.After(wait):
		t.Fatalf("room did not stop")
	}
	assert.Equal(t, "ROOM01", <-closedCh)
	armed(t, clk, 0)
	assert.ErrorIs(t, r.Post(context.Background(), Shutdown{}), ErrRoomClosed)
}

func TestRoom_Shutdown_StopsTimer_NoFire(t *testing.T) {
	r, clk, outA, _ := biddingRoom(t, testRules(), Options{})
	armed(t, clk, 1)

	r.Inbox() <- Shutdown{}
	recvClosed(t, outA)
	<-r.Done()

	armed(t, clk, 0)
	clk.Advance(time.Minute)
}

func TestRoom_IdleTimeoutIgnoresObservers(t *testing.T) {
	r, clk := newRoom(t, testRules(), Options{IdleTimeout: time.Minute})

	obs := make(chan Outbound, 4)
	r.Inbox() <- Join{ClientID: "mirror", Observer: true, Outbox: obs}
	recvSnapshot(t, obs)

	clk.Advance(time.Minute)
	snap := recvSnapshot(t, obs)
	assert.Equal(t, engine.PhaseClosed, snap.State.Phase)
	recvClosed(t, obs)
	<-r.Done()
}

func TestRoom_IdleTimerCancelledByJoin(t *testing.T) {
	r, clk := newRoom(t, testRules(), Options{IdleTimeout: time.Minute})
	out := join(t, r, "c1", "pa")
	recvSnapshot(t, out)

	clk.Advance(2 * time.Minute)
	recvNothing(t, out)

	r.Inbox() <- Leave{ClientID: "c1"}
	assert.Equal(t, 0, view(t, r).NumClients)
	clk.Advance(time.Minute)
	<-r.Done()
}

func TestRoom_InvariantFailureErrorsRoom(t *testing.T) {
	rules := testRules()
	s := engine.NewState("ROOM01", "", rules, testCatalog(t), []catalog.EntityID{"f1", "a1", "f2"})
	for _, cmd := range []engine.Command{
		{Type: engine.CmdClaimTeam, Team: "A", Participant: "pa"},
		{Type: engine.CmdClaimTeam, Team: "B", Participant: "pb"},
		{Type: engine.CmdStartRetention, At: start},
		{Type: engine.CmdFinishRetention, Team: "A", Participant: "pa", At: start},
		{Type: engine.CmdFinishRetention, Team: "B", Participant: "pb", At: start},
		{Type: engine.CmdBid, Team: "B", Participant: "pb", Amount: 10, At: start},
	} {
		var err error
		_, s, err = engine.Apply(s, cmd)
		require.NoError(t, err)
	}
	// Corrupt the ledger behind the engine's back.
	s = s.Clone()
	s.Teams[s.TeamIndex("B")].Budget = 5

	clk := clockwork.NewFakeClockAt(start)
	r := NewRoom(context.Background(), s, Options{Clock: clk})
	out := join(t, r, "c1", "pa")
	recvSnapshot(t, out)

	clk.Advance(10 * time.Second)
	snap := recvSnapshot(t, out)
	assert.Equal(t, engine.PhaseErrored, snap.State.Phase)
	assert.Contains(t, snap.State.Error, engine.ErrInvariantViolation.Error())
	assert.Empty(t, snap.State.Sales)
	armed(t, clk, 0)

	r.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdBid, Team: "A", Amount: 12}}
	assert.ErrorIs(t, recvNotice(t, out).Err, engine.ErrRoomFinished)
	r.Inbox() <- Shutdown{}
}

func TestRoom_AIFillRunsAuctionAndRecordsHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	recorded := make(chan engine.State, 1)
	rec.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, s engine.State) error {
		recorded <- s
		return errors.New("database unavailable")
	}).Times(1)

	rules := testRules()
	rules.AIFill = true
	r, clk := newRoom(t, rules, Options{Strategy: ai.NewBudgeted(), Recorder: rec})

	host := make(chan Outbound, 256)
	r.Inbox() <- Join{ClientID: "host", Participant: "pa", Outbox: host}
	recvSnapshot(t, host)
	r.Inbox() <- FromClient{ClientID: "host", Cmd: engine.Command{Type: engine.CmdStartRetention}}

	// Keep time moving until the room completes; each lot needs one expiry.
	var final engine.State
	giveUp := time.After(2 * time.Second)
	for waiting := true; waiting; {
		select {
		case final = <-recorded:
			waiting = false
		case <-giveUp:
			t.Fatalf("history was not recorded")
		case <-time.After(5 * time.Millisecond):
			clk.Advance(10 * time.Second)
		}
	}
	assert.Equal(t, engine.PhaseComplete, final.Phase)
	a, _ := final.Team("A")
	assert.Equal(t, []catalog.EntityID{"a1"}, a.Retained)
	for _, sale := range final.Sales {
		team, _ := final.Team(sale.Team)
		assert.Equal(t, engine.ControllerAI, team.Controller)
	}
	assert.Len(t, final.Sales, 2)
}

func TestRoom_AIWinnerRaisesAfterRTMExercised(t *testing.T) {
	rules := testRules()
	rules.AIFill = true
	rules.RTMHike = true
	r, clk := newRoom(t, rules, Options{Strategy: ai.NewBudgeted()})

	out := make(chan Outbound, 64)
	r.Inbox() <- Join{ClientID: "ca", Participant: "pa", Outbox: out}
	recvSnapshot(t, out)
	do(t, r, "ca", engine.Command{Type: engine.CmdClaimTeam, Team: "A"}, out)
	r.Inbox() <- FromClient{ClientID: "ca", Cmd: engine.Command{Type: engine.CmdStartRetention}}
	r.Inbox() <- FromClient{ClientID: "ca", Cmd: engine.Command{Type: engine.CmdFinishRetention, Team: "A"}}

	recvUntil(t, out, func(s engine.State) bool { return s.Round.Entity == "f1" && s.Round.Holder == "B" })
	clk.Advance(10 * time.Second)
	recvUntil(t, out, func(s engine.State) bool { return s.Round.Entity == "a1" && s.Round.Holder == "B" })
	clk.Advance(10 * time.Second)
	offered := recvUntil(t, out, func(s engine.State) bool { return s.Round.Status == engine.RoundRTM })
	require.Equal(t, engine.TeamID("A"), offered.Round.RTM.Holder)

	r.Inbox() <- FromClient{ClientID: "ca", Cmd: engine.Command{Type: engine.CmdExerciseRTM, Team: "A"}}
	raised := recvUntil(t, out, func(s engine.State) bool {
		return s.Round.RTM != nil && s.Round.RTM.Status == engine.RTMAwaitMatch
	})
	assert.Equal(t, int64(12), raised.Round.RTM.Amount)

	r.Inbox() <- FromClient{ClientID: "ca", Cmd: engine.Command{Type: engine.CmdMatchRTM, Team: "A", Amount: 12}}
	sold := recvUntil(t, out, func(s engine.State) bool { return len(s.Sales) == 2 })
	assert.Equal(t, engine.Sale{Lot: 1, Entity: "a1", Team: "A", Amount: 12, ViaRTM: true}, sold.Sales[1])
	a, _ := sold.Team("A")
	b, _ := sold.Team("B")
	assert.Equal(t, int64(88), a.Budget)
	assert.Equal(t, int64(90), b.Budget)
	assert.Equal(t, 0, a.RTMRemaining)
}
