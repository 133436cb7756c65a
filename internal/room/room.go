// Package room runs one auction room as a single-writer actor. Every
// state change, human or timer or AI, is applied from the room's own
// goroutine in arrival order.
package room

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-room-backend/internal/ai"
	"github.com/DoyleJ11/auction-room-backend/internal/engine"
	"github.com/DoyleJ11/auction-room-backend/internal/history"
)

// maxAISteps bounds the automated moves applied in response to one message.
const maxAISteps = 1024

type Options struct {
	Logger   *zap.Logger
	Clock    clockwork.Clock
	Strategy ai.Strategy
	Recorder history.Recorder

	// IdleTimeout tears the room down once no participant is connected
	// for this long. Zero disables it.
	IdleTimeout time.Duration
	// AIThinkDelay spaces automated moves. Zero applies them immediately.
	AIThinkDelay time.Duration
	// OnClose runs once from the room goroutine after teardown.
	OnClose func(r *Room)
}

type client struct {
	participant string
	observer    bool
	outbox      chan Outbound
}

type Room struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]client

	log        *zap.Logger
	clock      clockwork.Clock
	strategy   ai.Strategy
	recorder   history.Recorder
	idleAfter  time.Duration
	thinkDelay time.Duration
	onClose    func(*Room)

	timer    clockwork.Timer
	timerKey engine.TimerKey
	timerAt  time.Time
	aiTimer  clockwork.Timer
	aiDue    bool
	idle     clockwork.Timer
	idleGen  int
	recorded bool

	pendingRelease []string

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewRoom(parent context.Context, initial engine.State, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	r := &Room{
		code:       initial.Code,
		inbox:      make(chan Msg, 64),
		state:      initial,
		clients:    make(map[string]client),
		log:        opts.Logger.With(zap.String("room", initial.Code)),
		clock:      opts.Clock,
		strategy:   opts.Strategy,
		recorder:   opts.Recorder,
		idleAfter:  opts.IdleTimeout,
		thinkDelay: opts.AIThinkDelay,
		onClose:    opts.OnClose,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	// A room restored mid-auction needs its deadline armed before any input.
	r.reconcileTimer()
	r.armIdle()
	go r.loop()
	return r
}

// Inbox exposes the room's queue to the transport and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) Code() string { return r.code }

// Done is closed once the room has torn down.
func (r *Room) Done() <-chan struct{} { return r.done }

// Post queues m unless the room is gone or ctx ends first.
func (r *Room) Post(ctx context.Context, m Msg) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.inbox <- m:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is used by timer callbacks, which must never block a closed room.
func (r *Room) post(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.done:
	}
}

func (r *Room) loop() {
	defer close(r.done)
	for !r.stopped {
		select {
		case <-r.ctx.Done():
			r.teardown()

		case m := <-r.inbox:
			r.handle(m)
			r.flushReleases()
			r.runAI()
		}
	}
}

func (r *Room) handle(m Msg) {
	switch msg := m.(type) {
	case Join:
		r.join(msg)

	case Leave:
		r.leave(msg.ClientID)

	case FromClient:
		r.fromClient(msg)

	case timerFired:
		if r.timer == nil || msg.key != r.timerKey {
			r.log.Debug("stale timer dropped", zap.String("kind", string(msg.key.Kind)),
				zap.Int("lot", msg.key.Lot), zap.Int("seq", msg.key.Seq))
			return
		}
		r.timer = nil
		r.log.Info("deadline reached", zap.String("kind", string(msg.key.Kind)),
			zap.Int("lot", msg.key.Lot), zap.Int("seq", msg.key.Seq))
		r.apply(engine.TimeoutCommand(msg.key, r.timerAt), "")

	case aiTurn:
		if msg.version != r.version {
			return
		}
		r.aiTimer = nil
		r.stepAI()

	case idleExpired:
		if msg.gen != r.idleGen {
			return
		}
		r.idle = nil
		if r.participants() > 0 {
			return
		}
		r.log.Info("room idle, closing")
		r.closeRoom()

	case GetState:
		msg.Reply <- View{
			Version:    r.version,
			NumClients: len(r.clients),
			State:      r.state,
		}

	case Close:
		r.closeRoom()

	case Shutdown:
		r.teardown()
	}
}

func (r *Room) fromClient(msg FromClient) {
	c, ok := r.clients[msg.ClientID]
	if !ok {
		r.log.Debug("command from unknown client", zap.String("client", msg.ClientID))
		return
	}
	cmd := msg.Cmd
	switch {
	case c.participant == "":
		r.notify(msg.ClientID, cmd.Type, ErrSpectator)
		return
	case !clientCommands[cmd.Type]:
		r.notify(msg.ClientID, cmd.Type, engine.ErrUnsupportedCommand)
		return
	}
	cmd.Participant = c.participant
	cmd.At = r.clock.Now()
	r.apply(cmd, msg.ClientID)
}

// apply runs cmd through the engine and commits the result. A rejection
// goes back to from only; an invariant failure errors the room.
func (r *Room) apply(cmd engine.Command, from string) bool {
	if cmd.At.IsZero() {
		cmd.At = r.clock.Now()
	}
	events, next, err := engine.Apply(r.state, cmd)
	switch {
	case err == nil:
		r.commit(next, events)
		return true
	case engine.IsRejection(err):
		r.log.Debug("command rejected", zap.String("type", string(cmd.Type)),
			zap.String("team", string(cmd.Team)), zap.String("participant", cmd.Participant), zap.Error(err))
		r.notify(from, cmd.Type, err)
		return false
	default:
		r.log.Error("room failed", zap.String("type", string(cmd.Type)), zap.Error(err))
		r.commit(engine.MarkErrored(r.state, err), nil)
		return false
	}
}

func (r *Room) commit(next engine.State, events []engine.Event) {
	prev := r.state.Phase
	r.state = next
	r.version++
	if next.Phase != prev {
		r.log.Info("phase changed", zap.String("from", string(prev)), zap.String("to", string(next.Phase)))
	}
	for _, e := range events {
		switch e.Type {
		case engine.EvtPlayerSold:
			r.log.Info("entity sold", zap.String("entity", string(e.Entity)),
				zap.String("team", string(e.Team)), zap.Int64("amount", e.Amount))
		case engine.EvtLotUnsold:
			r.log.Info("entity unsold", zap.String("entity", string(e.Entity)))
		}
	}

	// The deadline is armed before the snapshot goes out.
	r.reconcileTimer()
	r.broadcast(Snapshot{Version: r.version, State: r.state})

	if !r.state.Phase.Finished() {
		r.scheduleAI()
		return
	}
	r.stopAI()
	if r.state.Phase == engine.PhaseComplete {
		r.record()
	}
	if r.state.Phase == engine.PhaseClosed {
		r.teardown()
	}
}

// closeRoom closes the room on the system's authority and tears it down.
func (r *Room) closeRoom() {
	if r.state.Phase.Finished() {
		r.teardown()
		return
	}
	r.apply(engine.Command{Type: engine.CmdClose}, "")
}

func (r *Room) record() {
	if r.recorder == nil || r.recorded {
		return
	}
	r.recorded = true
	final := r.state
	rec := r.recorder
	log := r.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := rec.Record(ctx, final); err != nil {
			log.Error("record room history", zap.Error(err))
		}
	}()
}

func (r *Room) teardown() {
	if r.stopped {
		return
	}
	r.stopped = true
	r.stopTimer()
	r.stopAI()
	if r.idle != nil {
		r.idle.Stop()
		r.idle = nil
	}
	for id, c := range r.clients {
		close(c.outbox)
		delete(r.clients, id)
	}
	r.cancel()
	r.log.Info("room torn down", zap.Int("version", r.version))
	if r.onClose != nil {
		r.onClose(r)
	}
}
