// Package hub owns every live room in the process.
package hub

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-room-backend/internal/engine"
	"github.com/DoyleJ11/auction-room-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

// CreateRoom starts a room for State. Reply gets nil if Code is taken.
type CreateRoom struct {
	Code  string
	State engine.State
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type ListRooms struct {
	Reply chan []string
}

// RemoveRoom forgets Room if it is still the one registered under Code.
type RemoveRoom struct {
	Code string
	Room *room.Room
}

type ShutdownHub struct {
	Done chan struct{}
}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Watcher is attached to every room the hub creates.
type Watcher interface {
	Watch(rm *room.Room)
}

type Hub struct {
	inbox    chan HubMsg
	rooms    map[string]*room.Room
	opts     room.Options
	watchers []Watcher
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewHub starts the registry. Every room it creates uses opts; OnClose is
// replaced so closed rooms unregister themselves.
func NewHub(parent context.Context, opts room.Options, watchers ...Watcher) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		rooms:    make(map[string]*room.Room),
		opts:     opts,
		watchers: watchers,
		log:      opts.Logger.With(zap.String("component", "hub")),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Get looks up a live room, returning nil when there is none.
func (h *Hub) Get(ctx context.Context, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	select {
	case h.inbox <- GetRoom{Code: code, Reply: reply}:
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
	select {
	case rm := <-reply:
		return rm
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
}

// Create registers a new room, returning nil when code is already live.
func (h *Hub) Create(ctx context.Context, code string, state engine.State) *room.Room {
	reply := make(chan *room.Room, 1)
	select {
	case h.inbox <- CreateRoom{Code: code, State: state, Reply: reply}:
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
	select {
	case rm := <-reply:
		return rm
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
}

// Shutdown tears down every room and stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case h.inbox <- ShutdownHub{Done: done}:
	case <-h.ctx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if h.rooms[msg.Code] != nil {
					msg.Reply <- nil
					break
				}
				rm := room.NewRoom(h.ctx, msg.State, h.roomOptions())
				h.rooms[msg.Code] = rm
				for _, w := range h.watchers {
					w.Watch(rm)
				}
				h.log.Info("room created", zap.String("room", msg.Code), zap.Int("rooms", len(h.rooms)))
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case ListRooms:
				codes := make([]string, 0, len(h.rooms))
				for code := range h.rooms {
					codes = append(codes, code)
				}
				slices.Sort(codes)
				msg.Reply <- codes

			case RemoveRoom:
				if rm := h.rooms[msg.Code]; rm != nil && rm == msg.Room {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.rooms)))
				}

			case ShutdownHub:
				h.cancel()
				for _, rm := range h.rooms {
					<-rm.Done()
				}
				clear(h.rooms)
				close(msg.Done)
				return
			}
		}
	}
}

func (h *Hub) roomOptions() room.Options {
	opts := h.opts
	opts.OnClose = func(rm *room.Room) {
		select {
		case h.inbox <- RemoveRoom{Code: rm.Code(), Room: rm}:
		case <-h.ctx.Done():
		}
	}
	return opts
}
