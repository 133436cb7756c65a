package room

import (
	"errors"

	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

var (
	ErrRoomClosed = errors.New("room is closed")
	ErrSpectator  = errors.New("spectators cannot act")
	ErrNotJoined  = errors.New("client has not joined the room")
)

type Msg interface{ isRoomMsg() }

// Join registers a connection. Participant is empty for spectators.
// Observers receive every snapshot but do not keep an idle room alive.
type Join struct {
	ClientID    string
	Participant string
	Observer    bool
	Outbox      chan Outbound
}

type Leave struct{ ClientID string }

type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

// Close ends the room regardless of host, e.g. on operator request.
type Close struct{}

type Shutdown struct{}

type GetState struct {
	Reply chan View
}

type timerFired struct{ key engine.TimerKey }

type aiTurn struct{ version int }

type idleExpired struct{ gen int }

func (Join) isRoomMsg()        {}
func (Leave) isRoomMsg()       {}
func (FromClient) isRoomMsg()  {}
func (Close) isRoomMsg()       {}
func (Shutdown) isRoomMsg()    {}
func (GetState) isRoomMsg()    {}
func (timerFired) isRoomMsg()  {}
func (aiTurn) isRoomMsg()      {}
func (idleExpired) isRoomMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

// Notice is a rejection delivered only to the client that sent Command.
type Notice struct {
	Command engine.CommandType
	Err     error
}

// Outbound is one message for a client; exactly one field is set.
type Outbound struct {
	Snapshot *Snapshot
	Notice   *Notice
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// clientCommands are the commands a connection may issue. Timeouts are
// produced only by the room's own timers.
var clientCommands = map[engine.CommandType]bool{
	engine.CmdClaimTeam:       true,
	engine.CmdReleaseTeam:     true,
	engine.CmdStartRetention:  true,
	engine.CmdRetain:          true,
	engine.CmdFinishRetention: true,
	engine.CmdBid:             true,
	engine.CmdExerciseRTM:     true,
	engine.CmdDeclineRTM:      true,
	engine.CmdRaiseRTM:        true,
	engine.CmdPassRTM:         true,
	engine.CmdMatchRTM:        true,
	engine.CmdForfeitRTM:      true,
	engine.CmdClose:           true,
}
