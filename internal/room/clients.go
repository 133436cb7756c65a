package room

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

func (r *Room) join(msg Join) {
	r.clients[msg.ClientID] = client{participant: msg.Participant, observer: msg.Observer, outbox: msg.Outbox}
	r.log.Debug("client joined", zap.String("client", msg.ClientID), zap.String("participant", msg.Participant))
	if r.participants() > 0 {
		r.stopIdle()
	}

	// Current snapshot first, so a rebind below arrives as the next version.
	if !r.deliver(msg.ClientID, Outbound{Snapshot: &Snapshot{Version: r.version, State: r.state}}) {
		return
	}
	if msg.Participant != "" {
		r.rebind(msg.Participant, msg.ClientID)
	}
}

// rebind hands a team back to the participant who last controlled it,
// unless another human has claimed it since.
func (r *Room) rebind(participant, clientID string) {
	if r.state.Phase.Finished() {
		return
	}
	if _, bound := r.state.TeamOf(participant); bound {
		return
	}
	for _, t := range r.state.Teams {
		if t.Participant == participant && t.Controller != engine.ControllerHuman {
			r.log.Info("participant rebound", zap.String("participant", participant), zap.String("team", string(t.ID)))
			r.apply(engine.Command{Type: engine.CmdClaimTeam, Team: t.ID, Participant: participant}, clientID)
			return
		}
	}
}

func (r *Room) leave(clientID string) {
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	delete(r.clients, clientID)
	r.log.Debug("client left", zap.String("client", clientID))
	r.release(c.participant)
	r.armIdle()
}

// release unbinds participant's team once their last connection is gone.
func (r *Room) release(participant string) {
	if participant == "" || r.state.Phase.Finished() {
		return
	}
	for _, c := range r.clients {
		if c.participant == participant {
			return
		}
	}
	t, ok := r.state.TeamOf(participant)
	if !ok {
		return
	}
	r.log.Info("participant disconnected", zap.String("participant", participant), zap.String("team", string(t.ID)))
	r.apply(engine.Command{Type: engine.CmdReleaseTeam, Team: t.ID, Participant: participant}, "")
}

// participants counts connections that keep the room alive.
func (r *Room) participants() int {
	n := 0
	for _, c := range r.clients {
		if !c.observer {
			n++
		}
	}
	return n
}

func (r *Room) notify(clientID string, cmd engine.CommandType, err error) {
	if clientID == "" {
		return
	}
	r.deliver(clientID, Outbound{Notice: &Notice{Command: cmd, Err: err}})
}

// deliver never blocks; a client whose outbox is full is dropped.
func (r *Room) deliver(clientID string, out Outbound) bool {
	c, ok := r.clients[clientID]
	if !ok {
		return false
	}
	select {
	case c.outbox <- out:
		return true
	default:
		r.drop(clientID, c)
		return false
	}
}

func (r *Room) broadcast(snap Snapshot) {
	for id, c := range r.clients {
		select {
		case c.outbox <- Outbound{Snapshot: &snap}:
		default:
			r.drop(id, c)
		}
	}
}

// drop disconnects a slow client. Its team is released on the next
// message so a broadcast never re-enters apply.
func (r *Room) drop(clientID string, c client) {
	r.log.Warn("dropping slow client", zap.String("client", clientID), zap.String("participant", c.participant))
	close(c.outbox)
	delete(r.clients, clientID)
	if c.participant != "" {
		r.pendingRelease = append(r.pendingRelease, c.participant)
	}
}

func (r *Room) flushReleases() {
	for len(r.pendingRelease) > 0 && !r.stopped {
		p := r.pendingRelease[0]
		r.pendingRelease = r.pendingRelease[1:]
		r.release(p)
	}
	r.armIdle()
}

func (r *Room) armIdle() {
	if r.idleAfter <= 0 || r.participants() > 0 || r.idle != nil || r.stopped {
		return
	}
	r.idleGen++
	gen := r.idleGen
	r.idle = r.clock.AfterFunc(r.idleAfter, func() { r.post(idleExpired{gen: gen}) })
}

func (r *Room) stopIdle() {
	if r.idle == nil {
		return
	}
	r.idle.Stop()
	r.idle = nil
	r.idleGen++
}
