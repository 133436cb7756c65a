package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
	"github.com/DoyleJ11/auction-room-backend/internal/engine"
	"github.com/DoyleJ11/auction-room-backend/internal/hub"
	"github.com/DoyleJ11/auction-room-backend/internal/room"
	"github.com/DoyleJ11/auction-room-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

var commandTypes = map[string]engine.CommandType{
	"ClaimTeam":       engine.CmdClaimTeam,
	"ReleaseTeam":     engine.CmdReleaseTeam,
	"StartRetention":  engine.CmdStartRetention,
	"Retain":          engine.CmdRetain,
	"FinishRetention": engine.CmdFinishRetention,
	"Bid":             engine.CmdBid,
	"ExerciseRTM":     engine.CmdExerciseRTM,
	"DeclineRTM":      engine.CmdDeclineRTM,
	"RaiseRTM":        engine.CmdRaiseRTM,
	"PassRTM":         engine.CmdPassRTM,
	"MatchRTM":        engine.CmdMatchRTM,
	"ForfeitRTM":      engine.CmdForfeitRTM,
	"Close":           engine.CmdClose,
}

// Handler upgrades /ws?code=ROOM&participant=ID. Without a participant
// the connection only spectates.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		participant := r.URL.Query().Get("participant")
		if participant == engine.AIParticipant {
			http.Error(w, "reserved participant id", http.StatusBadRequest)
			return
		}

		rm := h.Get(r.Context(), code)
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("room", code), zap.String("client", clientID))
		out := make(chan room.Outbound, outboxSize)
		if err := rm.Post(r.Context(), room.Join{ClientID: clientID, Participant: participant, Outbox: out}); err != nil {
			_ = writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
			return
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = rm.Post(ctx, room.Leave{ClientID: clientID})
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg, ok := <-out:
					if !ok {
						// Room closed or dropped us.
						conn.Close(websocket.StatusGoingAway, "room closed")
						return
					}
					if err := writeJSON(writeCtx, conn, toServerMessage(msg)); err != nil {
						log.Debug("write failed", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(writeCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(writeCtx, conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}
			cmd, ok := toEngineCommand(cm)
			if !ok {
				_ = writeJSON(writeCtx, conn, types.ServerMessage{Type: types.MsgError, Error: "unknown type"})
				continue
			}
			if err := rm.Post(writeCtx, room.FromClient{ClientID: clientID, Cmd: cmd}); err != nil {
				return
			}
		}
	}
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	t, ok := commandTypes[m.Type]
	if !ok {
		return engine.Command{}, false
	}
	return engine.Command{
		Type:   t,
		Team:   engine.TeamID(m.Team),
		Entity: catalog.EntityID(m.EntityID),
		Amount: m.Amount,
	}, true
}

func toServerMessage(out room.Outbound) types.ServerMessage {
	if out.Notice != nil {
		return types.ServerMessage{
			Type:    types.MsgRejected,
			Command: string(out.Notice.Command),
			Error:   out.Notice.Err.Error(),
		}
	}
	return types.ServerMessage{
		Type:    types.MsgStateSnapshot,
		Version: out.Snapshot.Version,
		State:   &out.Snapshot.State,
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
