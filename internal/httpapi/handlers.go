package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	mrand "math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
	"github.com/DoyleJ11/auction-room-backend/internal/engine"
	"github.com/DoyleJ11/auction-room-backend/internal/hub"
	"github.com/DoyleJ11/auction-room-backend/internal/room"
	"github.com/DoyleJ11/auction-room-backend/internal/snapshot"
)

// SnapshotReader serves rooms that are no longer live in this process.
type SnapshotReader interface {
	Load(ctx context.Context, code string) (snapshot.Record, error)
}

type Deps struct {
	Hub       *hub.Hub
	Catalogs  catalog.Provider
	Rules     engine.Rules
	Season    string
	Snapshots SnapshotReader // optional
	Log       *zap.Logger
	// Seed returns the shuffle seed for a new room's pool order.
	Seed func() uint64
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Seed == nil {
		d.Seed = mrand.Uint64
	}
	return d
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createRoomRequest struct {
	Host   string `json:"host"`
	Season string `json:"season"`
}

type createRoomResponse struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Host   string `json:"host"`
	Season string `json:"season"`
}

type roomResponse struct {
	Version int          `json:"version"`
	Live    bool         `json:"live"`
	Clients int          `json:"clients,omitempty"`
	State   engine.State `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateRoom loads the season's catalog and starts a room in setup. The
// host id is generated when the request does not carry one.
func CreateRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "bad json")
				return
			}
		}
		if req.Host == "" {
			req.Host = uuid.NewString()
		}
		if req.Host == engine.AIParticipant {
			writeError(w, http.StatusBadRequest, "reserved host id")
			return
		}
		if req.Season == "" {
			req.Season = d.Season
		}

		cat, err := d.Catalogs.Load(r.Context(), req.Season)
		switch {
		case errors.Is(err, catalog.ErrSeasonNotFound):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			d.Log.Error("load catalog", zap.String("season", req.Season), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load catalog")
			return
		}
		if err := d.Rules.Validate(); err != nil {
			d.Log.Error("room rules", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "invalid room rules")
			return
		}

		seed := d.Seed()
		order := room.PoolOrder(cat, mrand.New(mrand.NewPCG(seed, seed)))
		for attempt := 0; attempt < 8; attempt++ {
			code, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			state := engine.NewState(code, req.Host, d.Rules, cat, order)
			state.ID = uuid.NewString()
			if d.Hub.Create(r.Context(), code, state) == nil {
				d.Log.Debug("collision on code, regenerating", zap.String("code", code))
				continue
			}
			writeJSON(w, http.StatusCreated, createRoomResponse{ID: state.ID, Code: code, Host: req.Host, Season: req.Season})
			return
		}
		writeError(w, http.StatusServiceUnavailable, "failed to create room")
	}
}

func ListRooms(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []string, 1)
		select {
		case d.Hub.Inbox() <- hub.ListRooms{Reply: reply}:
		case <-r.Context().Done():
			return
		}
		select {
		case codes := <-reply:
			writeJSON(w, http.StatusOK, struct {
				Rooms []string `json:"rooms"`
			}{Rooms: codes})
		case <-r.Context().Done():
		}
	}
}

// GetRoom serves the live room view, falling back to the last mirrored
// snapshot once the room has gone.
func GetRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		if rm := d.Hub.Get(r.Context(), code); rm != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			reply := make(chan room.View, 1)
			if err := rm.Post(ctx, room.GetState{Reply: reply}); err == nil {
				select {
				case v := <-reply:
					writeJSON(w, http.StatusOK, roomResponse{Version: v.Version, Live: true, Clients: v.NumClients, State: v.State})
					return
				case <-rm.Done():
				case <-ctx.Done():
				}
			}
		}

		if d.Snapshots == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		rec, err := d.Snapshots.Load(r.Context(), code)
		switch {
		case errors.Is(err, snapshot.ErrNotFound):
			writeError(w, http.StatusNotFound, "room not found")
		case err != nil:
			d.Log.Warn("load snapshot", zap.String("room", code), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "snapshot store unavailable")
		default:
			writeJSON(w, http.StatusOK, roomResponse{Version: rec.Version, State: rec.State})
		}
	}
}

func GetCatalog(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := d.Catalogs.Load(r.Context(), chi.URLParam(r, "season"))
		switch {
		case errors.Is(err, catalog.ErrSeasonNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case err != nil:
			d.Log.Error("load catalog", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load catalog")
		default:
			writeJSON(w, http.StatusOK, cat)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
