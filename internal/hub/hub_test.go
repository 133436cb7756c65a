package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
	"github.com/DoyleJ11/auction-room-backend/internal/engine"
	"github.com/DoyleJ11/auction-room-backend/internal/room"
)

func newState(t *testing.T, code string) engine.State {
	t.Helper()
	cat, err := catalog.NewEmbeddedProvider().Load(context.Background(), "2025")
	require.NoError(t, err)
	return engine.NewState(code, "host", engine.DefaultRules(), cat, cat.EntityIDs())
}

func listRooms(t *testing.T, h *Hub) []string {
	t.Helper()
	reply := make(chan []string, 1)
	h.Inbox() <- ListRooms{Reply: reply}
	return <-reply
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, room.Options{})
	defer h.Shutdown(ctx)

	rm1 := h.Create(ctx, "ZED123", newState(t, "ZED123"))
	rm2 := h.Get(ctx, "ZED123")

	if rm1 == nil || rm2 == nil || rm1 != rm2 {
		t.Fatalf("expected same room pointer")
	}
	assert.Nil(t, h.Create(ctx, "ZED123", newState(t, "ZED123")), "code already live")
	assert.Nil(t, h.Get(ctx, "NOPE00"))
	assert.Equal(t, []string{"ZED123"}, listRooms(t, h))
}

type recordingWatcher struct{ codes chan string }

func (w recordingWatcher) Watch(rm *room.Room) { w.codes <- rm.Code() }

func TestHub_WatchersSeeNewRooms(t *testing.T) {
	ctx := context.Background()
	w := recordingWatcher{codes: make(chan string, 2)}
	h := NewHub(ctx, room.Options{}, w)
	defer h.Shutdown(ctx)

	h.Create(ctx, "ABC123", newState(t, "ABC123"))
	assert.Equal(t, "ABC123", <-w.codes)
}

func TestHub_ClosedRoomIsRemoved(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, room.Options{})
	defer h.Shutdown(ctx)

	rm := h.Create(ctx, "ABC123", newState(t, "ABC123"))
	require.NotNil(t, rm)
	h.Create(ctx, "DEF456", newState(t, "DEF456"))

	require.NoError(t, rm.Post(ctx, room.Close{}))
	<-rm.Done()

	assert.Eventually(t, func() bool {
		return h.Get(ctx, "ABC123") == nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"DEF456"}, listRooms(t, h))
}

func TestHub_ShutdownStopsRooms(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, room.Options{})

	rm := h.Create(ctx, "ABC123", newState(t, "ABC123"))
	require.NotNil(t, rm)

	sctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(sctx))

	select {
	case <-rm.Done():
	default:
		t.Fatalf("room still running after hub shutdown")
	}
	assert.Nil(t, h.Create(ctx, "NEW000", newState(t, "NEW000")))
}
