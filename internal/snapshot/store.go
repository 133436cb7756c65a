// Package snapshot mirrors room snapshots into Redis so a room's last
// known state can be read without reaching its process.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-room-backend/internal/engine"
	"github.com/DoyleJ11/auction-room-backend/internal/room"
)

var ErrNotFound = errors.New("snapshot not found")

type Record struct {
	Version int          `json:"version"`
	State   engine.State `json:"state"`
}

type Store struct {
	client *redis.Client
	cfg    Config
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg, log), nil
}

// NewWithClient wraps an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, cfg: cfg, log: log.With(zap.String("component", "snapshot"))}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Save stores snap as the latest state under its code and publishes it.
// An older version of the same room never overwrites a newer one; a
// different room that has taken over the code always replaces the record.
func (s *Store) Save(ctx context.Context, snap room.Snapshot) error {
	code := snap.State.Code
	current, err := s.Load(ctx, code)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	case current.State.ID == snap.State.ID && current.Version >= snap.Version:
		return nil
	case current.State.ID != snap.State.ID:
		s.log.Info("code reused by a new room", zap.String("room", code),
			zap.String("previous", current.State.ID), zap.String("id", snap.State.ID))
	}

	data, err := json.Marshal(Record{Version: snap.Version, State: snap.State})
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomKey(code), data, s.cfg.TTL)
	pipe.Publish(ctx, eventsChannel(code), data)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Load(ctx context.Context, code string) (Record, error) {
	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Subscribe streams every snapshot saved for code from now on.
func (s *Store) Subscribe(ctx context.Context, code string) *redis.PubSub {
	return s.client.Subscribe(ctx, eventsChannel(code))
}

// Watch joins rm as an observer and mirrors its snapshots until the room
// closes the outbox.
func (s *Store) Watch(rm *room.Room) {
	out := make(chan room.Outbound, 64)
	id := "mirror-" + uuid.NewString()
	if err := rm.Post(context.Background(), room.Join{ClientID: id, Observer: true, Outbox: out}); err != nil {
		return
	}
	go func() {
		log := s.log.With(zap.String("room", rm.Code()))
		for msg := range out {
			if msg.Snapshot == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := s.Save(ctx, *msg.Snapshot); err != nil {
				log.Warn("mirror snapshot", zap.Int("version", msg.Snapshot.Version), zap.Error(err))
			}
			cancel()
		}
	}()
}
