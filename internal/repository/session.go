package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/mazechase-backend/internal/apperror"
	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
)

const (
	sessionKeyPrefix = "session:"
	activeSessionKey = "session:active"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository keeps the snapshot of the live session. Entries expire with the round.
type SessionRepository interface {
	Save(ctx context.Context, snapshot *entity.Snapshot, ttl time.Duration) error
	GetByID(ctx context.Context, id string) (*entity.Snapshot, error)
	GetActive(ctx context.Context) (*entity.Snapshot, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

func (that *dbSession) Save(ctx context.Context, snapshot *entity.Snapshot, ttl time.Duration) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+snapshot.ID, snapshotJSON, ttl)
		pipe.Set(ctx, activeSessionKey, snapshot.ID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (that *dbSession) GetByID(ctx context.Context, id string) (*entity.Snapshot, error) {
	response, err := that.client.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w by id", err)
	}

	var snapshot entity.Snapshot
	if err = json.Unmarshal([]byte(response), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &snapshot, nil
}

func (that *dbSession) GetActive(ctx context.Context) (*entity.Snapshot, error) {
	id, err := that.client.Get(ctx, activeSessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNoActiveSession
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	snapshot, err := that.GetByID(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, apperror.ErrNoActiveSession
	}

	return snapshot, err
}

func (that *dbSession) DeleteByID(ctx context.Context, id string) error {
	active, err := that.client.Get(ctx, activeSessionKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get active session: %w", err)
	}

	keys := []string{sessionKeyPrefix + id}
	if active == id {
		keys = append(keys, activeSessionKey)
	}

	if err = that.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete session by ID: %w", err)
	}

	return nil
}
