package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/mazechase-backend/internal/apperror"
	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
)

type memoryEntry struct {
	snapshot  entity.Snapshot
	expiresAt time.Time
}

type memSession struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	activeID string
}

// NewMemorySessionRepository - used when Redis is disabled.
func NewMemorySessionRepository() SessionRepository {
	return &memSession{
		sessions: make(map[string]memoryEntry),
	}
}

func (that *memSession) Save(_ context.Context, snapshot *entity.Snapshot, ttl time.Duration) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	stored := *snapshot
	stored.Rows = append([]string(nil), snapshot.Rows...)

	that.sessions[snapshot.ID] = memoryEntry{snapshot: stored, expiresAt: time.Now().Add(ttl)}
	that.activeID = snapshot.ID

	return nil
}

func (that *memSession) GetByID(_ context.Context, id string) (*entity.Snapshot, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entry, ok := that.sessions[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}

	snapshot := entry.snapshot

	return &snapshot, nil
}

func (that *memSession) GetActive(ctx context.Context) (*entity.Snapshot, error) {
	that.mu.RLock()
	id := that.activeID
	that.mu.RUnlock()

	if id == "" {
		return nil, apperror.ErrNoActiveSession
	}

	snapshot, err := that.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrNoActiveSession
	}

	return snapshot, nil
}

func (that *memSession) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.sessions, id)

	if that.activeID == id {
		that.activeID = ""
	}

	return nil
}
