package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"cliniq/models"
)

// ErrDraftNotFound is returned when a draft is missing or has expired.
var ErrDraftNotFound = errors.New("booking draft not found or expired")

// Drafts expire after 30 minutes of inactivity, bounding abandoned wizards.
const draftTTL = 30 * time.Minute

// DraftStore is the persistence port for in-progress booking drafts. The
// wizard owns drafts through this interface only, so tests substitute an
// in-memory store.
type DraftStore interface {
	Save(ctx context.Context, draft *models.BookingDraft) error
	Load(ctx context.Context, draftID string) (*models.BookingDraft, error)
	Clear(ctx context.Context, draftID string) error
}

// RedisDraftStore stores drafts as JSON blobs with a sliding TTL.
type RedisDraftStore struct {
	Client *redis.Client
}

func draftKey(draftID string) string {
	return "draft:" + draftID
}

func (s *RedisDraftStore) Save(ctx context.Context, draft *models.BookingDraft) error {
	draft.UpdatedAt = time.Now()
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal booking draft: %w", err)
	}
	if err := s.Client.Set(ctx, draftKey(draft.DraftID), data, draftTTL).Err(); err != nil {
		return fmt.Errorf("failed to store booking draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Load(ctx context.Context, draftID string) (*models.BookingDraft, error) {
	data, err := s.Client.Get(ctx, draftKey(draftID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to load booking draft: %w", err)
	}
	var draft models.BookingDraft
	if err := json.Unmarshal([]byte(data), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse booking draft: %w", err)
	}
	return &draft, nil
}

func (s *RedisDraftStore) Clear(ctx context.Context, draftID string) error {
	return s.Client.Del(ctx, draftKey(draftID)).Err()
}

// MemoryDraftStore is an in-memory DraftStore for tests.
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string][]byte
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string][]byte)}
}

func (s *MemoryDraftStore) Save(_ context.Context, draft *models.BookingDraft) error {
	draft.UpdatedAt = time.Now()
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.DraftID] = data
	return nil
}

func (s *MemoryDraftStore) Load(_ context.Context, draftID string) (*models.BookingDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.drafts[draftID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	var draft models.BookingDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (s *MemoryDraftStore) Clear(_ context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, draftID)
	return nil
}
