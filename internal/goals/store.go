// Package goals provides local-first persistence of the user's targets with
// remote fallback merge.
package goals

import (
	"context"
	"fmt"
	"log"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
)

// Cache is the local goals cache, typically the SQLite store.
type Cache interface {
	GoalsCache(userID string) (domain.Goals, bool, error)
	PutGoalsCache(goals domain.Goals) error
}

// Remote covers the goal endpoints of the API.
type Remote interface {
	FetchGoals(ctx context.Context, userID string) (*domain.Goals, error)
	PushGoals(ctx context.Context, goals domain.Goals) (*domain.Goals, error)
}

// Store resolves goals local-first: the client's own view always wins over
// remote state, and defaults only ever fill fields that were never saved.
type Store struct {
	userID string
	cache  Cache
	remote Remote
	logger *log.Logger
}

// NewStore constructs a Store for one user.
func NewStore(userID string, cache Cache, remote Remote, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.Writer(), "[goals] ", log.LstdFlags)
	}
	return &Store{userID: userID, cache: cache, remote: remote, logger: logger}
}

// Load resolves the current goals. Remote values override defaults
// field-by-field; when the remote is unreachable the local cache serves, and
// with both gone the hardcoded defaults apply.
func (s *Store) Load(ctx context.Context) (domain.Goals, error) {
	if remote, err := s.remote.FetchGoals(ctx, s.userID); err == nil && remote != nil {
		merged := remote.FillDefaults()
		merged.UserID = s.userID
		// Refresh the cache so the next offline load sees the same view.
		if err := s.cache.PutGoalsCache(merged); err != nil {
			s.logger.Printf("cache refresh failed: %v", err)
		}
		return merged, nil
	} else if err != nil {
		s.logger.Printf("remote fetch failed, falling back to cache: %v", err)
	}

	cached, ok, err := s.cache.GoalsCache(s.userID)
	if err != nil {
		return domain.Goals{}, fmt.Errorf("read goals cache: %w", err)
	}
	if ok {
		return cached, nil
	}

	fallback := domain.DefaultGoals()
	fallback.UserID = s.userID
	return fallback, nil
}

// Save writes the local cache synchronously, then attempts the remote upsert.
// A remote failure never rolls back the local write.
func (s *Store) Save(ctx context.Context, goals domain.Goals) (domain.Goals, error) {
	goals = goals.FillDefaults()
	goals.UserID = s.userID

	if err := s.cache.PutGoalsCache(goals); err != nil {
		return domain.Goals{}, fmt.Errorf("write goals cache: %w", err)
	}

	if _, err := s.remote.PushGoals(ctx, goals); err != nil {
		s.logger.Printf("remote upsert failed, local cache kept: %v", err)
	}
	return goals, nil
}
