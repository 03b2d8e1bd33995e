// Package store keeps the dashboard's single copy of each backend resource.
// Snapshots are loaded on demand and dropped only through Invalidate or Refresh.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"example.com/octofit/internal/apiclient"
	"example.com/octofit/internal/domain"
)

// Backend lists every resource the dashboard renders.
type Backend interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)
	ListActivities(ctx context.Context) ([]domain.Activity, error)
	ListLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	ListWorkouts(ctx context.Context) ([]domain.Workout, error)
}

// Store holds one snapshot per resource.
type Store struct {
	backend     Backend
	users       slot[domain.User]
	teams       slot[domain.Team]
	activities  slot[domain.Activity]
	leaderboard slot[domain.LeaderboardEntry]
	workouts    slot[domain.Workout]
}

// New constructs an empty Store.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Users returns the users snapshot, loading it when stale.
func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	return s.users.get(ctx, s.backend.ListUsers)
}

// Teams returns the teams snapshot, loading it when stale.
func (s *Store) Teams(ctx context.Context) ([]domain.Team, error) {
	return s.teams.get(ctx, s.backend.ListTeams)
}

// Activities returns the activities snapshot, loading it when stale.
func (s *Store) Activities(ctx context.Context) ([]domain.Activity, error) {
	return s.activities.get(ctx, s.backend.ListActivities)
}

// Leaderboard returns the leaderboard snapshot, loading it when stale.
func (s *Store) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.leaderboard.get(ctx, s.backend.ListLeaderboard)
}

// Workouts returns the workouts snapshot, loading it when stale.
func (s *Store) Workouts(ctx context.Context) ([]domain.Workout, error) {
	return s.workouts.get(ctx, s.backend.ListWorkouts)
}

// User looks a single user up in the users snapshot.
func (s *Store) User(ctx context.Context, id domain.ID) (*domain.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

// Invalidate marks the named resources stale so the next read refetches them.
func (s *Store) Invalidate(resources ...string) {
	for _, resource := range resources {
		switch resource {
		case apiclient.ResourceUsers:
			s.users.invalidate()
		case apiclient.ResourceTeams:
			s.teams.invalidate()
		case apiclient.ResourceActivities:
			s.activities.invalidate()
		case apiclient.ResourceLeaderboard:
			s.leaderboard.invalidate()
		case apiclient.ResourceWorkouts:
			s.workouts.invalidate()
		}
	}
}

// Refresh reloads a resource unconditionally. On failure the resource is left stale.
func (s *Store) Refresh(ctx context.Context, resource string) error {
	s.Invalidate(resource)
	var err error
	switch resource {
	case apiclient.ResourceUsers:
		_, err = s.Users(ctx)
	case apiclient.ResourceTeams:
		_, err = s.Teams(ctx)
	case apiclient.ResourceActivities:
		_, err = s.Activities(ctx)
	case apiclient.ResourceLeaderboard:
		_, err = s.Leaderboard(ctx)
	case apiclient.ResourceWorkouts:
		_, err = s.Workouts(ctx)
	default:
		return fmt.Errorf("unknown resource %q", resource)
	}
	return err
}

// LoadedAt reports when a resource snapshot was last loaded; zero when stale.
func (s *Store) LoadedAt(resource string) time.Time {
	switch resource {
	case apiclient.ResourceUsers:
		return s.users.loadedAt()
	case apiclient.ResourceTeams:
		return s.teams.loadedAt()
	case apiclient.ResourceActivities:
		return s.activities.loadedAt()
	case apiclient.ResourceLeaderboard:
		return s.leaderboard.loadedAt()
	case apiclient.ResourceWorkouts:
		return s.workouts.loadedAt()
	}
	return time.Time{}
}

// slot serialises loads of one resource so concurrent readers share a fetch.
type slot[T any] struct {
	mu     sync.Mutex
	fresh  bool
	items  []T
	loaded time.Time
}

func (s *slot[T]) get(ctx context.Context, load func(context.Context) ([]T, error)) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fresh {
		items, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.items = items
		s.fresh = true
		s.loaded = time.Now().UTC()
	}

	out := make([]T, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *slot[T]) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fresh = false
	s.loaded = time.Time{}
}

func (s *slot[T]) loadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
