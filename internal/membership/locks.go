package membership

import (
	"sync"

	"example.com/octofit/internal/domain"
)

// teamLocks hands out one mutex per team id. Entries are dropped once no
// caller holds or waits on them.
type teamLocks struct {
	mu    sync.Mutex
	locks map[domain.ID]*teamLock
}

type teamLock struct {
	mu   sync.Mutex
	refs int
}

func newTeamLocks() *teamLocks {
	return &teamLocks{locks: make(map[domain.ID]*teamLock)}
}

// lock blocks until the team is free and returns the matching unlock.
func (l *teamLocks) lock(id domain.ID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &teamLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *teamLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
