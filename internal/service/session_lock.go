package service

import (
	"sync"
	"time"
)

type sessionLock struct {
	mu       sync.Mutex
	lastUsed time.Time
}

// SessionLocker serializes mutating operations per session id: at most one
// in-flight submit or next-question per session, while different sessions
// never contend. Idle entries are swept periodically.
type SessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func NewSessionLocker() *SessionLocker {
	l := &SessionLocker{locks: make(map[string]*sessionLock)}
	go l.sweep()
	return l
}

func (l *SessionLocker) Lock(sessionID string) {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.lastUsed = time.Now()
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *SessionLocker) Unlock(sessionID string) {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	l.mu.Unlock()
	if ok {
		entry.mu.Unlock()
	}
}

// sweep drops lock entries unused for an hour. A swept entry is never held:
// holders always refresh lastUsed on acquire, and interviews are minutes
// long.
func (l *SessionLocker) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for id, entry := range l.locks {
			if time.Since(entry.lastUsed) > time.Hour {
				delete(l.locks, id)
			}
		}
		l.mu.Unlock()
	}
}
