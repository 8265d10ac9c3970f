package pdfs

import (
	"sync"
	"time"
)

// inflightTracker records extraction attempts keyed by document id. A second
// attempt for the same document while one is outstanding is rejected rather
// than raced: two overlapping attempts would otherwise race to write
// conflicting final states.
type inflightTracker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newInflightTracker() *inflightTracker {
	return &inflightTracker{active: make(map[string]struct{})}
}

// Begin claims the document for an extraction attempt. It reports false when
// an attempt is already outstanding.
func (t *inflightTracker) Begin(documentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[documentID]; ok {
		return false
	}
	t.active[documentID] = struct{}{}
	return true
}

// End releases the claim. Safe to call for an unclaimed id.
func (t *inflightTracker) End(documentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, documentID)
}

const pollLimitWindow = 1 * time.Second

// pollLimiter throttles status polls per (user, document).
type pollLimiter struct {
	mu      sync.Mutex
	lastHit map[string]time.Time
	now     func() time.Time
	window  time.Duration
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{
		lastHit: make(map[string]time.Time),
		now:     now,
		window:  window,
	}
}

func (l *pollLimiter) Allow(userID, documentID string) bool {
	if l == nil {
		return true
	}
	key := userID + "|" + documentID
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastHit[key]; ok {
		if now.Sub(last) < l.window {
			return false
		}
	}
	l.lastHit[key] = now
	return true
}

func (l *pollLimiter) RetryAfterSeconds() int {
	if l == nil {
		return int(pollLimitWindow.Seconds())
	}
	return int(l.window.Seconds())
}
