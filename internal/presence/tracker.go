package presence

import "sync"

// Tracker is a concurrent reference-counted online registry. Each active
// connection holds one increment; a user is online while their count is > 0.
// It is process-lifetime state only and is rebuilt from zero on restart; it
// must never be treated as durable truth about a user's devices.
//
// The key is generic so the same counter can back any identity scheme; the
// server keys it by numeric user id.
type Tracker[K comparable] struct {
	mu       sync.Mutex
	sessions map[K]int
}

func NewTracker[K comparable]() *Tracker[K] {
	return &Tracker[K]{sessions: make(map[K]int)}
}

// Connect increments the counter for key and reports whether this was the
// 0→1 transition. Only that transition should trigger an online broadcast;
// a second tab or device must not re-announce.
func (t *Tracker[K]) Connect(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[key]++
	return t.sessions[key] == 1
}

// Disconnect decrements the counter for key and reports whether the user just
// went offline. The entry is removed on the last disconnect so stale zero
// counters never accumulate. Calling it for an unknown key is a no-op.
func (t *Tracker[K]) Disconnect(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	count, ok := t.sessions[key]
	if !ok {
		return false
	}
	count--
	if count <= 0 {
		delete(t.sessions, key)
		return true
	}
	t.sessions[key] = count
	return false
}

// IsOnline reports whether key has at least one active connection.
func (t *Tracker[K]) IsOnline(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sessions[key]
	return ok
}

// OnlineCount returns the number of distinct keys currently online.
func (t *Tracker[K]) OnlineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
