package recording

import "sync"

// sessionState serializes mutation of one session within this process.
type sessionState struct {
	mu         sync.Mutex
	refs       int
	completing bool
}

// sessionLocks hands out per-session states, dropping each once no caller
// holds a reference. The structural mutex only guards the map.
type sessionLocks struct {
	mu     sync.Mutex
	states map[string]*sessionState
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{states: make(map[string]*sessionState)}
}

// acquire returns the locked state for id. Pair with release.
func (l *sessionLocks) acquire(id string) *sessionState {
	l.mu.Lock()
	st, ok := l.states[id]
	if !ok {
		st = &sessionState{}
		l.states[id] = st
	}
	st.refs++
	l.mu.Unlock()

	st.mu.Lock()
	return st
}

// release unlocks st and forgets it when idle. A state flagged completing is
// kept so racing notifications still observe the flag.
func (l *sessionLocks) release(id string, st *sessionState) {
	keep := st.completing
	st.mu.Unlock()

	l.mu.Lock()
	st.refs--
	if st.refs == 0 && !keep {
		delete(l.states, id)
	}
	l.mu.Unlock()
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}
