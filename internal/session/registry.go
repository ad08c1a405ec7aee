package session

import (
	"sync"

	"github.com/orbitq/orbitq/internal/errors"
)

// registry is the single source of truth for live sessions, keyed by the
// human-shareable code with a secondary id index. It only guards membership;
// each liveSession serializes its own mutations.
type registry struct {
	mu     sync.RWMutex
	byCode map[string]*liveSession
	byID   map[string]*liveSession
}

func newRegistry() *registry {
	return &registry{
		byCode: make(map[string]*liveSession),
		byID:   make(map[string]*liveSession),
	}
}

// add registers ls under code, failing if the code is already taken by a
// live session.
func (r *registry) add(code string, ls *liveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byCode[code]; taken {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("session code collision: %s", code))
	}

	r.byCode[code] = ls
	r.byID[ls.s.SessionID] = ls
	return nil
}

func (r *registry) lookupCode(code string) (*liveSession, error) {
	r.mu.RLock()
	ls, ok := r.byCode[code]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonSessionNotFound),
			errors.WithMessagef("session not found: code=%s", code))
	}
	return ls, nil
}

func (r *registry) lookupID(sessionID string) (*liveSession, error) {
	r.mu.RLock()
	ls, ok := r.byID[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonSessionNotFound),
			errors.WithMessagef("session not found: id=%s", sessionID))
	}
	return ls, nil
}

func (r *registry) remove(code string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ls, ok := r.byCode[code]
	if !ok {
		return nil, false
	}

	delete(r.byCode, code)
	delete(r.byID, ls.s.SessionID)
	return ls, true
}

// all snapshots the current membership. Callers lock each liveSession before
// touching its state.
func (r *registry) all() []*liveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*liveSession, 0, len(r.byCode))
	for _, ls := range r.byCode {
		out = append(out, ls)
	}
	return out
}

func (r *registry) codeTaken(code string) bool {
	r.mu.RLock()
	_, taken := r.byCode[code]
	r.mu.RUnlock()
	return taken
}
