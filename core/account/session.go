package account

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

// SessionManager is the single source of truth for "who is authenticated
// in this runtime". At most one identity is active at a time; establishing
// a new one silently replaces the previous. The active identity is
// snapshotted to the record store so it survives a restart.
//
// The cached identity may go stale relative to the stored account (an
// admin may approve it after login); Refresh re-reads the account and is
// the only synchronization mechanism across runtimes.
type SessionManager struct {
	mu      sync.Mutex
	store   core.RecordStore
	repo    *Repository
	current *Identity

	cancelWatch context.CancelFunc
}

func NewSessionManager(store core.RecordStore, repo *Repository) *SessionManager {
	return &SessionManager{store: store, repo: repo}
}

// Establish makes ident the active session and persists its snapshot. On a
// storage failure the previous session stays active.
func (sm *SessionManager) Establish(ident Identity) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	raw, err := json.Marshal(ident)
	if err != nil {
		return core.NewStorageError("save", core.KeySession, err)
	}
	if err := sm.store.Save(core.KeySession, raw); err != nil {
		return err
	}
	sm.current = &ident
	return nil
}

// Rehydrate restores the last persisted session snapshot. An absent or
// corrupt snapshot leaves the session empty; it never fails.
func (sm *SessionManager) Rehydrate() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	raw, ok, err := sm.store.Load(core.KeySession)
	if err != nil || !ok {
		return
	}
	var ident Identity
	if err := json.Unmarshal(raw, &ident); err != nil || ident.ID == "" {
		// corrupt snapshot: discard it
		_ = sm.store.Delete(core.KeySession)
		return
	}
	sm.current = &ident
}

// Clear destroys the active session and its snapshot, and cancels any
// outstanding approval watch. Clearing an empty session is a no-op.
func (sm *SessionManager) Clear() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.clear()
}

func (sm *SessionManager) clear() error {
	if sm.cancelWatch != nil {
		sm.cancelWatch()
		sm.cancelWatch = nil
	}
	if sm.current == nil {
		return nil
	}
	if err := sm.store.Delete(core.KeySession); err != nil {
		return err
	}
	sm.current = nil
	return nil
}

// Refresh re-reads the authoritative account and updates the cached
// identity to match. A vanished account forces a logout. It reports
// whether the effective status is now approved, for callers polling for
// approval.
func (sm *SessionManager) Refresh() (approved bool, err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current == nil {
		return false, nil
	}

	acct, err := sm.repo.GetAccountByID(sm.current.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, sm.clear()
		}
		return false, err
	}

	ident := acct.Identity()
	if ident.Status != sm.current.Status || len(ident.Permissions) != len(sm.current.Permissions) {
		raw, mErr := json.Marshal(ident)
		if mErr != nil {
			return false, core.NewStorageError("save", core.KeySession, mErr)
		}
		if sErr := sm.store.Save(core.KeySession, raw); sErr != nil {
			return false, sErr
		}
		sm.current = &ident
	}
	return ident.IsApproved(), nil
}

// Current returns the active identity, if any.
func (sm *SessionManager) Current() (Identity, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current == nil {
		return Identity{}, false
	}
	return *sm.current, true
}

// Watch polls Refresh every interval until the account is approved, the
// context is done, or the session is cleared (Clear cancels the watch).
// The returned channel yields true once on approval, then closes.
func (sm *SessionManager) Watch(ctx context.Context, interval time.Duration) <-chan bool {
	ctx, cancel := context.WithCancel(ctx)

	sm.mu.Lock()
	if sm.cancelWatch != nil {
		sm.cancelWatch()
	}
	sm.cancelWatch = cancel
	sm.mu.Unlock()

	out := make(chan bool, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				approved, err := sm.Refresh()
				if err != nil {
					continue
				}
				if _, ok := sm.Current(); !ok {
					return // forced logout
				}
				if approved {
					out <- true
					return
				}
			}
		}
	}()
	return out
}
