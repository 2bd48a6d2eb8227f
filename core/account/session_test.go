package account

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/elimu/core"
	memstore "github.com/trezcool/elimu/storage/record/memory"
)

func sessionSetup(t *testing.T) (store *failableStore, repo *Repository, svc Service, sm *SessionManager) {
	t.Helper()
	memStore, repo, svc := setup(t)
	store = &failableStore{Store: memStore}
	sm = NewSessionManager(store, repo)
	svc.BindSession(sm)
	return store, repo, svc, sm
}

// failableStore adds per-call save failure on top of the memory store.
type failableStore struct {
	*memstore.Store
	failNextSave bool
}

func (s *failableStore) Save(key string, value []byte) error {
	if s.failNextSave {
		s.failNextSave = false
		return core.NewStorageError("save", key, context.DeadlineExceeded)
	}
	return s.Store.Save(key, value)
}

func Test_SessionManager_EstablishCurrentClear(t *testing.T) {
	store, repo, _, sm := sessionSetup(t)

	if _, ok := sm.Current(); ok {
		t.Fatal("Current() returned an identity before Establish()")
	}

	acct := createAccount(t, repo, "Awe", "awe@test.cd", "!L0v3Elimu", RoleStudent, StatusApproved)
	if err := sm.Establish(acct.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}

	ident, ok := sm.Current()
	if !ok || ident.ID != acct.ID {
		t.Fatalf("Current() = (%v, %v); want the established identity", ident, ok)
	}
	if _, ok, _ := store.Load(core.KeySession); !ok {
		t.Error("Establish() did not persist the session snapshot")
	}

	// a second Establish silently replaces the first
	other := createAccount(t, repo, "Kin Tech", "kti@test.cd", "!L0v3Elimu", RoleInstitute, StatusApproved)
	if err := sm.Establish(other.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}
	if ident, _ := sm.Current(); ident.ID != other.ID {
		t.Errorf("Current() = %s; want %s", ident.ID, other.ID)
	}

	if err := sm.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if _, ok := sm.Current(); ok {
		t.Error("Current() returned an identity after Clear()")
	}
	if _, ok, _ := store.Load(core.KeySession); ok {
		t.Error("Clear() did not remove the session snapshot")
	}

	// clearing an empty session is a no-op
	if err := sm.Clear(); err != nil {
		t.Errorf("second Clear() failed: %v", err)
	}
}

func Test_SessionManager_Establish_storageFailure(t *testing.T) {
	store, repo, _, sm := sessionSetup(t)

	acct := createAccount(t, repo, "Awe", "awe@test.cd", "!L0v3Elimu", RoleStudent, StatusApproved)
	if err := sm.Establish(acct.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}

	// a failed snapshot write leaves the previous session active
	other := createAccount(t, repo, "Kin Tech", "kti@test.cd", "!L0v3Elimu", RoleInstitute, StatusApproved)
	store.failNextSave = true
	if err := sm.Establish(other.Identity()); !core.IsStorageError(err) {
		t.Fatalf("Establish() error = %v; want a storage error", err)
	}
	if ident, _ := sm.Current(); ident.ID != acct.ID {
		t.Errorf("Current() = %s; want the previous session kept (%s)", ident.ID, acct.ID)
	}
}

func Test_SessionManager_Rehydrate(t *testing.T) {
	store, repo, _, sm := sessionSetup(t)

	acct := createAccount(t, repo, "Awe", "awe@test.cd", "!L0v3Elimu", RoleStudent, StatusApproved)
	if err := sm.Establish(acct.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}

	// a fresh manager over the same store restores the snapshot
	sm2 := NewSessionManager(store, repo)
	sm2.Rehydrate()
	if ident, ok := sm2.Current(); !ok || ident.ID != acct.ID {
		t.Errorf("Current() = (%v, %v); want the restored identity", ident, ok)
	}
}

func Test_SessionManager_Rehydrate_corruptSnapshot(t *testing.T) {
	store, _, _, sm := sessionSetup(t)

	if err := store.Save(core.KeySession, []byte("{definitely not json")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	sm.Rehydrate()
	if _, ok := sm.Current(); ok {
		t.Error("Rehydrate() restored a corrupt snapshot")
	}
	// the corrupt snapshot is discarded
	if _, ok, _ := store.Load(core.KeySession); ok {
		t.Error("Rehydrate() left the corrupt snapshot in place")
	}
}

func Test_SessionManager_Refresh(t *testing.T) {
	_, repo, _, sm := sessionSetup(t)

	acct := createAccount(t, repo, "Kin Tech", "kti@test.cd", "!L0v3Elimu", RoleInstitute, StatusPending)
	if err := sm.Establish(acct.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}

	approved, err := sm.Refresh()
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if approved {
		t.Error("Refresh() = true; want false while pending")
	}

	// the admin approves from another code path; Refresh picks it up.
	// (the service's bound-session hook is exercised separately below)
	acct.Status = StatusApproved
	acct.Permissions = RolePermissions(RoleInstitute)
	if _, err = repo.UpdateAccount(acct); err != nil {
		t.Fatalf("UpdateAccount() failed: %v", err)
	}

	// the cached identity stays stale until Refresh is called
	if ident, _ := sm.Current(); ident.Status != StatusPending {
		t.Errorf("Status = %q before Refresh(); want still %q", ident.Status, StatusPending)
	}

	approved, err = sm.Refresh()
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if !approved {
		t.Error("Refresh() = false; want true after approval")
	}
	ident, _ := sm.Current()
	if ident.Status != StatusApproved {
		t.Errorf("Status = %q; want %q", ident.Status, StatusApproved)
	}
	if !ident.HasPermission(PermManageCourses) {
		t.Error("refreshed identity is missing the granted permissions")
	}
}

func Test_SessionManager_Refresh_boundToService(t *testing.T) {
	_, repo, svc, sm := sessionSetup(t)

	acct := createAccount(t, repo, "Kin Tech", "kti@test.cd", "!L0v3Elimu", RoleInstitute, StatusPending)
	if err := sm.Establish(acct.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}

	// an approval processed in this runtime refreshes the live session
	if _, err := svc.Approve(acct.ID); err != nil {
		t.Fatalf("Approve() failed: %v", err)
	}
	ident, _ := sm.Current()
	if ident.Status != StatusApproved {
		t.Errorf("Status = %q; want %q right after Approve()", ident.Status, StatusApproved)
	}
}

func Test_SessionManager_Refresh_vanishedAccount(t *testing.T) {
	store, repo, _, sm := sessionSetup(t)

	acct := createAccount(t, repo, "Awe", "awe@test.cd", "!L0v3Elimu", RoleStudent, StatusApproved)
	if err := sm.Establish(acct.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}

	// the account disappears from under the session: forced logout
	if err := store.Save(core.KeyUsers, []byte("[]")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	approved, err := sm.Refresh()
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if approved {
		t.Error("Refresh() = true for a vanished account")
	}
	if _, ok := sm.Current(); ok {
		t.Error("Current() returned an identity after a forced logout")
	}
}

func Test_SessionManager_Watch(t *testing.T) {
	_, repo, svc, sm := sessionSetup(t)

	acct := createAccount(t, repo, "Kin Tech", "kti@test.cd", "!L0v3Elimu", RoleInstitute, StatusPending)
	if err := sm.Establish(acct.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out := sm.Watch(ctx, 5*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = svc.Approve(acct.ID)
	}()

	select {
	case approved, ok := <-out:
		if !ok || !approved {
			t.Errorf("Watch() yielded (%v, %v); want (true, true)", approved, ok)
		}
	case <-ctx.Done():
		t.Fatal("Watch() did not observe the approval in time")
	}
}

func Test_SessionManager_Watch_cancelledByClear(t *testing.T) {
	_, repo, _, sm := sessionSetup(t)

	acct := createAccount(t, repo, "Kin Tech", "kti@test.cd", "!L0v3Elimu", RoleInstitute, StatusPending)
	if err := sm.Establish(acct.Identity()); err != nil {
		t.Fatalf("Establish() failed: %v", err)
	}

	out := sm.Watch(context.Background(), 5*time.Millisecond)

	// logging out cancels the watch; the channel closes without a value
	if err := sm.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	select {
	case approved, ok := <-out:
		if ok {
			t.Errorf("Watch() yielded %v after Clear(); want a closed channel", approved)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() channel did not close after Clear()")
	}
}
