package account

import (
	"encoding/json"
	"sync"

	"github.com/trezcool/elimu/core"
)

// Repository persists accounts through the record store using
// whole-collection read/modify/write. Students live under core.KeyUsers,
// institutes under core.KeyInstitutes and the singleton admin under
// core.KeyAdmin; status is stored in exactly one place per account and any
// "pending" worklist is derived by filtering on read.
//
// The mutex spans every logical operation so that a sequence touching more
// than one collection is a single critical section.
type Repository struct {
	mu    sync.Mutex
	store core.RecordStore
}

func NewRepository(store core.RecordStore) *Repository {
	return &Repository{store: store}
}

// load returns the collection under key; a missing or corrupt value is an
// empty collection, never an error (the store reports only backend
// failures).
func (repo *Repository) load(key string) ([]Account, error) {
	raw, ok, err := repo.store.Load(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var accts []Account
	if err := json.Unmarshal(raw, &accts); err != nil {
		// corrupt collection: treat as absent
		return nil, nil
	}
	return accts, nil
}

func (repo *Repository) save(key string, accts []Account) error {
	raw, err := json.Marshal(accts)
	if err != nil {
		return core.NewStorageError("save", key, err)
	}
	return repo.store.Save(key, raw)
}

func collectionKey(role string) string {
	switch role {
	case RoleInstitute:
		return core.KeyInstitutes
	case RoleAdmin:
		return core.KeyAdmin
	default:
		return core.KeyUsers
	}
}

// all returns users, institutes and admin in lookup order.
func (repo *Repository) all() ([]Account, error) {
	users, err := repo.load(core.KeyUsers)
	if err != nil {
		return nil, err
	}
	institutes, err := repo.load(core.KeyInstitutes)
	if err != nil {
		return nil, err
	}
	admin, err := repo.load(core.KeyAdmin)
	if err != nil {
		return nil, err
	}

	accts := make([]Account, 0, len(users)+len(institutes)+len(admin))
	accts = append(accts, users...)
	accts = append(accts, institutes...)
	accts = append(accts, admin...)
	return accts, nil
}

func (repo *Repository) CheckEmailUniqueness(email string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	accts, err := repo.all()
	if err != nil {
		return err
	}
	for _, acct := range accts {
		if acct.Email == email {
			return ErrEmailExists
		}
	}
	return nil
}

func (repo *Repository) CreateAccount(acct Account) (Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	accts, err := repo.all()
	if err != nil {
		return Account{}, err
	}
	for _, a := range accts {
		if a.Email == acct.Email {
			return Account{}, ErrEmailExists
		}
	}

	key := collectionKey(acct.Role)
	coll, err := repo.load(key)
	if err != nil {
		return Account{}, err
	}
	coll = append(coll, acct)
	if err := repo.save(key, coll); err != nil {
		return Account{}, err
	}
	return acct, nil
}

func (repo *Repository) GetAccountByID(id string) (Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.getByID(id)
}

func (repo *Repository) getByID(id string) (Account, error) {
	accts, err := repo.all()
	if err != nil {
		return Account{}, err
	}
	for _, acct := range accts {
		if acct.ID == id {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

// GetAccountByEmail searches users, then institutes, then the admin.
func (repo *Repository) GetAccountByEmail(email string) (Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	accts, err := repo.all()
	if err != nil {
		return Account{}, err
	}
	for _, acct := range accts {
		if acct.Email == email {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

func (repo *Repository) UpdateAccount(acct Account) (Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := collectionKey(acct.Role)
	coll, err := repo.load(key)
	if err != nil {
		return Account{}, err
	}
	for i, a := range coll {
		if a.ID == acct.ID {
			coll[i] = acct
			if err := repo.save(key, coll); err != nil {
				return Account{}, err
			}
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

// QueryAllAccounts returns every student and institute account.
func (repo *Repository) QueryAllAccounts() ([]Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	users, err := repo.load(core.KeyUsers)
	if err != nil {
		return nil, err
	}
	institutes, err := repo.load(core.KeyInstitutes)
	if err != nil {
		return nil, err
	}
	return append(users, institutes...), nil
}

// QueryPendingAccounts is the derived approval worklist.
func (repo *Repository) QueryPendingAccounts() ([]Account, error) {
	accts, err := repo.QueryAllAccounts()
	if err != nil {
		return nil, err
	}
	pending := make([]Account, 0, len(accts))
	for _, acct := range accts {
		if acct.Status == StatusPending {
			pending = append(pending, acct)
		}
	}
	return pending, nil
}

// QueryInstitutesByStatus filters the institute collection.
func (repo *Repository) QueryInstitutesByStatus(status string) ([]Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	institutes, err := repo.load(core.KeyInstitutes)
	if err != nil {
		return nil, err
	}
	matched := make([]Account, 0, len(institutes))
	for _, acct := range institutes {
		if acct.Status == status {
			matched = append(matched, acct)
		}
	}
	return matched, nil
}

// GetAdmin returns the singleton admin account if bootstrapped.
func (repo *Repository) GetAdmin() (Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	admin, err := repo.load(core.KeyAdmin)
	if err != nil {
		return Account{}, err
	}
	if len(admin) == 0 {
		return Account{}, ErrNotFound
	}
	return admin[0], nil
}

// SaveAdmin stores the singleton admin account.
func (repo *Repository) SaveAdmin(acct Account) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.save(core.KeyAdmin, []Account{acct})
}
