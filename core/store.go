package core

// Record store keys. One canonical key per collection; worklists and
// indexes are derived by filtering on read, never stored separately.
const (
	KeyUsers      = "users"
	KeyInstitutes = "institutes"
	KeyAdmin      = "admin"
	KeyCourses    = "courses"
	KeyReviews    = "reviews"
	KeyEnquiries  = "enquiries"
	KeySession    = "session"
)

// RecordStore is a thin key-value persistence layer with whole-collection
// read/write semantics. No partial updates, no transactions; last writer
// wins. Callers updating more than one key as part of one logical
// operation must hold their own lock around the whole sequence.
type RecordStore interface {
	// Load returns the value stored under key. A missing or unreadable
	// value yields ok=false with a nil error; only the backend being
	// unreachable is reported as a *StorageError.
	Load(key string) (value []byte, ok bool, err error)

	// Save overwrites the value stored under key. A failed write is
	// reported as a *StorageError and leaves the previous value intact.
	Save(key string, value []byte) error

	// Delete removes the value stored under key. Deleting an absent key
	// is a no-op.
	Delete(key string) error
}
