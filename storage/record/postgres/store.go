package pgstore

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS record (
    key   text PRIMARY KEY,
    value jsonb NOT NULL
);`

// Store keeps each record collection as one jsonb row, preserving the
// whole-collection read/write contract on top of Postgres.
type Store struct {
	db *sqlx.DB
}

var _ core.RecordStore = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	if _, err = db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "creating record table")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(key string) ([]byte, bool, error) {
	var raw []byte
	err := s.db.Get(&raw, `SELECT value FROM record WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, core.NewStorageError("load", key, err)
	}
	return raw, true, nil
}

func (s *Store) Save(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO record (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return core.NewStorageError("save", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM record WHERE key = $1`, key); err != nil {
		return core.NewStorageError("delete", key, err)
	}
	return nil
}
