package filestore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var keyRegex = regexp.MustCompile(`^[\w.-]+$`)

// Store persists each record key as one JSON file under a data directory,
// the single-client analog of browser local storage. Writes go through a
// temp file + rename so a crashed write never corrupts the previous value.
type Store struct {
	dir string
}

var _ core.RecordStore = (*Store)(nil)

func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating data dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) (string, error) {
	if !keyRegex.MatchString(key) {
		return "", errors.Errorf("invalid record key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *Store) Load(key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, core.NewStorageError("load", key, err)
	}
	raw, err := ioutil.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		// unreadable file: treat as absent rather than failing the caller
		return nil, false, nil
	}
	return raw, true, nil
}

func (s *Store) Save(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return core.NewStorageError("save", key, err)
	}

	tmp, err := ioutil.TempFile(s.dir, "."+key+"-*")
	if err != nil {
		return core.NewStorageError("save", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(value); err != nil {
		tmp.Close()
		return core.NewStorageError("save", key, err)
	}
	if err = tmp.Close(); err != nil {
		return core.NewStorageError("save", key, err)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return core.NewStorageError("save", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return core.NewStorageError("delete", key, err)
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return core.NewStorageError("delete", key, err)
	}
	return nil
}
