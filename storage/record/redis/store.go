package redisstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/elimu/core"
)

// Store keeps record collections as whole JSON blobs under namespaced
// redis keys, matching the record store's last-writer-wins contract.
type Store struct {
	client *redis.Client
	prefix string
}

var _ core.RecordStore = (*Store)(nil)

func Open(url, appName string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &Store{client: client, prefix: appName + ":record:"}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Load(key string) ([]byte, bool, error) {
	raw, err := s.client.Get(context.Background(), s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, core.NewStorageError("load", key, err)
	}
	return raw, true, nil
}

func (s *Store) Save(key string, value []byte) error {
	if err := s.client.Set(context.Background(), s.prefix+key, value, 0).Err(); err != nil {
		return core.NewStorageError("save", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if err := s.client.Del(context.Background(), s.prefix+key).Err(); err != nil {
		return core.NewStorageError("delete", key, err)
	}
	return nil
}
