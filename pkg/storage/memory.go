package storage

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps documents in process. Documents never expire; the
// sweeper bounds their content instead.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if x, found := s.cache.Get(key); found {
		raw := x.([]byte)
		return append([]byte(nil), raw...), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.cache.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Len is the number of stored documents.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
