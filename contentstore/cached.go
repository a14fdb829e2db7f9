package contentstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
)

// CachedStore wraps a Store with an LRU over fetches. Content is immutable
// once addressed, so cached entries never expire.
type CachedStore struct {
	inner Store
	cache *lru.Cache
}

func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (s *CachedStore) Store(ctx context.Context, data []byte) (string, error) {
	id, err := s.inner.Store(ctx, data)
	if err != nil {
		return "", err
	}
	s.cache.Add(id, append([]byte(nil), data...))
	return id, nil
}

func (s *CachedStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.([]byte), nil
	}
	data, err := s.inner.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, data)
	return data, nil
}
