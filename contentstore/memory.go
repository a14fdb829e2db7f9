package contentstore

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// ErrContentNotFound is returned when fetching an unknown identifier.
var ErrContentNotFound = errors.New("contentstore: content not found")

// MemoryStore is an in-process content-addressed store. Identifiers are the
// hex keccak of the content, so storing identical bytes twice yields the same
// identifier.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Store(ctx context.Context, data []byte) (string, error) {
	id := crypto.Keccak256Hash(data).Hex()
	s.mu.Lock()
	s.data[id] = append([]byte(nil), data...)
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrContentNotFound
	}
	return append([]byte(nil), data...), nil
}
