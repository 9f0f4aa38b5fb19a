package secrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudsentry/posture/internal/domain/service"
	"github.com/cloudsentry/posture/pkg/errors"
)

// MemoryStore keeps secrets in process memory. Development and test use only;
// secrets do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore creates an empty in-memory secret store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]string)}
}

var _ service.SecretStore = (*MemoryStore)(nil)

func (s *MemoryStore) Store(ctx context.Context, customerID, secret string) (string, error) {
	ref := fmt.Sprintf("customers/%s", customerID)
	s.mu.Lock()
	s.secrets[ref] = secret
	s.mu.Unlock()
	return ref, nil
}

func (s *MemoryStore) Resolve(ctx context.Context, ref string) (string, error) {
	s.mu.RLock()
	secret, ok := s.secrets[ref]
	s.mu.RUnlock()
	if !ok {
		return "", errors.ErrInternal(fmt.Errorf("unknown secret reference %s", ref))
	}
	return secret, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	delete(s.secrets, ref)
	s.mu.Unlock()
	return nil
}
