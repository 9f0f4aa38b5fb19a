package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ref, err := s.Store(ctx, "cust-1", "raw-secret")
	require.NoError(t, err)
	assert.Equal(t, "customers/cust-1", ref)

	secret, err := s.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "raw-secret", secret)

	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Resolve(ctx, ref)
	assert.Error(t, err)
}

func TestMemoryStore_UnknownRef(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Resolve(context.Background(), "customers/missing")
	assert.Error(t, err)
}
