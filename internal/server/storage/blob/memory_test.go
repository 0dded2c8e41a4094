package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/govsync/internal/common"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.Get(ctx, "x")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, m.Put(ctx, "a/2", []byte("2"), ""))
	require.NoError(t, m.Put(ctx, "a/1", []byte("1"), ""))
	require.NoError(t, m.Put(ctx, "b/1", []byte("b"), ""))

	keys, err := m.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2"}, keys)

	b, err := m.Get(ctx, "a/1")
	require.NoError(t, err)
	b[0] = 'z'
	again, _ := m.Get(ctx, "a/1")
	assert.Equal(t, "1", string(again), "Get must return a copy")

	ok, _ := m.Exists(ctx, "b/1")
	assert.True(t, ok)
	assert.Equal(t, 3, m.Puts())
}
