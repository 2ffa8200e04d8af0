package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T, prefix string) (*Storage, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)

	s, err := New(context.Background(), "redis://"+server.Addr(), prefix)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, server
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "not-a-url", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis URL")
}

func TestNew_Unreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := New(context.Background(), "redis://"+addr, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestNewWithClient_DefaultPrefix(t *testing.T) {
	s := NewWithClient(nil, "")
	assert.Equal(t, DefaultPrefix, s.prefix)
	assert.Equal(t, "goshort:user", s.key("user"))

	s = NewWithClient(nil, "test:")
	assert.Equal(t, "test:user", s.key("user"))
}

func TestStorage_SetGetRemove(t *testing.T) {
	s, server := setupTestStorage(t, "")
	ctx := context.Background()

	_, exists, err := s.GetItem(ctx, "user")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.SetItem(ctx, "user", "first"))
	require.NoError(t, s.SetItem(ctx, "user", "second"))

	value, exists, err := s.GetItem(ctx, "user")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "second", value)

	// stored under the namespaced key without a TTL
	raw, err := server.Get("goshort:user")
	require.NoError(t, err)
	assert.Equal(t, "second", raw)
	assert.Zero(t, server.TTL("goshort:user"))

	require.NoError(t, s.RemoveItem(ctx, "user"))
	_, exists, err = s.GetItem(ctx, "user")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.False(t, server.Exists("goshort:user"))

	assert.NoError(t, s.RemoveItem(ctx, "user"))
}

func TestStorage_PrefixesAreIsolated(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	first, err := New(ctx, "redis://"+server.Addr(), "one:")
	require.NoError(t, err)
	defer first.Close()
	second, err := New(ctx, "redis://"+server.Addr(), "two:")
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.SetItem(ctx, "cookies", "[]"))

	_, exists, err := second.GetItem(ctx, "cookies")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStorage_ServerErrors(t *testing.T) {
	s, server := setupTestStorage(t, "")
	ctx := context.Background()

	server.SetError("ERR backend unavailable")

	_, _, err := s.GetItem(ctx, "user")
	assert.ErrorContains(t, err, "failed to get item")
	assert.ErrorContains(t, s.SetItem(ctx, "user", "x"), "failed to set item")
	assert.ErrorContains(t, s.RemoveItem(ctx, "user"), "failed to remove item")
}
