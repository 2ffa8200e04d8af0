package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_New(t *testing.T) {
	s := New()
	assert.NotNil(t, s)
	assert.NotNil(t, s.data)
	assert.Equal(t, 0, s.Len())
}

func TestStorage_SetAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "user", `{"a":1}`))

	value, exists, err := s.GetItem(ctx, "user")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, `{"a":1}`, value)

	// overwrite
	require.NoError(t, s.SetItem(ctx, "user", `{"a":2}`))
	value, _, _ = s.GetItem(ctx, "user")
	assert.Equal(t, `{"a":2}`, value)

	value, exists, err = s.GetItem(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, value)
}

func TestStorage_RemoveItem(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "user", "x"))
	require.NoError(t, s.RemoveItem(ctx, "user"))

	_, exists, _ := s.GetItem(ctx, "user")
	assert.False(t, exists)

	// removing a missing key is fine
	assert.NoError(t, s.RemoveItem(ctx, "user"))
	assert.NoError(t, s.Close())
}

func TestStorage_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			assert.NoError(t, s.SetItem(ctx, key, key))
			_, _, err := s.GetItem(ctx, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
