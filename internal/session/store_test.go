package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/storage/memory"
	"github.com/joshdurbin/goshort/internal/storage/mocks"
)

// clock is a settable time source
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func testIdentity(username string) domain.Identity {
	return domain.Identity{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Role:     "user",
	}
}

func TestStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	s := NewStore(memory.New(), c.Now)

	alice := testIdentity("alice")
	expiry := c.now.Add(time.Hour)
	require.NoError(t, s.Save(ctx, alice, expiry))

	loaded, ok := s.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, alice, loaded.Identity)
	assert.True(t, expiry.Equal(loaded.ExpiresAt))
	assert.True(t, loaded.LoggedIn)

	// still valid one nanosecond before expiry
	c.Advance(time.Hour - time.Nanosecond)
	_, ok = s.Load(ctx)
	assert.True(t, ok)
}

func TestStore_Load_Expired(t *testing.T) {
	testCases := []struct {
		name    string
		advance time.Duration
	}{
		{"exactly at expiry", time.Hour},
		{"after expiry", 2 * time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			c := newClock()
			backing := memory.New()
			s := NewStore(backing, c.Now)

			require.NoError(t, s.Save(ctx, testIdentity("alice"), c.now.Add(time.Hour)))
			c.Advance(tc.advance)

			loaded, ok := s.Load(ctx)
			assert.False(t, ok)
			assert.Nil(t, loaded)

			_, exists, _ := backing.GetItem(ctx, StorageKey)
			assert.False(t, exists, "expired entry must be erased")
		})
	}
}

func TestStore_Load_Malformed(t *testing.T) {
	payloads := map[string]string{
		"not json":         "{nope",
		"missing expiry":   `{"data":{"id":"` + uuid.NewString() + `","username":"alice","email":"a@x.io","role":"user"}}`,
		"missing identity": `{"expires_at":"2030-01-01T00:00:00Z"}`,
		"bad id":           `{"data":{"id":"1","username":"alice","email":"a@x.io","role":"user"},"expires_at":"2030-01-01T00:00:00Z"}`,
		"empty username":   `{"data":{"id":"` + uuid.NewString() + `","username":"","email":"a@x.io","role":"user"},"expires_at":"2030-01-01T00:00:00Z"}`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			backing := memory.New()
			require.NoError(t, backing.SetItem(ctx, StorageKey, payload))

			s := NewStore(backing, newClock().Now)
			loaded, ok := s.Load(ctx)
			assert.False(t, ok)
			assert.Nil(t, loaded)

			_, exists, _ := backing.GetItem(ctx, StorageKey)
			assert.False(t, exists, "malformed entry must be erased")
		})
	}
}

func TestStore_Load_Missing(t *testing.T) {
	s := NewStore(memory.New(), nil)
	loaded, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.Nil(t, loaded)
}

func TestStore_Load_StorageError(t *testing.T) {
	backing := &mocks.Storage{}
	backing.On("GetItem", mock.Anything, StorageKey).Return("", false, errors.New("disk gone"))

	s := NewStore(backing, nil)
	loaded, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.Nil(t, loaded)

	backing.AssertExpectations(t)
	backing.AssertNotCalled(t, "RemoveItem", mock.Anything, mock.Anything)
}

func TestStore_Save_StorageError(t *testing.T) {
	backing := &mocks.Storage{}
	backing.On("SetItem", mock.Anything, StorageKey, mock.AnythingOfType("string")).Return(errors.New("read-only"))

	s := NewStore(backing, nil)
	err := s.Save(context.Background(), testIdentity("alice"), time.Now().Add(time.Hour))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save session")
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	backing := memory.New()
	s := NewStore(backing, nil)

	require.NoError(t, s.Save(ctx, testIdentity("alice"), time.Now().Add(time.Hour)))
	require.NoError(t, s.Clear(ctx))

	_, ok := s.Load(ctx)
	assert.False(t, ok)

	// clearing twice is fine
	assert.NoError(t, s.Clear(ctx))
}
