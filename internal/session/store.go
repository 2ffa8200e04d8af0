package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/storage"
)

// StorageKey is the fixed storage entry holding the serialized session
const StorageKey = "user"

// storedSession is the persisted {identity, expiry} pair
type storedSession struct {
	Data      domain.Identity `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type storedSessionWire struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt *domain.Instant `json:"expires_at"`
}

// Store persists the session in a storage.Storage and validates it on read
type Store struct {
	storage storage.Storage
	now     func() time.Time
}

// NewStore creates a session store; a nil clock defaults to time.Now
func NewStore(s storage.Storage, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		storage: s,
		now:     now,
	}
}

// Now returns the store's current time
func (s *Store) Now() time.Time {
	return s.now()
}

// Save serializes the identity and expiry under StorageKey
func (s *Store) Save(ctx context.Context, identity domain.Identity, expiresAt time.Time) error {
	payload, err := json.Marshal(storedSession{Data: identity, ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.storage.SetItem(ctx, StorageKey, string(payload)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored session. A missing entry, a malformed payload, or an
// expired session all yield (nil, false); the latter two also erase the entry.
func (s *Store) Load(ctx context.Context) (*domain.Session, bool) {
	payload, exists, err := s.storage.GetItem(ctx, StorageKey)
	if err != nil {
		log.Printf("[ERROR] Failed to read stored session: %v", err)
		return nil, false
	}
	if !exists {
		return nil, false
	}

	session, err := decodeStored(payload)
	if err != nil {
		log.Printf("Discarding malformed stored session: %v", err)
		s.purge(ctx)
		return nil, false
	}

	if !session.ValidAt(s.now()) {
		s.purge(ctx)
		return nil, false
	}

	return session, true
}

// Clear removes the stored session unconditionally
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.RemoveItem(ctx, StorageKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *Store) purge(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
	}
}

func decodeStored(payload string) (*domain.Session, error) {
	var w storedSessionWire
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, err
	}
	if w.ExpiresAt == nil {
		return nil, fmt.Errorf("missing expires_at")
	}
	identity, err := domain.DecodeIdentity(w.Data)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		Identity:  identity,
		ExpiresAt: w.ExpiresAt.Time(),
		LoggedIn:  true,
	}, nil
}
