package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DenyList records revoked token ids until the token would have expired anyway
type DenyList interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryDenyList is a process-local DenyList
type MemoryDenyList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenyList creates an empty in-process deny-list
func NewMemoryDenyList() *MemoryDenyList {
	return &MemoryDenyList{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (d *MemoryDenyList) WithClock(now func() time.Time) *MemoryDenyList {
	d.now = now
	return d
}

func (d *MemoryDenyList) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.entries {
		if !exp.After(now) {
			delete(d.entries, id)
		}
	}
	d.entries[tokenID] = now.Add(ttl)
	return nil
}

func (d *MemoryDenyList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(d.now()) {
		delete(d.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// RedisDenyList stores revoked ids as expiring keys so every instance sees them
type RedisDenyList struct {
	client *redis.Client
	prefix string
}

// NewRedisDenyList creates a Redis backed deny-list
func NewRedisDenyList(client *redis.Client) *RedisDenyList {
	return &RedisDenyList{
		client: client,
		prefix: "denylist:",
	}
}

func (d *RedisDenyList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.prefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenyList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := d.client.Get(ctx, d.prefix+tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
}
