// Package storage provides the durable key/value boundary the storefront persists its cart, orders and
// preferences through. Values are opaque byte slices; callers own serialization.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: key not found")

// Storage is a string-keyed blob store. SetItem overwrites any prior value.
type Storage interface {
	// GetItem returns the value stored under key.
	// Returns ErrNotFound if nothing is stored under key.
	GetItem(ctx context.Context, key string) ([]byte, error)

	// SetItem stores value under key, replacing the previous value.
	SetItem(ctx context.Context, key string, value []byte) error
}

type scoped struct {
	base   Storage
	prefix string
}

// Scoped returns a Storage whose keys live in namespace of base.
func Scoped(base Storage, namespace string) Storage {
	return &scoped{base: base, prefix: namespace + ":"}
}

func (s *scoped) GetItem(ctx context.Context, key string) ([]byte, error) {
	return s.base.GetItem(ctx, s.prefix+key)
}

func (s *scoped) SetItem(ctx context.Context, key string, value []byte) error {
	return s.base.SetItem(ctx, s.prefix+key, value)
}
