// Package storage defines the interface and implementations for model
// atmosphere storage backends.
package storage

import (
	"context"
	"errors"

	"github.com/chrissnell/stellaratm/internal/types"
)

// ErrNotFound is returned when a run ID is not present in a store
var ErrNotFound = errors.New("storage: model not found")

// ModelStore is an interface that provides a few standardized methods for
// the various model storage backends
type ModelStore interface {
	// Save stores a model and its level table
	Save(ctx context.Context, m *types.Atmosphere) error
	// Get returns a model with its level table
	Get(ctx context.Context, id string) (*types.Atmosphere, error)
	// List returns run summaries, newest first, without level tables
	List(ctx context.Context) ([]types.Atmosphere, error)
	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}
