package service

import (
	"context"
	"fmt"
)

// FindOrCreate looks a row up and creates it when missing. When create loses a race against
// another writer, isConflict recognizes the uniqueness error and the row is read once more.
// The conflict never reaches the caller unless the re-read still finds nothing.
func FindOrCreate[T any](
	ctx context.Context,
	find func(context.Context) (*T, error),
	create func(context.Context) (*T, error),
	isConflict func(error) bool,
) (*T, error) {
	existing, err := find(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := create(ctx)
	if err == nil {
		return created, nil
	}
	if !isConflict(err) {
		return nil, err
	}

	existing, findErr := find(ctx)
	if findErr != nil {
		return nil, findErr
	}
	if existing == nil {
		return nil, fmt.Errorf("row missing after conflicting create: %w", err)
	}
	return existing, nil
}
