package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

func (s *Store) CTag(ctx context.Context, owner int64, storage string) (int, error) {
	var ctag int
	err := get(ctx, s.db, &ctag, s.b.SelectCTag(owner, storage))
	if errors.Is(err, contacts.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read ctag: %w", err)
	}
	return ctag, nil
}

func (s *Store) BumpCTag(ctx context.Context, owner int64, storage string) (int, error) {
	var ctag int
	if err := get(ctx, s.db, &ctag, s.b.BumpCTag(owner, storage)); err != nil {
		return 0, fmt.Errorf("failed to bump ctag: %w", err)
	}
	return ctag, nil
}
