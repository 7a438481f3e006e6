package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

func (s *Store) CTag(ctx context.Context, owner int64, storage string) (int, error) {
	v, err := getOne(ctx, s.pool, s.b.SelectCTag(owner, storage), pgx.RowTo[int32])
	if errors.Is(err, contacts.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read ctag: %w", err)
	}
	return int(v), nil
}

func (s *Store) BumpCTag(ctx context.Context, owner int64, storage string) (int, error) {
	v, err := getOne(ctx, s.pool, s.b.BumpCTag(owner, storage), pgx.RowTo[int32])
	if err != nil {
		return 0, fmt.Errorf("failed to bump ctag: %w", err)
	}
	return int(v), nil
}
