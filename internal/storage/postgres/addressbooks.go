package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage/sqlstore"
)

var addressBookRow = pgx.RowToStructByName[sqlstore.AddressBookRow]

func (s *Store) CreateAddressBook(ctx context.Context, ab *contacts.AddressBook) error {
	ab.EnsureUUID()
	id, err := getOne(ctx, s.pool, s.b.InsertAddressBook(ab), pgx.RowTo[int64])
	if err != nil {
		return fmt.Errorf("failed to insert address book: %w", err)
	}
	ab.ID = id
	return nil
}

func (s *Store) GetAddressBook(ctx context.Context, id int64) (*contacts.AddressBook, error) {
	row, err := getOne(ctx, s.pool, s.b.SelectAddressBook(id), addressBookRow)
	if err != nil {
		return nil, err
	}
	return row.AddressBook(), nil
}

func (s *Store) ListAddressBooks(ctx context.Context, userID int64) ([]*contacts.AddressBook, error) {
	rows, err := getAll(ctx, s.pool, s.b.SelectAddressBooks(userID), addressBookRow)
	if err != nil {
		return nil, fmt.Errorf("failed to list address books: %w", err)
	}
	out := make([]*contacts.AddressBook, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.AddressBook())
	}
	return out, nil
}

func (s *Store) UpdateAddressBook(ctx context.Context, ab *contacts.AddressBook) error {
	n, err := exec(ctx, s.pool, s.b.UpdateAddressBook(ab))
	if err != nil {
		return fmt.Errorf("failed to update address book: %w", err)
	}
	if n == 0 {
		return contacts.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAddressBook(ctx context.Context, id int64) error {
	n, err := exec(ctx, s.pool, s.b.DeleteAddressBook(id))
	if err != nil {
		return fmt.Errorf("failed to delete address book: %w", err)
	}
	if n == 0 {
		return contacts.ErrNotFound
	}
	return nil
}
