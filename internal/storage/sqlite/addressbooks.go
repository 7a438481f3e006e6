package sqlite

import (
	"context"
	"fmt"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage/sqlstore"
)

func (s *Store) CreateAddressBook(ctx context.Context, ab *contacts.AddressBook) error {
	ab.EnsureUUID()
	var id int64
	if err := get(ctx, s.db, &id, s.b.InsertAddressBook(ab)); err != nil {
		return fmt.Errorf("failed to insert address book: %w", err)
	}
	ab.ID = id
	return nil
}

func (s *Store) GetAddressBook(ctx context.Context, id int64) (*contacts.AddressBook, error) {
	var row sqlstore.AddressBookRow
	if err := get(ctx, s.db, &row, s.b.SelectAddressBook(id)); err != nil {
		return nil, err
	}
	return row.AddressBook(), nil
}

func (s *Store) ListAddressBooks(ctx context.Context, userID int64) ([]*contacts.AddressBook, error) {
	var rows []sqlstore.AddressBookRow
	if err := list(ctx, s.db, &rows, s.b.SelectAddressBooks(userID)); err != nil {
		return nil, fmt.Errorf("failed to list address books: %w", err)
	}
	out := make([]*contacts.AddressBook, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.AddressBook())
	}
	return out, nil
}

func (s *Store) UpdateAddressBook(ctx context.Context, ab *contacts.AddressBook) error {
	n, err := exec(ctx, s.db, s.b.UpdateAddressBook(ab))
	if err != nil {
		return fmt.Errorf("failed to update address book: %w", err)
	}
	if n == 0 {
		return contacts.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAddressBook(ctx context.Context, id int64) error {
	n, err := exec(ctx, s.db, s.b.DeleteAddressBook(id))
	if err != nil {
		return fmt.Errorf("failed to delete address book: %w", err)
	}
	if n == 0 {
		return contacts.ErrNotFound
	}
	return nil
}
