package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
)

func bookName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: address book name is required", contacts.ErrValidation)
	}
	return name, nil
}

func (m *Manager) CreateAddressBook(ctx context.Context, u User, name string) (*contacts.AddressBook, error) {
	name, err := bookName(name)
	if err != nil {
		return nil, err
	}
	ab := &contacts.AddressBook{UserID: u.ID, Name: name}
	ab.EnsureUUID()
	if err := m.store.CreateAddressBook(ctx, ab); err != nil {
		return nil, err
	}
	return ab, nil
}

func (m *Manager) GetAddressBooks(ctx context.Context, u User) ([]*contacts.AddressBook, error) {
	return m.store.ListAddressBooks(ctx, u.ID)
}

func (m *Manager) RenameAddressBook(ctx context.Context, u User, id int64, name string) error {
	name, err := bookName(name)
	if err != nil {
		return err
	}
	ab, err := m.ownedAddressBook(ctx, u, id)
	if err != nil {
		return err
	}
	ab.Name = name
	return m.store.UpdateAddressBook(ctx, ab)
}

// DeleteAddressBook removes the book together with its contacts.
func (m *Manager) DeleteAddressBook(ctx context.Context, u User, id int64) error {
	ab, err := m.ownedAddressBook(ctx, u, id)
	if err != nil {
		return err
	}
	st := ab.Storage()
	list, err := m.store.ListContacts(ctx, storage.ContactQuery{
		UserID:   u.ID,
		TenantID: u.TenantID,
		Storages: []contacts.Storage{st},
	})
	if err != nil {
		return err
	}
	uuids := make([]string, 0, len(list))
	for _, c := range list {
		uuids = append(uuids, c.UUID)
	}
	if len(uuids) > 0 {
		if _, err := m.store.DeleteContacts(ctx, uuids); err != nil {
			return err
		}
	}
	if err := m.store.DeleteAddressBook(ctx, id); err != nil {
		return err
	}
	m.bumpCTag(ctx, u, st)
	m.notify(ctx, u, Event{Kind: EventAddressBookDeleted, Storage: st.String(), ContactUUIDs: uuids})
	return nil
}
