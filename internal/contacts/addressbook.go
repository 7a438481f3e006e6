package contacts

import "github.com/google/uuid"

// AddressBook is a user-defined container addressed as addressbook<ID>.
type AddressBook struct {
	ID     int64  `json:"Id"`
	UUID   string `json:"UUID"`
	UserID int64  `json:"IdUser"`
	Name   string `json:"Name"`
}

// EnsureUUID assigns a UUID if the address book has none.
func (a *AddressBook) EnsureUUID() {
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
}

// Storage returns the storage identifier of the book's contacts.
func (a *AddressBook) Storage() Storage {
	return AddressBookStorage(a.ID)
}
