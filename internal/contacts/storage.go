package contacts

import (
	"fmt"
	"strconv"
	"strings"
)

// StorageKind classifies where a contact lives.
type StorageKind string

const (
	StoragePersonal    StorageKind = "personal"
	StorageCollected   StorageKind = "collected"
	StorageTeam        StorageKind = "team"
	StorageShared      StorageKind = "shared"
	StorageAll         StorageKind = "all"
	StorageAddressBook StorageKind = "addressbook"
)

// Storage is a parsed storage identifier. AddressBookID is only set for
// StorageAddressBook.
type Storage struct {
	Kind          StorageKind
	AddressBookID int64
}

// ParseStorage parses personal|collected|team|shared|all or addressbook<N>.
// A colon after the addressbook prefix is tolerated.
func ParseStorage(s string) (Storage, error) {
	s = strings.TrimSpace(s)
	switch StorageKind(s) {
	case StoragePersonal, StorageCollected, StorageTeam, StorageShared, StorageAll:
		return Storage{Kind: StorageKind(s)}, nil
	}
	if rest, ok := strings.CutPrefix(s, string(StorageAddressBook)); ok {
		rest = strings.TrimPrefix(rest, ":")
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return Storage{}, fmt.Errorf("%w: %q", ErrInvalidStorage, s)
		}
		return Storage{Kind: StorageAddressBook, AddressBookID: id}, nil
	}
	return Storage{}, fmt.Errorf("%w: %q", ErrInvalidStorage, s)
}

// AddressBookStorage returns the identifier of a user-defined address book.
func AddressBookStorage(id int64) Storage {
	return Storage{Kind: StorageAddressBook, AddressBookID: id}
}

func (s Storage) String() string {
	if s.Kind == StorageAddressBook {
		return string(StorageAddressBook) + strconv.FormatInt(s.AddressBookID, 10)
	}
	return string(s.Kind)
}

// Writable reports whether contacts can be created in the storage. team is
// sourced from the directory and all is a view over the others.
func (s Storage) Writable() bool {
	switch s.Kind {
	case StoragePersonal, StorageCollected, StorageShared, StorageAddressBook:
		return true
	}
	return false
}

// TenantScoped reports whether the storage is owned by the tenant rather
// than by a single user.
func (s Storage) TenantScoped() bool {
	return s.Kind == StorageShared || s.Kind == StorageTeam
}
