package storage

import (
	"context"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

// SortField names a contact ordering.
type SortField string

const (
	SortName      SortField = "Name"
	SortEmail     SortField = "Email"
	SortFrequency SortField = "Frequency"
	SortFirstName SortField = "FirstName"
	SortLastName  SortField = "LastName"
)

// ParseSortField maps a caller-supplied name onto a SortField. Unknown names
// fall back to SortName.
func ParseSortField(s string) SortField {
	switch SortField(s) {
	case SortEmail, SortFrequency, SortFirstName, SortLastName:
		return SortField(s)
	}
	return SortName
}

// ContactQuery selects contacts. Storages must be concrete: personal,
// collected, shared or addressbook<N>. Personal, collected and address-book
// storages are matched against UserID, shared against TenantID.
type ContactQuery struct {
	UserID   int64
	TenantID int64
	Storages []contacts.Storage

	Search    string
	GroupUUID string
	UUIDs     []string
	// Emails matches any of the three email slots, case-insensitively.
	Emails []string

	ExcludeFrequencyExcluded bool
	OnlyAuto                 bool

	SortField SortField
	Ascending bool
	Offset    int
	Limit     int
}

// GroupQuery selects the groups of one user.
type GroupQuery struct {
	UserID int64
	Search string
	UUIDs  []string
	Offset int
	Limit  int
}

// ContactStore is the capability every contact backend provides. Missing
// records are reported as contacts.ErrNotFound.
type ContactStore interface {
	GetContact(ctx context.Context, uuid string) (*contacts.Contact, error)
	GetContactByID(ctx context.Context, id int64) (*contacts.Contact, error)
	// GetContactByEmail returns the user's contact carrying email in any
	// slot, preferring personal storage.
	GetContactByEmail(ctx context.Context, userID int64, email string) (*contacts.Contact, error)
	ListContacts(ctx context.Context, q ContactQuery) ([]*contacts.Contact, error)
	CountContacts(ctx context.Context, q ContactQuery) (int, error)
	CreateContact(ctx context.Context, c *contacts.Contact) error
	// UpdateContact fails with contacts.ErrPreconditionFailed when ifMatch
	// is set and differs from the stored ETag. Group membership is replaced
	// when c.GroupUUIDs is non-nil.
	UpdateContact(ctx context.Context, c *contacts.Contact, ifMatch string) error
	DeleteContacts(ctx context.Context, uuids []string) (int, error)

	GetGroup(ctx context.Context, uuid string) (*contacts.Group, error)
	ListGroups(ctx context.Context, q GroupQuery) ([]*contacts.Group, error)
	CreateGroup(ctx context.Context, g *contacts.Group) error
	// UpdateGroup replaces membership when g.ContactUUIDs is non-nil.
	UpdateGroup(ctx context.Context, g *contacts.Group) error
	DeleteGroups(ctx context.Context, userID int64, uuids []string) (int, error)
	AddContactsToGroup(ctx context.Context, groupUUID string, contactUUIDs []string) error
	RemoveContactsFromGroup(ctx context.Context, groupUUID string, contactUUIDs []string) error

	Close()
}

// CTagStore keeps one change counter per (owner, storage) pair.
type CTagStore interface {
	// CTag returns the current counter, 0 when the pair was never bumped.
	CTag(ctx context.Context, owner int64, storage string) (int, error)
	// BumpCTag increments the counter by one and returns the new value.
	BumpCTag(ctx context.Context, owner int64, storage string) (int, error)
}

// AddressBookStore persists user-defined address books.
type AddressBookStore interface {
	CreateAddressBook(ctx context.Context, ab *contacts.AddressBook) error
	GetAddressBook(ctx context.Context, id int64) (*contacts.AddressBook, error)
	ListAddressBooks(ctx context.Context, userID int64) ([]*contacts.AddressBook, error)
	UpdateAddressBook(ctx context.Context, ab *contacts.AddressBook) error
	DeleteAddressBook(ctx context.Context, id int64) error
}

// Store bundles the capabilities a relational backend provides.
type Store interface {
	ContactStore
	CTagStore
	AddressBookStore
}

// MetaStore holds the bookkeeping a contact backend may not keep itself.
type MetaStore interface {
	CTagStore
	AddressBookStore
	Close()
}

type combined struct {
	ContactStore
	meta MetaStore
}

// Combine pairs a contact backend with a separate store for CTags and
// address books. Closing the result closes both.
func Combine(cs ContactStore, meta MetaStore) Store {
	return &combined{ContactStore: cs, meta: meta}
}

func (c *combined) CTag(ctx context.Context, owner int64, storage string) (int, error) {
	return c.meta.CTag(ctx, owner, storage)
}

func (c *combined) BumpCTag(ctx context.Context, owner int64, storage string) (int, error) {
	return c.meta.BumpCTag(ctx, owner, storage)
}

func (c *combined) CreateAddressBook(ctx context.Context, ab *contacts.AddressBook) error {
	return c.meta.CreateAddressBook(ctx, ab)
}

func (c *combined) GetAddressBook(ctx context.Context, id int64) (*contacts.AddressBook, error) {
	return c.meta.GetAddressBook(ctx, id)
}

func (c *combined) ListAddressBooks(ctx context.Context, userID int64) ([]*contacts.AddressBook, error) {
	return c.meta.ListAddressBooks(ctx, userID)
}

func (c *combined) UpdateAddressBook(ctx context.Context, ab *contacts.AddressBook) error {
	return c.meta.UpdateAddressBook(ctx, ab)
}

func (c *combined) DeleteAddressBook(ctx context.Context, id int64) error {
	return c.meta.DeleteAddressBook(ctx, id)
}

func (c *combined) Close() {
	c.ContactStore.Close()
	c.meta.Close()
}
