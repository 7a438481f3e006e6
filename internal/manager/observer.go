package manager

import "context"

type EventKind string

const (
	EventContactCreated      EventKind = "contact.created"
	EventContactUpdated      EventKind = "contact.updated"
	EventContactsDeleted     EventKind = "contacts.deleted"
	EventContactsMoved       EventKind = "contacts.moved"
	EventContactsImported    EventKind = "contacts.imported"
	EventGroupCreated        EventKind = "group.created"
	EventGroupUpdated        EventKind = "group.updated"
	EventGroupsDeleted       EventKind = "groups.deleted"
	EventGroupMembersChanged EventKind = "group.members"
	EventAddressBookDeleted  EventKind = "addressbook.deleted"
)

// Event describes one completed mutation.
type Event struct {
	Kind         EventKind
	UserID       int64
	TenantID     int64
	Storage      string
	ContactUUIDs []string
	GroupUUIDs   []string
}

// Observer is told about every mutation after it was persisted. It runs
// synchronously; an error is logged and does not undo the mutation.
type Observer interface {
	ContactsChanged(ctx context.Context, e Event) error
}

type ObserverFunc func(ctx context.Context, e Event) error

func (f ObserverFunc) ContactsChanged(ctx context.Context, e Event) error { return f(ctx, e) }

type NopObserver struct{}

func (NopObserver) ContactsChanged(context.Context, Event) error { return nil }

func (m *Manager) notify(ctx context.Context, u User, e Event) {
	e.UserID = u.ID
	e.TenantID = u.TenantID
	if err := m.observer.ContactsChanged(ctx, e); err != nil {
		m.logger.Warn().Err(err).Str("event", string(e.Kind)).Msg("Observer failed")
	}
}
