// Package manager is the entry point for contact operations. It resolves
// storages, keeps ETags and CTags current and reports changes to an
// observer.
package manager

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
)

// User identifies the caller of an operation.
type User struct {
	ID       int64
	TenantID int64
}

// TeamDirectory serves the read-only team storage.
type TeamDirectory interface {
	ListTeam(ctx context.Context) ([]*contacts.Contact, error)
	GetTeamContact(ctx context.Context, id string) (*contacts.Contact, error)
}

type Manager struct {
	store        storage.Store
	team         TeamDirectory
	observer     Observer
	logger       zerolog.Logger
	now          func() time.Time
	lenientVCF   bool
	maxImport    int64
	suggestLimit int
}

type Option func(*Manager)

func WithTeamDirectory(t TeamDirectory) Option {
	return func(m *Manager) { m.team = t }
}

func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithImportLimits bounds import size in bytes and selects lenient vCard
// parsing.
func WithImportLimits(maxBytes int64, lenientVCF bool) Option {
	return func(m *Manager) {
		m.maxImport = maxBytes
		m.lenientVCF = lenientVCF
	}
}

func WithSuggestLimit(n int) Option {
	return func(m *Manager) { m.suggestLimit = n }
}

func New(store storage.Store, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		observer:     NopObserver{},
		logger:       logger.With().Str("component", "manager").Logger(),
		now:          time.Now,
		lenientVCF:   true,
		maxImport:    10 << 20,
		suggestLimit: 20,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// stamp refreshes the derived and bookkeeping fields before a write.
func (m *Manager) stamp(c *contacts.Contact) error {
	c.EnsureUUID()
	if err := c.Populate(); err != nil {
		return err
	}
	c.DateModified = m.now().UTC().Truncate(time.Second)
	c.ETag = contacts.ComputeETag(c)
	return nil
}

func ctagOwner(u User, st contacts.Storage) int64 {
	if st.TenantScoped() {
		return u.TenantID
	}
	return u.ID
}

// scope names one CTag counter.
type scope struct {
	owner   int64
	storage contacts.Storage
}

func userScope(u User, st contacts.Storage) scope {
	return scope{owner: ctagOwner(u, st), storage: st}
}

// contactScope is the counter of the storage c lives in, owned by c's user
// or tenant rather than by whoever touched it.
func contactScope(c *contacts.Contact) scope {
	st := c.StorageID()
	if st.TenantScoped() {
		return scope{owner: c.TenantID, storage: st}
	}
	return scope{owner: c.UserID, storage: st}
}

// bump is not transactional with the write it follows. A failure is
// logged and the write still counts as done.
func (m *Manager) bump(ctx context.Context, sc scope) {
	if _, err := m.store.BumpCTag(ctx, sc.owner, sc.storage.String()); err != nil {
		m.logger.Warn().Err(err).
			Int64("owner", sc.owner).
			Str("storage", sc.storage.String()).
			Msg("Failed to bump ctag")
	}
}

func (m *Manager) bumpCTag(ctx context.Context, u User, st contacts.Storage) {
	m.bump(ctx, userScope(u, st))
}

func (m *Manager) bumpAll(ctx context.Context, scopes map[scope]struct{}) {
	for sc := range scopes {
		m.bump(ctx, sc)
	}
}

func (m *Manager) GetCTag(ctx context.Context, u User, storageID string) (int, error) {
	st, err := contacts.ParseStorage(storageID)
	if err != nil {
		return 0, err
	}
	if st.Kind == contacts.StorageAll {
		return 0, contacts.ErrInvalidStorage
	}
	return m.store.CTag(ctx, ctagOwner(u, st), st.String())
}

// ownedAddressBook loads an address book and checks it belongs to u.
func (m *Manager) ownedAddressBook(ctx context.Context, u User, id int64) (*contacts.AddressBook, error) {
	ab, err := m.store.GetAddressBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if ab.UserID != u.ID {
		return nil, contacts.ErrNotFound
	}
	return ab, nil
}

// writableStorage parses id and checks u may create contacts there.
func (m *Manager) writableStorage(ctx context.Context, u User, id string) (contacts.Storage, error) {
	if id == "" {
		id = string(contacts.StoragePersonal)
	}
	st, err := contacts.ParseStorage(id)
	if err != nil {
		return st, err
	}
	if !st.Writable() {
		return st, contacts.ErrReadOnly
	}
	if st.Kind == contacts.StorageAddressBook {
		if _, err := m.ownedAddressBook(ctx, u, st.AddressBookID); err != nil {
			return st, err
		}
	}
	return st, nil
}

// scopes expands st into the concrete storages it covers for u.
func (m *Manager) scopes(ctx context.Context, u User, st contacts.Storage) ([]contacts.Storage, error) {
	switch st.Kind {
	case contacts.StorageAll:
		out := []contacts.Storage{
			{Kind: contacts.StoragePersonal},
			{Kind: contacts.StorageCollected},
			{Kind: contacts.StorageShared},
		}
		if m.team != nil {
			out = append(out, contacts.Storage{Kind: contacts.StorageTeam})
		}
		books, err := m.store.ListAddressBooks(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		for _, ab := range books {
			out = append(out, ab.Storage())
		}
		return out, nil
	case contacts.StorageAddressBook:
		if _, err := m.ownedAddressBook(ctx, u, st.AddressBookID); err != nil {
			return nil, err
		}
	}
	return []contacts.Storage{st}, nil
}

func canRead(u User, c *contacts.Contact) bool {
	if c.StorageID().TenantScoped() {
		return c.TenantID == u.TenantID
	}
	return c.UserID == u.ID
}

func isNotFound(err error) bool {
	return errors.Is(err, contacts.ErrNotFound)
}
