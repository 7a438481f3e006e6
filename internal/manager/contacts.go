package manager

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
)

// ListRequest selects a page of contacts. Storage defaults to all.
type ListRequest struct {
	Storage   string
	Search    string
	GroupUUID string
	UUIDs     []string
	SortField storage.SortField
	Ascending bool
	Offset    int
	Limit     int
}

// AgeScore ranks by usage decayed over the days since the last change.
func AgeScore(c *contacts.Contact, now time.Time) float64 {
	days := math.Ceil(now.Sub(c.DateModified).Hours() / 24)
	return float64(c.Frequency) / math.Max(1, days)
}

func sortByAgeScore(list []*contacts.Contact, now time.Time, asc bool) {
	slices.SortStableFunc(list, func(a, b *contacts.Contact) int {
		sa, sb := AgeScore(a, now), AgeScore(b, now)
		n := 0
		switch {
		case sa < sb:
			n = -1
		case sa > sb:
			n = 1
		default:
			n = strings.Compare(a.UUID, b.UUID)
		}
		if !asc {
			n = -n
		}
		return n
	})
}

func (m *Manager) GetContact(ctx context.Context, u User, uuid string) (*contacts.Contact, error) {
	c, err := m.store.GetContact(ctx, uuid)
	if isNotFound(err) && m.team != nil {
		c, err = m.team.GetTeamContact(ctx, uuid)
	}
	if err != nil {
		return nil, err
	}
	if !canRead(u, c) {
		return nil, contacts.ErrNotFound
	}
	return c, nil
}

// GetContactByEmail returns the user's own contact for email, preferring
// personal storage.
func (m *Manager) GetContactByEmail(ctx context.Context, u User, email string) (*contacts.Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: empty email", contacts.ErrValidation)
	}
	return m.store.GetContactByEmail(ctx, u.ID, email)
}

// GetContacts returns one page of contacts and the total number of
// matches.
func (m *Manager) GetContacts(ctx context.Context, u User, req ListRequest) ([]*contacts.Contact, int, error) {
	if req.Storage == "" {
		req.Storage = string(contacts.StorageAll)
	}
	st, err := contacts.ParseStorage(req.Storage)
	if err != nil {
		return nil, 0, err
	}
	scopes, err := m.scopes(ctx, u, st)
	if err != nil {
		return nil, 0, err
	}

	q := storage.ContactQuery{
		UserID:    u.ID,
		TenantID:  u.TenantID,
		Search:    req.Search,
		GroupUUID: req.GroupUUID,
		UUIDs:     req.UUIDs,
		SortField: storage.ParseSortField(string(req.SortField)),
		Ascending: req.Ascending,
		Offset:    req.Offset,
		Limit:     req.Limit,
	}
	withTeam := false
	for _, s := range scopes {
		if s.Kind == contacts.StorageTeam {
			withTeam = m.team != nil
			continue
		}
		q.Storages = append(q.Storages, s)
	}

	if !withTeam && q.SortField != storage.SortFrequency {
		if len(q.Storages) == 0 {
			return nil, 0, nil
		}
		list, err := m.store.ListContacts(ctx, q)
		if err != nil {
			return nil, 0, err
		}
		total, err := m.store.CountContacts(ctx, q)
		if err != nil {
			return nil, 0, err
		}
		return list, total, nil
	}

	all, err := m.collect(ctx, q, withTeam)
	if err != nil {
		return nil, 0, err
	}
	if q.SortField == storage.SortFrequency {
		sortByAgeScore(all, m.now(), q.Ascending)
	} else {
		storage.SortContacts(all, q.SortField, q.Ascending)
	}
	return storage.Page(all, q.Offset, q.Limit), len(all), nil
}

// collect fetches every match of q from the store and, when asked, from
// the team directory.
func (m *Manager) collect(ctx context.Context, q storage.ContactQuery, withTeam bool) ([]*contacts.Contact, error) {
	var own, team []*contacts.Contact
	g, gctx := errgroup.WithContext(ctx)
	if len(q.Storages) > 0 {
		g.Go(func() error {
			uq := q
			uq.Offset, uq.Limit = 0, 0
			var err error
			own, err = m.store.ListContacts(gctx, uq)
			return err
		})
	}
	if withTeam && q.GroupUUID == "" {
		g.Go(func() error {
			list, err := m.team.ListTeam(gctx)
			if err != nil {
				return fmt.Errorf("failed to list team: %w", err)
			}
			tq := q
			tq.Storages = []contacts.Storage{{Kind: contacts.StorageTeam}}
			for _, c := range list {
				if storage.Matches(c, tq) {
					team = append(team, c)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(own, team...), nil
}

func (m *Manager) CreateContact(ctx context.Context, u User, c *contacts.Contact) error {
	st, err := m.writableStorage(ctx, u, c.Storage)
	if err != nil {
		return err
	}
	c.UserID = u.ID
	c.TenantID = u.TenantID
	c.SetStorage(st)
	if err := m.stamp(c); err != nil {
		return err
	}
	if err := m.store.CreateContact(ctx, c); err != nil {
		return err
	}
	m.bumpCTag(ctx, u, st)
	m.notify(ctx, u, Event{Kind: EventContactCreated, Storage: st.String(), ContactUUIDs: []string{c.UUID}})
	return nil
}

// UpdateContact replaces the stored fields of c. Identity, owner and
// storage are kept from the stored record; use MoveContacts to change
// storage. A non-empty ifMatch must equal the stored ETag.
func (m *Manager) UpdateContact(ctx context.Context, u User, c *contacts.Contact, ifMatch string) error {
	cur, err := m.GetContact(ctx, u, c.UUID)
	if err != nil {
		return err
	}
	st := cur.StorageID()
	if !st.Writable() {
		return contacts.ErrReadOnly
	}
	c.ID = cur.ID
	c.UserID = cur.UserID
	c.TenantID = cur.TenantID
	c.SetStorage(st)
	if err := m.stamp(c); err != nil {
		return err
	}
	if err := m.store.UpdateContact(ctx, c, ifMatch); err != nil {
		return err
	}
	m.bump(ctx, contactScope(cur))
	m.notify(ctx, u, Event{Kind: EventContactUpdated, Storage: st.String(), ContactUUIDs: []string{c.UUID}})
	return nil
}

// readable loads the uuids u may see in the store. Unknown ones are
// skipped.
func (m *Manager) readable(ctx context.Context, u User, uuids []string) ([]*contacts.Contact, error) {
	out := make([]*contacts.Contact, 0, len(uuids))
	for _, id := range uuids {
		c, err := m.store.GetContact(ctx, id)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if canRead(u, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteContacts removes the given contacts and returns how many were
// deleted. Contacts of other users are ignored.
func (m *Manager) DeleteContacts(ctx context.Context, u User, uuids []string) (int, error) {
	list, err := m.readable(ctx, u, uuids)
	if err != nil || len(list) == 0 {
		return 0, err
	}
	ids := make([]string, 0, len(list))
	touched := map[scope]struct{}{}
	for _, c := range list {
		ids = append(ids, c.UUID)
		touched[contactScope(c)] = struct{}{}
	}
	n, err := m.store.DeleteContacts(ctx, ids)
	if err != nil {
		return 0, err
	}
	m.bumpAll(ctx, touched)
	m.notify(ctx, u, Event{Kind: EventContactsDeleted, ContactUUIDs: ids})
	return n, nil
}

// MoveContacts changes the storage of the given contacts, for example from
// personal to shared. A contact moved into user-owned storage becomes u's
// and loses its group memberships. The CTags of both sides are bumped for
// their real owners.
func (m *Manager) MoveContacts(ctx context.Context, u User, uuids []string, to string) (int, error) {
	target, err := m.writableStorage(ctx, u, to)
	if err != nil {
		return 0, err
	}
	list, err := m.readable(ctx, u, uuids)
	if err != nil {
		return 0, err
	}
	touched := map[scope]struct{}{}
	var moved []string
	defer func() {
		if len(moved) > 0 {
			m.bumpAll(ctx, touched)
			m.notify(ctx, u, Event{Kind: EventContactsMoved, Storage: target.String(), ContactUUIDs: moved})
		}
	}()
	for _, c := range list {
		from := contactScope(c)
		if from.storage == target {
			continue
		}
		if !from.storage.Writable() {
			return len(moved), contacts.ErrReadOnly
		}
		c.SetStorage(target)
		c.TenantID = u.TenantID
		c.GroupUUIDs = nil
		if !target.TenantScoped() && c.UserID != u.ID {
			c.UserID = u.ID
			c.GroupUUIDs = []string{}
		}
		if err := m.stamp(c); err != nil {
			return len(moved), err
		}
		if err := m.store.UpdateContact(ctx, c, ""); err != nil {
			return len(moved), err
		}
		touched[from] = struct{}{}
		touched[contactScope(c)] = struct{}{}
		moved = append(moved, c.UUID)
	}
	return len(moved), nil
}
