package carddav

import (
	"context"
	"fmt"
	"slices"

	govcard "github.com/emersion/go-vcard"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
	"github.com/sonroyaalmerol/webmail-contacts/pkg/vcard"
)

type snapshot struct {
	contacts []*contacts.Contact
	groups   []*contacts.Group
	cards    map[string]govcard.Card
}

func (s *Store) snapshot(ctx context.Context) (*snapshot, error) {
	objs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	snap := &snapshot{cards: make(map[string]govcard.Card, len(objs))}
	for _, o := range objs {
		if vcard.IsGroupCard(o.card) {
			g := readGroup(o.card)
			snap.groups = append(snap.groups, g)
			snap.cards[g.UUID] = o.card
			continue
		}
		c, err := readContact(o.card)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", o.path).Msg("Skipping unreadable card")
			continue
		}
		snap.contacts = append(snap.contacts, c)
		snap.cards[c.UUID] = o.card
	}
	for _, c := range snap.contacts {
		c.GroupUUIDs = snap.groupsOf(c.UUID)
	}
	return snap, nil
}

func (snap *snapshot) groupsOf(contactUUID string) []string {
	out := []string{}
	for _, g := range snap.groups {
		if slices.Contains(g.ContactUUIDs, contactUUID) {
			out = append(out, g.UUID)
		}
	}
	return out
}

func (s *Store) GetContact(ctx context.Context, uuid string) (*contacts.Contact, error) {
	card, err := s.get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if vcard.IsGroupCard(card) {
		return nil, contacts.ErrNotFound
	}
	c, err := readContact(card)
	if err != nil {
		return nil, err
	}
	c.UUID = uuid

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	c.GroupUUIDs = snap.groupsOf(uuid)
	return c, nil
}

// GetContactByID always fails: remote cards carry no numeric id.
func (s *Store) GetContactByID(ctx context.Context, id int64) (*contacts.Contact, error) {
	return nil, contacts.ErrNotFound
}

func (s *Store) GetContactByEmail(ctx context.Context, userID int64, email string) (*contacts.Contact, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var found *contacts.Contact
	for _, c := range snap.contacts {
		if c.UserID != userID || !storage.HasAnyEmail(c, []string{email}) {
			continue
		}
		if c.Storage == string(contacts.StoragePersonal) {
			return c, nil
		}
		if found == nil {
			found = c
		}
	}
	if found == nil {
		return nil, contacts.ErrNotFound
	}
	return found, nil
}

func (s *Store) filter(ctx context.Context, q storage.ContactQuery) ([]*contacts.Contact, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*contacts.Contact, 0, len(snap.contacts))
	for _, c := range snap.contacts {
		if !storage.Matches(c, q) {
			continue
		}
		if q.GroupUUID != "" && !slices.Contains(c.GroupUUIDs, q.GroupUUID) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) ListContacts(ctx context.Context, q storage.ContactQuery) ([]*contacts.Contact, error) {
	list, err := s.filter(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	storage.SortContacts(list, q.SortField, q.Ascending)
	return storage.Page(list, q.Offset, q.Limit), nil
}

func (s *Store) CountContacts(ctx context.Context, q storage.ContactQuery) (int, error) {
	list, err := s.filter(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return len(list), nil
}

// groupNames resolves the CATEGORIES written onto a contact card.
func (s *Store) groupNames(ctx context.Context, uuids []string) ([]string, error) {
	var names []string
	for _, u := range uuids {
		card, err := s.get(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve group %s: %w", u, err)
		}
		names = append(names, readGroup(card).Name)
	}
	return names, nil
}

func (s *Store) CreateContact(ctx context.Context, c *contacts.Contact) error {
	if err := s.ensureAbsent(ctx, c.UUID); err != nil {
		return err
	}

	names, err := s.groupNames(ctx, c.GroupUUIDs)
	if err != nil {
		return err
	}
	card := vcard.NewContactCard(c, names)
	if err := writeBookkeeping(card, c); err != nil {
		return err
	}
	if err := s.put(ctx, c.UUID, card); err != nil {
		return err
	}
	for _, g := range c.GroupUUIDs {
		if err := s.editGroup(ctx, g, func(grp *contacts.Group) bool { return grp.AddContacts(c.UUID) > 0 }); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpdateContact(ctx context.Context, c *contacts.Contact, ifMatch string) error {
	card, err := s.get(ctx, c.UUID)
	if err != nil {
		return err
	}
	if current := card.Value(fieldETag); ifMatch != "" && current != ifMatch {
		return fmt.Errorf("%w: contact %s has etag %s", contacts.ErrPreconditionFailed, c.UUID, current)
	}

	categories := vcard.Categories(card)
	if c.GroupUUIDs != nil {
		if categories, err = s.groupNames(ctx, c.GroupUUIDs); err != nil {
			return err
		}
	}
	vcard.MergeContact(card, c, categories)
	if err := writeBookkeeping(card, c); err != nil {
		return err
	}
	if err := s.put(ctx, c.UUID, card); err != nil {
		return err
	}
	if c.GroupUUIDs == nil {
		return nil
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	for _, g := range snap.groups {
		want := slices.Contains(c.GroupUUIDs, g.UUID)
		has := slices.Contains(g.ContactUUIDs, c.UUID)
		if want == has {
			continue
		}
		if err := s.editGroup(ctx, g.UUID, func(grp *contacts.Group) bool {
			if want {
				return grp.AddContacts(c.UUID) > 0
			}
			return grp.RemoveContacts(c.UUID) > 0
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteContacts(ctx context.Context, uuids []string) (int, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	n := 0
	for _, u := range uuids {
		ok, err := s.remove(ctx, u)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return n, err
	}
	for _, g := range snap.groups {
		if !slices.ContainsFunc(g.ContactUUIDs, func(u string) bool { return slices.Contains(uuids, u) }) {
			continue
		}
		if err := s.editGroup(ctx, g.UUID, func(grp *contacts.Group) bool { return grp.RemoveContacts(uuids...) > 0 }); err != nil {
			return n, err
		}
	}
	return n, nil
}
