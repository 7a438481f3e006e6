package carddav

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	govcard "github.com/emersion/go-vcard"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
	"github.com/sonroyaalmerol/webmail-contacts/pkg/vcard"
)

func (s *Store) getGroupCard(ctx context.Context, uuid string) (govcard.Card, error) {
	card, err := s.get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if !vcard.IsGroupCard(card) {
		return nil, contacts.ErrNotFound
	}
	return card, nil
}

func (s *Store) GetGroup(ctx context.Context, uuid string) (*contacts.Group, error) {
	card, err := s.getGroupCard(ctx, uuid)
	if err != nil {
		return nil, err
	}
	g := readGroup(card)
	g.UUID = uuid
	return g, nil
}

func (s *Store) ListGroups(ctx context.Context, q storage.GroupQuery) ([]*contacts.Group, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	var out []*contacts.Group
	for _, g := range snap.groups {
		if g.UserID != q.UserID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(g.Name), search) {
			continue
		}
		if len(q.UUIDs) > 0 && !slices.Contains(q.UUIDs, g.UUID) {
			continue
		}
		out = append(out, g)
	}
	slices.SortStableFunc(out, func(a, b *contacts.Group) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.UUID, b.UUID))
	})
	return storage.Page(out, q.Offset, q.Limit), nil
}

func groupCard(card govcard.Card, g *contacts.Group) {
	vcard.MergeGroup(card, g)
	card.SetValue(fieldUser, strconv.FormatInt(g.UserID, 10))
}

func (s *Store) CreateGroup(ctx context.Context, g *contacts.Group) error {
	if err := s.ensureAbsent(ctx, g.UUID); err != nil {
		return err
	}
	card := make(govcard.Card)
	groupCard(card, g)
	return s.put(ctx, g.UUID, card)
}

// UpdateGroup rewrites the group card and keeps the CATEGORIES of member
// cards in line with the new name and membership.
func (s *Store) UpdateGroup(ctx context.Context, g *contacts.Group) error {
	card, err := s.getGroupCard(ctx, g.UUID)
	if err != nil {
		return err
	}
	prev := readGroup(card)
	next := *g
	if next.ContactUUIDs == nil {
		next.ContactUUIDs = prev.ContactUUIDs
	}
	next.UserID = prev.UserID
	groupCard(card, &next)
	if err := s.put(ctx, g.UUID, card); err != nil {
		return err
	}

	var dropped []string
	for _, u := range prev.ContactUUIDs {
		if !slices.Contains(next.ContactUUIDs, u) {
			dropped = append(dropped, u)
		}
	}
	if err := s.recategorize(ctx, dropped, prev.Name, ""); err != nil {
		return err
	}
	return s.recategorize(ctx, next.ContactUUIDs, prev.Name, next.Name)
}

// editGroup applies fn to the group and writes the card back when fn
// reports a change.
func (s *Store) editGroup(ctx context.Context, uuid string, fn func(g *contacts.Group) bool) error {
	card, err := s.getGroupCard(ctx, uuid)
	if err != nil {
		return err
	}
	g := readGroup(card)
	g.UUID = uuid
	if !fn(g) {
		return nil
	}
	groupCard(card, g)
	return s.put(ctx, uuid, card)
}

func (s *Store) DeleteGroups(ctx context.Context, userID int64, uuids []string) (int, error) {
	n := 0
	for _, u := range uuids {
		card, err := s.getGroupCard(ctx, u)
		if errors.Is(err, contacts.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		g := readGroup(card)
		if g.UserID != userID {
			continue
		}
		if err := s.recategorize(ctx, g.ContactUUIDs, g.Name, ""); err != nil {
			return n, err
		}
		ok, err := s.remove(ctx, u)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) AddContactsToGroup(ctx context.Context, groupUUID string, contactUUIDs []string) error {
	if len(contactUUIDs) == 0 {
		return nil
	}
	var added []string
	err := s.editGroup(ctx, groupUUID, func(g *contacts.Group) bool {
		for _, u := range contactUUIDs {
			if g.AddContacts(u) > 0 {
				added = append(added, u)
			}
		}
		return len(added) > 0
	})
	if err != nil {
		return err
	}
	return s.retag(ctx, groupUUID, added, true)
}

func (s *Store) RemoveContactsFromGroup(ctx context.Context, groupUUID string, contactUUIDs []string) error {
	if len(contactUUIDs) == 0 {
		return nil
	}
	if err := s.editGroup(ctx, groupUUID, func(g *contacts.Group) bool { return g.RemoveContacts(contactUUIDs...) > 0 }); err != nil {
		return err
	}
	return s.retag(ctx, groupUUID, contactUUIDs, false)
}

// retag adds or removes the group name in the CATEGORIES of member cards.
func (s *Store) retag(ctx context.Context, groupUUID string, contactUUIDs []string, add bool) error {
	if len(contactUUIDs) == 0 {
		return nil
	}
	g, err := s.GetGroup(ctx, groupUUID)
	if err != nil {
		return err
	}
	if add {
		return s.recategorize(ctx, contactUUIDs, "", g.Name)
	}
	return s.recategorize(ctx, contactUUIDs, g.Name, "")
}

// recategorize drops one category name from the given cards and adds
// another. Either name may be empty. Cards that end up unchanged are not
// written.
func (s *Store) recategorize(ctx context.Context, contactUUIDs []string, drop, add string) error {
	if drop == add {
		drop = ""
	}
	for _, u := range contactUUIDs {
		card, err := s.get(ctx, u)
		if errors.Is(err, contacts.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		before := vcard.Categories(card)
		cats := slices.DeleteFunc(slices.Clone(before), func(n string) bool { return drop != "" && n == drop })
		if add != "" && !slices.Contains(cats, add) {
			cats = append(cats, add)
		}
		if slices.Equal(before, cats) {
			continue
		}
		delete(card, govcard.FieldCategories)
		for _, name := range cats {
			card.AddValue(govcard.FieldCategories, name)
		}
		if err := s.put(ctx, u, card); err != nil {
			return err
		}
	}
	return nil
}
