package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
)

var personal = contacts.Storage{Kind: contacts.StoragePersonal}

func (m *Manager) GetGroup(ctx context.Context, u User, uuid string) (*contacts.Group, error) {
	g, err := m.store.GetGroup(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if g.UserID != u.ID {
		return nil, contacts.ErrNotFound
	}
	return g, nil
}

func (m *Manager) GetGroups(ctx context.Context, u User, search string, offset, limit int) ([]*contacts.Group, error) {
	return m.store.ListGroups(ctx, storage.GroupQuery{
		UserID: u.ID,
		Search: search,
		Offset: offset,
		Limit:  limit,
	})
}

func validGroup(g *contacts.Group) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return fmt.Errorf("%w: group name is required", contacts.ErrValidation)
	}
	return nil
}

// CreateGroup stores g for u. Listed members that u cannot read are
// dropped.
func (m *Manager) CreateGroup(ctx context.Context, u User, g *contacts.Group) error {
	if err := validGroup(g); err != nil {
		return err
	}
	g.UserID = u.ID
	g.EnsureUUID()
	touched := map[scope]struct{}{userScope(u, personal): {}}
	if g.ContactUUIDs != nil {
		members, err := m.readable(ctx, u, g.ContactUUIDs)
		if err != nil {
			return err
		}
		g.ContactUUIDs = g.ContactUUIDs[:0]
		for _, c := range members {
			g.ContactUUIDs = append(g.ContactUUIDs, c.UUID)
			touched[contactScope(c)] = struct{}{}
		}
	}
	if err := m.store.CreateGroup(ctx, g); err != nil {
		return err
	}
	m.bumpAll(ctx, touched)
	m.notify(ctx, u, Event{Kind: EventGroupCreated, GroupUUIDs: []string{g.UUID}, ContactUUIDs: g.ContactUUIDs})
	return nil
}

// UpdateGroup rewrites the group's details. Membership is replaced only
// when g.ContactUUIDs is non-nil.
func (m *Manager) UpdateGroup(ctx context.Context, u User, g *contacts.Group) error {
	if err := validGroup(g); err != nil {
		return err
	}
	cur, err := m.GetGroup(ctx, u, g.UUID)
	if err != nil {
		return err
	}
	g.ID = cur.ID
	g.UserID = cur.UserID
	if g.ContactUUIDs != nil {
		members, err := m.readable(ctx, u, g.ContactUUIDs)
		if err != nil {
			return err
		}
		g.ContactUUIDs = make([]string, 0, len(members))
		for _, c := range members {
			g.ContactUUIDs = append(g.ContactUUIDs, c.UUID)
		}
	}
	if err := m.store.UpdateGroup(ctx, g); err != nil {
		return err
	}
	m.bumpCTag(ctx, u, personal)
	m.notify(ctx, u, Event{Kind: EventGroupUpdated, GroupUUIDs: []string{g.UUID}})
	return nil
}

func (m *Manager) DeleteGroups(ctx context.Context, u User, uuids []string) (int, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	n, err := m.store.DeleteGroups(ctx, u.ID, uuids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.bumpCTag(ctx, u, personal)
		m.notify(ctx, u, Event{Kind: EventGroupsDeleted, GroupUUIDs: uuids})
	}
	return n, nil
}

func (m *Manager) AddContactsToGroup(ctx context.Context, u User, groupUUID string, contactUUIDs []string) error {
	return m.changeMembers(ctx, u, groupUUID, contactUUIDs, m.store.AddContactsToGroup)
}

func (m *Manager) RemoveContactsFromGroup(ctx context.Context, u User, groupUUID string, contactUUIDs []string) error {
	return m.changeMembers(ctx, u, groupUUID, contactUUIDs, m.store.RemoveContactsFromGroup)
}

func (m *Manager) changeMembers(ctx context.Context, u User, groupUUID string, contactUUIDs []string,
	apply func(context.Context, string, []string) error) error {
	if _, err := m.GetGroup(ctx, u, groupUUID); err != nil {
		return err
	}
	members, err := m.readable(ctx, u, contactUUIDs)
	if err != nil || len(members) == 0 {
		return err
	}
	ids := make([]string, 0, len(members))
	touched := map[scope]struct{}{userScope(u, personal): {}}
	for _, c := range members {
		ids = append(ids, c.UUID)
		touched[contactScope(c)] = struct{}{}
	}
	if err := apply(ctx, groupUUID, ids); err != nil {
		return err
	}
	m.bumpAll(ctx, touched)
	m.notify(ctx, u, Event{Kind: EventGroupMembersChanged, GroupUUIDs: []string{groupUUID}, ContactUUIDs: ids})
	return nil
}

// groupNames maps the user's group UUIDs to names.
func (m *Manager) groupNames(ctx context.Context, u User) (map[string]string, error) {
	groups, err := m.store.ListGroups(ctx, storage.GroupQuery{UserID: u.ID})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(groups))
	for _, g := range groups {
		out[g.UUID] = g.Name
	}
	return out, nil
}
