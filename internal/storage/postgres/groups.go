package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage/sqlstore"
)

var groupRow = pgx.RowToStructByName[sqlstore.GroupRow]

func (s *Store) GetGroup(ctx context.Context, uuid string) (*contacts.Group, error) {
	row, err := getOne(ctx, s.pool, s.b.SelectGroup(uuid), groupRow)
	if err != nil {
		return nil, err
	}
	out, err := s.toGroups(ctx, []sqlstore.GroupRow{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *Store) ListGroups(ctx context.Context, q storage.GroupQuery) ([]*contacts.Group, error) {
	rows, err := getAll(ctx, s.pool, s.b.SelectGroups(q), groupRow)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return s.toGroups(ctx, rows)
}

func (s *Store) toGroups(ctx context.Context, rows []sqlstore.GroupRow) ([]*contacts.Group, error) {
	out := make([]*contacts.Group, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	byID := make(map[int64]*contacts.Group, len(rows))
	for _, r := range rows {
		g := r.Group()
		g.ContactUUIDs = []string{}
		out = append(out, g)
		ids = append(ids, g.ID)
		byID[g.ID] = g
	}
	if len(ids) == 0 {
		return out, nil
	}

	members, err := getAll(ctx, s.pool, s.b.SelectGroupMembers(ids), pgx.RowToStructByName[sqlstore.GroupMemberRow])
	if err != nil {
		return nil, fmt.Errorf("failed to load group members: %w", err)
	}
	for _, m := range members {
		if g, ok := byID[m.GroupID]; ok {
			g.ContactUUIDs = append(g.ContactUUIDs, m.ContactUUID)
		}
	}
	return out, nil
}

func (s *Store) CreateGroup(ctx context.Context, g *contacts.Group) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		id, err := getOne(ctx, tx, s.b.InsertGroup(sqlstore.ToGroupRow(g)), pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		g.ID = id
		if len(g.ContactUUIDs) == 0 {
			return nil
		}
		return s.addMembers(ctx, tx, g.UUID, g.ContactUUIDs)
	})
}

func (s *Store) UpdateGroup(ctx context.Context, g *contacts.Group) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		n, err := exec(ctx, tx, s.b.UpdateGroup(sqlstore.ToGroupRow(g)))
		if err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}
		if n == 0 {
			return contacts.ErrNotFound
		}
		if g.ContactUUIDs == nil {
			return nil
		}
		if _, err := exec(ctx, tx, s.b.DeleteMembership(g.UUID, nil)); err != nil {
			return fmt.Errorf("failed to clear group members: %w", err)
		}
		if len(g.ContactUUIDs) == 0 {
			return nil
		}
		return s.addMembers(ctx, tx, g.UUID, g.ContactUUIDs)
	})
}

func (s *Store) addMembers(ctx context.Context, q dbtx, groupUUID string, contactUUIDs []string) error {
	ins := s.b.InsertMembership(sq.Eq{"g.uuid": groupUUID}, sq.Eq{"c.uuid": contactUUIDs})
	if _, err := exec(ctx, q, ins); err != nil {
		return fmt.Errorf("failed to add group members: %w", err)
	}
	return nil
}

func (s *Store) DeleteGroups(ctx context.Context, userID int64, uuids []string) (int, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	n, err := exec(ctx, s.pool, s.b.DeleteGroups(userID, uuids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete groups: %w", err)
	}
	return int(n), nil
}

func (s *Store) AddContactsToGroup(ctx context.Context, groupUUID string, contactUUIDs []string) error {
	if len(contactUUIDs) == 0 {
		return nil
	}
	return s.addMembers(ctx, s.pool, groupUUID, contactUUIDs)
}

func (s *Store) RemoveContactsFromGroup(ctx context.Context, groupUUID string, contactUUIDs []string) error {
	if len(contactUUIDs) == 0 {
		return nil
	}
	if _, err := exec(ctx, s.pool, s.b.DeleteMembership(groupUUID, contactUUIDs)); err != nil {
		return fmt.Errorf("failed to remove group members: %w", err)
	}
	return nil
}
