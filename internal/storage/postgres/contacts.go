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

var contactRow = pgx.RowToStructByName[sqlstore.ContactRow]

func (s *Store) GetContact(ctx context.Context, uuid string) (*contacts.Contact, error) {
	return s.getContact(ctx, s.b.SelectContact(sq.Eq{"uuid": uuid}))
}

func (s *Store) GetContactByID(ctx context.Context, id int64) (*contacts.Contact, error) {
	return s.getContact(ctx, s.b.SelectContact(sq.Eq{"id": id}))
}

func (s *Store) GetContactByEmail(ctx context.Context, userID int64, email string) (*contacts.Contact, error) {
	return s.getContact(ctx, s.b.SelectContactByEmail(userID, email))
}

func (s *Store) getContact(ctx context.Context, sel sq.SelectBuilder) (*contacts.Contact, error) {
	row, err := getOne(ctx, s.pool, sel, contactRow)
	if err != nil {
		return nil, err
	}
	out, err := s.toContacts(ctx, []sqlstore.ContactRow{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *Store) ListContacts(ctx context.Context, q storage.ContactQuery) ([]*contacts.Contact, error) {
	rows, err := getAll(ctx, s.pool, s.b.SelectContacts(q), contactRow)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return s.toContacts(ctx, rows)
}

func (s *Store) CountContacts(ctx context.Context, q storage.ContactQuery) (int, error) {
	n, err := getOne(ctx, s.pool, s.b.CountContacts(q), pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return int(n), nil
}

func (s *Store) toContacts(ctx context.Context, rows []sqlstore.ContactRow) ([]*contacts.Contact, error) {
	out := make([]*contacts.Contact, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	byID := make(map[int64]*contacts.Contact, len(rows))
	for _, r := range rows {
		c, err := r.Contact()
		if err != nil {
			return nil, err
		}
		c.GroupUUIDs = []string{}
		out = append(out, c)
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}
	if len(ids) == 0 {
		return out, nil
	}

	links, err := getAll(ctx, s.pool, s.b.SelectMemberships(ids), pgx.RowToStructByName[sqlstore.MembershipRow])
	if err != nil {
		return nil, fmt.Errorf("failed to load group memberships: %w", err)
	}
	for _, l := range links {
		if c, ok := byID[l.ContactID]; ok {
			c.GroupUUIDs = append(c.GroupUUIDs, l.GroupUUID)
		}
	}
	return out, nil
}

func (s *Store) CreateContact(ctx context.Context, c *contacts.Contact) error {
	row, err := sqlstore.ToContactRow(c)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		id, err := getOne(ctx, tx, s.b.InsertContact(row), pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("failed to insert contact: %w", err)
		}
		c.ID = id
		if len(c.GroupUUIDs) > 0 {
			return s.setMemberships(ctx, tx, c.ID, c.GroupUUIDs)
		}
		return nil
	})
}

func (s *Store) UpdateContact(ctx context.Context, c *contacts.Contact, ifMatch string) error {
	row, err := sqlstore.ToContactRow(c)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		n, err := exec(ctx, tx, s.b.UpdateContact(row, ifMatch))
		if err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}
		if n == 0 {
			etag, err := getOne(ctx, tx, s.b.SelectContactETag(c.UUID), pgx.RowTo[string])
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: contact %s has etag %s", contacts.ErrPreconditionFailed, c.UUID, etag)
		}

		id, err := getOne(ctx, tx, s.b.SelectContactID(c.UUID), pgx.RowTo[int64])
		if err != nil {
			return err
		}
		c.ID = id
		if c.GroupUUIDs != nil {
			return s.setMemberships(ctx, tx, c.ID, c.GroupUUIDs)
		}
		return nil
	})
}

func (s *Store) setMemberships(ctx context.Context, tx pgx.Tx, contactID int64, groupUUIDs []string) error {
	if _, err := exec(ctx, tx, s.b.DeleteContactMemberships(contactID)); err != nil {
		return fmt.Errorf("failed to clear group memberships: %w", err)
	}
	if len(groupUUIDs) == 0 {
		return nil
	}
	ins := s.b.InsertMembership(sq.Eq{"g.uuid": groupUUIDs}, sq.Eq{"c.id": contactID})
	if _, err := exec(ctx, tx, ins); err != nil {
		return fmt.Errorf("failed to set group memberships: %w", err)
	}
	return nil
}

func (s *Store) DeleteContacts(ctx context.Context, uuids []string) (int, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	n, err := exec(ctx, s.pool, s.b.DeleteContacts(uuids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete contacts: %w", err)
	}
	return int(n), nil
}
