package manager

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/transfer"
)

func (m *Manager) readImport(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, m.maxImport+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	if int64(len(data)) > m.maxImport {
		return nil, fmt.Errorf("%w: import exceeds %d bytes", contacts.ErrValidation, m.maxImport)
	}
	return data, nil
}

func (m *Manager) parseImport(format transfer.Format, data []byte) ([]transfer.Entry, error) {
	switch format {
	case transfer.FormatCSV:
		list, err := transfer.CSVReader{Logger: m.logger, Now: m.now}.Read(data)
		if err != nil {
			return nil, err
		}
		out := make([]transfer.Entry, len(list))
		for i, c := range list {
			out[i] = transfer.Entry{Contact: c}
		}
		return out, nil
	case transfer.FormatVCF:
		return transfer.ReadVCF(data, m.lenientVCF)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", contacts.ErrValidation, format)
}

// groupResolver maps category names onto the user's groups, creating the
// missing ones on first use.
type groupResolver struct {
	m       *Manager
	u       User
	byName  map[string]string
	created []string
}

func (m *Manager) newGroupResolver(ctx context.Context, u User) (*groupResolver, error) {
	names, err := m.groupNames(ctx, u)
	if err != nil {
		return nil, err
	}
	r := &groupResolver{m: m, u: u, byName: make(map[string]string, len(names))}
	for id, name := range names {
		r.byName[strings.ToLower(name)] = id
	}
	return r, nil
}

func (r *groupResolver) resolve(ctx context.Context, categories []string) ([]string, error) {
	var out []string
	for _, name := range categories {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		id, ok := r.byName[key]
		if !ok {
			g := &contacts.Group{UserID: r.u.ID, Name: name}
			g.EnsureUUID()
			if err := r.m.store.CreateGroup(ctx, g); err != nil {
				return nil, err
			}
			id = g.UUID
			r.byName[key] = id
			r.created = append(r.created, id)
		}
		out = append(out, id)
	}
	return out, nil
}

// Import reads contacts from r into the given storage. Contacts whose UUID
// is already taken get a new one. Failures of single contacts are logged
// and only reflected in the Imported count.
func (m *Manager) Import(ctx context.Context, u User, format transfer.Format, storageID string, r io.Reader) (transfer.Result, error) {
	var res transfer.Result
	st, err := m.writableStorage(ctx, u, storageID)
	if err != nil {
		return res, err
	}
	data, err := m.readImport(r)
	if err != nil {
		return res, err
	}
	entries, err := m.parseImport(format, data)
	if err != nil {
		return res, err
	}
	res.Parsed = len(entries)
	if len(entries) == 0 {
		return res, nil
	}
	groups, err := m.newGroupResolver(ctx, u)
	if err != nil {
		return res, err
	}

	var failed *multierror.Error
	var imported []string
	for _, e := range entries {
		c := e.Contact
		c.ID = 0
		c.UserID = u.ID
		c.TenantID = u.TenantID
		c.SetStorage(st)
		if c.UUID != "" {
			if _, err := m.store.GetContact(ctx, c.UUID); err == nil {
				c.UUID = ""
			}
		}
		if c.GroupUUIDs, err = groups.resolve(ctx, e.Categories); err != nil {
			failed = multierror.Append(failed, fmt.Errorf("%s: %w", c.DisplayName(), err))
			continue
		}
		if err := m.stamp(c); err != nil {
			failed = multierror.Append(failed, fmt.Errorf("%s: %w", c.DisplayName(), err))
			continue
		}
		if err := m.store.CreateContact(ctx, c); err != nil {
			failed = multierror.Append(failed, fmt.Errorf("%s: %w", c.DisplayName(), err))
			continue
		}
		imported = append(imported, c.UUID)
	}
	res.Imported = len(imported)

	if err := failed.ErrorOrNil(); err != nil {
		m.logger.Warn().Err(err).
			Int("failed", failed.Len()).
			Str("storage", st.String()).
			Msg("Some contacts could not be imported")
	}
	if len(groups.created) > 0 && st != personal {
		m.bumpCTag(ctx, u, personal)
	}
	if res.Imported > 0 || len(groups.created) > 0 {
		m.bumpCTag(ctx, u, st)
		m.notify(ctx, u, Event{
			Kind:         EventContactsImported,
			Storage:      st.String(),
			ContactUUIDs: imported,
			GroupUUIDs:   groups.created,
		})
	}
	return res, nil
}

// Export writes the contacts of storageID to w. A non-empty uuids narrows
// the selection. It returns the number of contacts written.
func (m *Manager) Export(ctx context.Context, u User, format transfer.Format, storageID string, uuids []string, w io.Writer) (int, error) {
	list, _, err := m.GetContacts(ctx, u, ListRequest{Storage: storageID, UUIDs: uuids, Ascending: true})
	if err != nil {
		return 0, err
	}
	switch format {
	case transfer.FormatCSV:
		return len(list), transfer.WriteCSV(w, list)
	case transfer.FormatVCF:
		names, err := m.groupNames(ctx, u)
		if err != nil {
			return 0, err
		}
		entries := make([]transfer.Entry, len(list))
		for i, c := range list {
			e := transfer.Entry{Contact: c}
			for _, id := range c.GroupUUIDs {
				if n, ok := names[id]; ok {
					e.Categories = append(e.Categories, n)
				}
			}
			entries[i] = e
		}
		return len(list), transfer.WriteVCF(w, entries)
	}
	return 0, fmt.Errorf("%w: unsupported format %q", contacts.ErrValidation, format)
}
