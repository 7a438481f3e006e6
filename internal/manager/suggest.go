package manager

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
)

var suggestScopes = []contacts.Storage{
	{Kind: contacts.StoragePersonal},
	{Kind: contacts.StorageCollected},
}

// Suggest returns the user's personal and collected contacts matching
// search, most used first. Contacts excluded from suggestions are skipped.
func (m *Manager) Suggest(ctx context.Context, u User, search string, limit int) ([]*contacts.Contact, error) {
	if limit <= 0 {
		limit = m.suggestLimit
	}
	list, err := m.store.ListContacts(ctx, storage.ContactQuery{
		UserID:                   u.ID,
		TenantID:                 u.TenantID,
		Storages:                 suggestScopes,
		Search:                   search,
		ExcludeFrequencyExcluded: true,
	})
	if err != nil {
		return nil, err
	}
	sortByAgeScore(list, m.now(), false)
	return storage.Page(list, 0, limit), nil
}

// parseAddresses splits raw recipient strings into unique addresses.
// Unparseable entries are skipped.
func (m *Manager) parseAddresses(raw []string) []*mail.Address {
	seen := map[string]bool{}
	var out []*mail.Address
	for _, r := range raw {
		list, err := mail.ParseAddressList(r)
		if err != nil {
			m.logger.Debug().Err(err).Str("address", r).Msg("Skipping unparseable address")
			continue
		}
		for _, a := range list {
			key := strings.ToLower(a.Address)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a)
		}
	}
	return out
}

// CollectEmails records that the user wrote to the given recipients. Known
// contacts get their frequency raised; unknown addresses become automatic
// contacts in collected storage. A failing address does not stop the
// others. It returns the number of addresses handled and the combined
// failures.
func (m *Manager) CollectEmails(ctx context.Context, u User, recipients []string) (int, error) {
	addrs := m.parseAddresses(recipients)
	if len(addrs) == 0 {
		return 0, nil
	}
	touched := map[scope]struct{}{}
	var changed []string
	var errs *multierror.Error
	handled := 0
	for _, a := range addrs {
		n, err := m.collectOne(ctx, u, a, func(c *contacts.Contact) {
			touched[contactScope(c)] = struct{}{}
			changed = append(changed, c.UUID)
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to collect %s: %w", a.Address, err))
			continue
		}
		handled += n
	}
	if len(changed) > 0 {
		m.bumpAll(ctx, touched)
		m.notify(ctx, u, Event{Kind: EventContactUpdated, ContactUUIDs: changed})
	}
	if err := errs.ErrorOrNil(); err != nil {
		m.logger.Warn().Err(err).Int64("user", u.ID).Int("handled", handled).Msg("Collecting recipients failed")
		return handled, err
	}
	return handled, nil
}

// collectOne records a single recipient and reports each saved contact
// through saved.
func (m *Manager) collectOne(ctx context.Context, u User, a *mail.Address, saved func(*contacts.Contact)) (int, error) {
	known, err := m.store.ListContacts(ctx, storage.ContactQuery{
		UserID:   u.ID,
		TenantID: u.TenantID,
		Storages: suggestScopes,
		Emails:   []string{a.Address},
	})
	if err != nil {
		return 0, err
	}
	if len(known) == 0 {
		c := contacts.NewContact(u.ID, u.TenantID)
		c.SetStorage(contacts.Storage{Kind: contacts.StorageCollected})
		c.FullName = a.Name
		c.PersonalEmail = a.Address
		c.Frequency = 1
		c.Auto = true
		if err := m.stamp(c); err != nil {
			return 0, err
		}
		if err := m.store.CreateContact(ctx, c); err != nil {
			return 0, err
		}
		saved(c)
		return 1, nil
	}
	for _, c := range known {
		if c.Frequency == contacts.FrequencyExcluded {
			continue
		}
		c.Frequency++
		c.GroupUUIDs = nil
		if err := m.stamp(c); err != nil {
			return 0, err
		}
		if err := m.store.UpdateContact(ctx, c, ""); err != nil {
			return 0, err
		}
		saved(c)
	}
	return 1, nil
}
