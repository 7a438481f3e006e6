package storage

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

// Matches applies the storage scope and filters of q to c in memory, for
// backends without a query language. GroupUUID is not checked.
func Matches(c *contacts.Contact, q ContactQuery) bool {
	if !InScope(c, q) {
		return false
	}
	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		hit := false
		for _, v := range []string{c.FullName, c.FirstName, c.LastName, c.NickName, c.PersonalEmail, c.BusinessEmail, c.OtherEmail} {
			if strings.Contains(strings.ToLower(v), s) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if len(q.UUIDs) > 0 && !slices.Contains(q.UUIDs, c.UUID) {
		return false
	}
	if len(q.Emails) > 0 && !HasAnyEmail(c, q.Emails) {
		return false
	}
	if q.ExcludeFrequencyExcluded && c.Frequency == contacts.FrequencyExcluded {
		return false
	}
	if q.OnlyAuto && !c.Auto {
		return false
	}
	return true
}

// InScope reports whether c lies in one of the storages of q.
func InScope(c *contacts.Contact, q ContactQuery) bool {
	for _, st := range q.Storages {
		switch st.Kind {
		case contacts.StorageShared, contacts.StorageTeam:
			if c.Storage == st.String() && c.TenantID == q.TenantID {
				return true
			}
		case contacts.StoragePersonal, contacts.StorageCollected, contacts.StorageAddressBook:
			if c.Storage == st.String() && c.UserID == q.UserID {
				return true
			}
		}
	}
	return false
}

// HasAnyEmail reports whether one of c's email slots equals one of emails,
// ignoring case.
func HasAnyEmail(c *contacts.Contact, emails []string) bool {
	for _, e := range emails {
		e = strings.TrimSpace(e)
		for _, v := range []string{c.PersonalEmail, c.BusinessEmail, c.OtherEmail} {
			if v != "" && strings.EqualFold(v, e) {
				return true
			}
		}
	}
	return false
}

func sortKey(c *contacts.Contact, f SortField) string {
	switch f {
	case SortEmail:
		return c.ViewEmail
	case SortFirstName:
		return c.FirstName
	case SortLastName:
		return c.LastName
	}
	return c.FullName
}

// SortContacts orders list by f, breaking ties on UUID.
func SortContacts(list []*contacts.Contact, f SortField, asc bool) {
	slices.SortStableFunc(list, func(a, b *contacts.Contact) int {
		var n int
		if f == SortFrequency {
			n = cmp.Compare(a.Frequency, b.Frequency)
		} else {
			n = cmp.Compare(strings.ToLower(sortKey(a, f)), strings.ToLower(sortKey(b, f)))
		}
		if n == 0 {
			n = cmp.Compare(a.UUID, b.UUID)
		}
		if !asc {
			n = -n
		}
		return n
	})
}

// Page applies offset and limit to list. A limit of 0 means no limit.
func Page[T any](list []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(list) {
			return list[:0]
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
