package contacts

import (
	"slices"

	"github.com/google/uuid"
)

// Group is a named collection of contacts. An organization group also
// carries its own contact details.
type Group struct {
	ID             int64  `json:"Id"`
	UUID           string `json:"UUID"`
	UserID         int64  `json:"IdUser"`
	Name           string `json:"Name"`
	IsOrganization bool   `json:"IsOrganization"`

	Email   string `json:"Email"`
	Company string `json:"Company"`
	Street  string `json:"Street"`
	City    string `json:"City"`
	State   string `json:"State"`
	Zip     string `json:"Zip"`
	Country string `json:"Country"`
	Phone   string `json:"Phone"`
	Fax     string `json:"Fax"`
	Web     string `json:"Web"`

	ContactUUIDs []string `json:"Contacts,omitempty"`
}

// EnsureUUID assigns a UUID if the group has none.
func (g *Group) EnsureUUID() {
	if g.UUID == "" {
		g.UUID = uuid.NewString()
	}
}

// HasAddress reports whether any address field is set.
func (g *Group) HasAddress() bool {
	return g.Street != "" || g.City != "" || g.State != "" || g.Zip != "" || g.Country != ""
}

// AddContacts adds uuids not already present and returns how many were added.
func (g *Group) AddContacts(uuids ...string) int {
	n := 0
	for _, u := range uuids {
		if u == "" || slices.Contains(g.ContactUUIDs, u) {
			continue
		}
		g.ContactUUIDs = append(g.ContactUUIDs, u)
		n++
	}
	return n
}

// RemoveContacts drops uuids from the membership and returns how many were
// removed.
func (g *Group) RemoveContacts(uuids ...string) int {
	before := len(g.ContactUUIDs)
	g.ContactUUIDs = slices.DeleteFunc(g.ContactUUIDs, func(u string) bool {
		return slices.Contains(uuids, u)
	})
	return before - len(g.ContactUUIDs)
}
