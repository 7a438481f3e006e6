package vcard

import (
	"strings"

	govcard "github.com/emersion/go-vcard"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

// IsGroupCard reports whether card describes a group rather than a person.
func IsGroupCard(card govcard.Card) bool {
	if strings.EqualFold(card.Value(FieldGroupKind), "group") {
		return true
	}
	return strings.EqualFold(card.Value(govcard.FieldKind), "group")
}

func classifyGroupWork(f *govcard.Field) string {
	if types, _ := typeSet(f); types[typeWork] {
		return slotWork
	}
	return slotNone
}

func classifyGroupTel(f *govcard.Field) string {
	types, _ := typeSet(f)
	switch {
	case types[typeWork] && types[typeFax]:
		return slotWorkFax
	case types[typeWork]:
		return slotWork
	}
	return slotNone
}

// ParseGroup maps a group card onto a new group. A non-empty id overrides
// the card UID.
func ParseGroup(card govcard.Card, id string) *contacts.Group {
	g := &contacts.Group{UUID: id}
	if g.UUID == "" {
		g.UUID = stripUUIDPrefix(card.Value(govcard.FieldUID))
	}

	g.Name = card.Value(govcard.FieldFormattedName)
	if g.Name == "" {
		g.Name = strings.Join(nonEmpty(splitStructured(card.Value(govcard.FieldName))), " ")
	}
	if org := card.Value(govcard.FieldOrganization); org != "" {
		g.Company = splitStructured(org)[0]
	}
	g.IsOrganization = strings.TrimSpace(card.Value(FieldIsOrganization)) == "1"

	for _, f := range card[govcard.FieldAddress] {
		if classifyGroupWork(f) != slotWork {
			continue
		}
		p := splitStructured(f.Value)
		g.Street, g.City, g.State, g.Zip, g.Country = part(p, 2), part(p, 3), part(p, 4), part(p, 5), part(p, 6)
	}
	for _, f := range card[govcard.FieldTelephone] {
		switch classifyGroupTel(f) {
		case slotWorkFax:
			g.Fax = f.Value
		case slotWork:
			g.Phone = f.Value
		}
	}
	for _, f := range card[govcard.FieldURL] {
		if classifyGroupWork(f) == slotWork {
			g.Web = f.Value
		}
	}
	for _, f := range card[govcard.FieldEmail] {
		if classifyGroupWork(f) == slotWork {
			g.Email = f.Value
		}
	}

	for _, key := range []string{govcard.FieldMember, FieldGroupMember} {
		for _, f := range card[key] {
			if m := stripUUIDPrefix(f.Value); m != "" {
				g.AddContacts(m)
			}
		}
	}
	return g
}

// MergeGroup writes g into card, rewriting the member list.
func MergeGroup(card govcard.Card, g *contacts.Group) {
	card.SetValue(govcard.FieldVersion, "3.0")
	card.SetValue(govcard.FieldUID, g.UUID)
	card.SetValue(govcard.FieldFormattedName, g.Name)
	card.SetValue(FieldGroupKind, "GROUP")
	card.SetValue(govcard.FieldOrganization, g.Company)
	if g.IsOrganization {
		card.SetValue(FieldIsOrganization, "1")
	} else {
		card.SetValue(FieldIsOrganization, "0")
	}

	var addr string
	if g.HasAddress() {
		addr = addressValue(g.Street, g.City, g.State, g.Zip, g.Country)
	}
	reconcile(card, govcard.FieldAddress, classifyGroupWork, []slot{
		{kind: slotWork, value: addr, types: []string{typeWork}},
	}, false)
	reconcile(card, govcard.FieldTelephone, classifyGroupTel, []slot{
		{kind: slotWork, value: g.Phone, types: []string{typeWork, typeVoice}},
		{kind: slotWorkFax, value: g.Fax, types: []string{typeWork, typeFax}},
	}, false)
	reconcile(card, govcard.FieldURL, classifyGroupWork, []slot{
		{kind: slotWork, value: g.Web, types: []string{typeWork}},
	}, false)
	reconcile(card, govcard.FieldEmail, classifyGroupWork, []slot{
		{kind: slotWork, value: g.Email, types: []string{typeWork}},
	}, false)

	delete(card, govcard.FieldMember)
	delete(card, FieldGroupMember)
	for _, m := range g.ContactUUIDs {
		card.AddValue(FieldGroupMember, uuidURNPrefix+m)
	}
}

// NewContactCard builds a fresh card for c.
func NewContactCard(c *contacts.Contact, categories []string) govcard.Card {
	card := make(govcard.Card)
	MergeContact(card, c, categories)
	return card
}

// NewGroupCard builds a fresh card for g.
func NewGroupCard(g *contacts.Group) govcard.Card {
	card := make(govcard.Card)
	MergeGroup(card, g)
	return card
}

// Categories returns the CATEGORIES values of card, split on commas.
func Categories(card govcard.Card) []string {
	var out []string
	for _, v := range card.Values(govcard.FieldCategories) {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
