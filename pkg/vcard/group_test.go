package vcard

import (
	"testing"

	govcard "github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

func TestParseGroup(t *testing.T) {
	card := govcard.Card{
		govcard.FieldVersion:      {{Value: "3.0"}},
		govcard.FieldUID:          {{Value: "urn:uuid:group-1"}},
		govcard.FieldName:         {{Value: "Board;Members;;;"}},
		govcard.FieldOrganization: {{Value: "Acme;Legal"}},
		FieldIsOrganization:       {{Value: "1"}},
		FieldGroupKind:            {{Value: "group"}},
		govcard.FieldAddress: {
			{Value: ";;Main St;Town;ST;12345;Land", Params: govcard.Params{govcard.ParamType: {"WORK"}}},
		},
		govcard.FieldTelephone: {
			{Value: "100", Params: govcard.Params{govcard.ParamType: {"WORK", "VOICE"}}},
			{Value: "200", Params: govcard.Params{govcard.ParamType: {"WORK", "FAX"}}},
		},
		govcard.FieldEmail:  {{Value: "board@acme.example", Params: govcard.Params{govcard.ParamType: {"WORK"}}}},
		govcard.FieldURL:    {{Value: "https://acme.example", Params: govcard.Params{govcard.ParamType: {"WORK"}}}},
		govcard.FieldMember: {{Value: "urn:uuid:c1"}},
		FieldGroupMember: {
			{Value: "urn:uuid:c2"},
			{Value: "c1"},
		},
	}

	g := ParseGroup(card, "")

	assert.True(t, IsGroupCard(card))
	assert.Equal(t, "group-1", g.UUID)
	assert.Equal(t, "Board Members", g.Name)
	assert.Equal(t, "Acme", g.Company)
	assert.True(t, g.IsOrganization)
	assert.Equal(t, "Main St", g.Street)
	assert.Equal(t, "Town", g.City)
	assert.Equal(t, "ST", g.State)
	assert.Equal(t, "12345", g.Zip)
	assert.Equal(t, "Land", g.Country)
	assert.Equal(t, "100", g.Phone)
	assert.Equal(t, "200", g.Fax)
	assert.Equal(t, "board@acme.example", g.Email)
	assert.Equal(t, "https://acme.example", g.Web)
	assert.Equal(t, []string{"c1", "c2"}, g.ContactUUIDs)

	assert.Equal(t, "explicit", ParseGroup(card, "explicit").UUID)
}

func TestMergeGroupRoundTrip(t *testing.T) {
	want := &contacts.Group{
		UUID:           "g-42",
		Name:           "Friends",
		IsOrganization: true,
		Company:        "Acme",
		Email:          "friends@acme.example",
		Street:         "Main St",
		City:           "Town",
		Zip:            "12345",
		Phone:          "100",
		Fax:            "200",
		Web:            "https://acme.example",
		ContactUUIDs:   []string{"c1", "c2"},
	}

	card := NewGroupCard(want)
	assert.Equal(t, "GROUP", card.Value(FieldGroupKind))
	assert.Equal(t, []string{"urn:uuid:c1", "urn:uuid:c2"}, card.Values(FieldGroupMember))

	raw, err := Encode(card)
	require.NoError(t, err)
	cards, err := ParseAll(raw, false)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	got := ParseGroup(cards[0], "")
	assert.Equal(t, want, got)
}

func TestMergeGroupRewritesMembers(t *testing.T) {
	g := &contacts.Group{UUID: "g", Name: "G", ContactUUIDs: []string{"a", "b"}}
	card := NewGroupCard(g)
	card.AddValue(govcard.FieldMember, "urn:uuid:stale")

	g.RemoveContacts("a")
	g.Phone = ""
	MergeGroup(card, g)
	MergeGroup(card, g)

	assert.Equal(t, []string{"urn:uuid:b"}, card.Values(FieldGroupMember))
	assert.NotContains(t, card, govcard.FieldMember)
	assert.NotContains(t, card, govcard.FieldTelephone)
	assert.Equal(t, "0", card.Value(FieldIsOrganization))
}
