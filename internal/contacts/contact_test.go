package contacts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshViewEmailFollowsPrimary(t *testing.T) {
	c := &Contact{
		PersonalEmail: "home@example.com",
		BusinessEmail: "work@example.com",
		OtherEmail:    "other@example.com",
	}

	cases := []struct {
		primary PrimaryEmail
		want    string
	}{
		{PrimaryEmailPersonal, "home@example.com"},
		{PrimaryEmailBusiness, "work@example.com"},
		{PrimaryEmailOther, "other@example.com"},
	}
	for _, tc := range cases {
		c.PrimaryEmail = tc.primary
		require.NoError(t, c.Populate())
		assert.Equal(t, tc.want, c.ViewEmail)
	}
}

func TestParseStorage(t *testing.T) {
	cases := []struct {
		in   string
		want Storage
	}{
		{"personal", Storage{Kind: StoragePersonal}},
		{"collected", Storage{Kind: StorageCollected}},
		{"team", Storage{Kind: StorageTeam}},
		{"shared", Storage{Kind: StorageShared}},
		{"all", Storage{Kind: StorageAll}},
		{"addressbook12", Storage{Kind: StorageAddressBook, AddressBookID: 12}},
		{"addressbook:7", Storage{Kind: StorageAddressBook, AddressBookID: 7}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseStorage(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "addressbook", "addressbookx", "addressbook0", "private"} {
		_, err := ParseStorage(bad)
		assert.True(t, errors.Is(err, ErrInvalidStorage), bad)
	}

	assert.Equal(t, "addressbook7", AddressBookStorage(7).String())
}

func TestPopulateNormalisesStorage(t *testing.T) {
	c := &Contact{Storage: "addressbook:3"}
	require.NoError(t, c.Populate())
	assert.Equal(t, "addressbook3", c.Storage)
	assert.Equal(t, int64(3), c.AddressBookID)

	c = &Contact{Storage: "nowhere"}
	assert.ErrorIs(t, c.Populate(), ErrInvalidStorage)
}

func TestEnsureUUIDKeepsExisting(t *testing.T) {
	c := &Contact{}
	c.EnsureUUID()
	first := c.UUID
	require.NotEmpty(t, first)
	c.EnsureUUID()
	assert.Equal(t, first, c.UUID)
}

func TestComputeETag(t *testing.T) {
	c := &Contact{UUID: "u1", FullName: "Ada Lovelace", PersonalEmail: "ada@example.com"}
	a := ComputeETag(c)
	assert.Equal(t, a, ComputeETag(c.Clone()))

	c.ID = 42
	c.GroupUUIDs = []string{"g"}
	assert.Equal(t, a, ComputeETag(c), "identity and membership do not change the fingerprint")

	c.Notes = "first programmer"
	assert.NotEqual(t, a, ComputeETag(c))
}

func TestFieldAccessors(t *testing.T) {
	c := &Contact{}
	require.NoError(t, c.SetField("firstname", " Ada "))
	require.NoError(t, c.SetField("BirthYear", "1815"))
	require.NoError(t, c.SetField("PrimaryEmail", "1"))
	require.NoError(t, c.SetField("UseFriendlyName", "true"))

	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, 1815, c.BirthYear)
	assert.Equal(t, PrimaryEmailBusiness, c.PrimaryEmail)
	assert.True(t, c.UseFriendlyName)

	v, ok := c.FieldValue("BirthYear")
	assert.True(t, ok)
	assert.Equal(t, "1815", v)

	assert.ErrorIs(t, c.SetField("ETag", "x"), ErrValidation)
	assert.ErrorIs(t, c.SetField("BirthYear", "soon"), ErrValidation)

	name, ok := CanonicalFieldName(" personalemail ")
	assert.True(t, ok)
	assert.Equal(t, "PersonalEmail", name)
	assert.Contains(t, FieldNames(), "BusinessCompany")
	assert.NotContains(t, FieldNames(), "ViewEmail")
}

func TestPropertiesRoundTrip(t *testing.T) {
	var c Contact
	require.NoError(t, c.Properties.Set("Calendar::Color", "#ff0000"))

	var color string
	ok, err := c.Properties.Get("Calendar::Color", &color)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "#ff0000", color)

	ok, err = c.Properties.Get("missing", &color)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGroupMembership(t *testing.T) {
	g := &Group{}
	assert.Equal(t, 2, g.AddContacts("a", "b", "a", ""))
	assert.Equal(t, 0, g.AddContacts("b"))
	assert.Equal(t, 1, g.RemoveContacts("a", "z"))
	assert.Equal(t, []string{"b"}, g.ContactUUIDs)
}
