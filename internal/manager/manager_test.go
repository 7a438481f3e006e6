package manager

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage/sqlite"
	"github.com/sonroyaalmerol/webmail-contacts/internal/transfer"
)

var (
	testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	alice   = User{ID: 1, TenantID: 10}
	bob     = User{ID: 2, TenantID: 10}
)

type fakeTeam struct {
	list  []*contacts.Contact
	err   error
	calls int
}

func (f *fakeTeam) ListTeam(context.Context) ([]*contacts.Contact, error) {
	f.calls++
	return f.list, f.err
}

func (f *fakeTeam) GetTeamContact(_ context.Context, id string) (*contacts.Contact, error) {
	for _, c := range f.list {
		if c.UUID == id {
			return c, nil
		}
	}
	return nil, contacts.ErrNotFound
}

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) ContactsChanged(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func teamMember(uuid, name, email string) *contacts.Contact {
	return &contacts.Contact{
		UUID:          uuid,
		TenantID:      10,
		Storage:       string(contacts.StorageTeam),
		FullName:      name,
		ViewEmail:     email,
		BusinessEmail: email,
		PrimaryEmail:  contacts.PrimaryEmailBusiness,
	}
}

type fixture struct {
	m     *Manager
	store *sqlite.Store
	team  *fakeTeam
	obs   *recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "contacts.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	f := &fixture{
		store: s,
		team: &fakeTeam{list: []*contacts.Contact{
			teamMember("t1", "Zed Team", "zed@corp.example"),
			teamMember("t2", "Amy Team", "amy@corp.example"),
		}},
		obs: &recorder{},
	}
	opts = append([]Option{
		WithTeamDirectory(f.team),
		WithObserver(f.obs),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	f.m = New(s, zerolog.Nop(), opts...)
	return f
}

func (f *fixture) create(t *testing.T, u User, storageID, name, email string) *contacts.Contact {
	t.Helper()
	c := &contacts.Contact{Storage: storageID, FullName: name, PersonalEmail: email}
	require.NoError(t, f.m.CreateContact(context.Background(), u, c))
	return c
}

// seed writes c directly, bypassing the manager's stamping.
func (f *fixture) seed(t *testing.T, u User, name, email string, freq int, modified time.Time) *contacts.Contact {
	t.Helper()
	c := contacts.NewContact(u.ID, u.TenantID)
	c.FullName = name
	c.PersonalEmail = email
	c.Frequency = freq
	require.NoError(t, c.Populate())
	c.DateModified = modified
	c.ETag = contacts.ComputeETag(c)
	require.NoError(t, f.store.CreateContact(context.Background(), c))
	return c
}

func (f *fixture) ctag(t *testing.T, u User, st string) int {
	t.Helper()
	v, err := f.m.GetCTag(context.Background(), u, st)
	require.NoError(t, err)
	return v
}

func TestCreateContactStampsAndBumpsCTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.create(t, alice, "", "Ada Lovelace", "ada@example.com")

	assert.NotEmpty(t, c.UUID)
	assert.Equal(t, "personal", c.Storage)
	assert.Equal(t, "ada@example.com", c.ViewEmail)
	assert.Equal(t, testNow, c.DateModified)
	assert.Equal(t, contacts.ComputeETag(c), c.ETag)

	assert.Equal(t, 1, f.ctag(t, alice, "personal"))
	assert.Equal(t, 0, f.ctag(t, alice, "collected"))
	assert.Equal(t, 0, f.ctag(t, alice, "shared"))
	assert.Equal(t, 0, f.ctag(t, bob, "personal"))

	got, err := f.m.GetContact(ctx, alice, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, c.ETag, got.ETag)

	require.Len(t, f.obs.events, 1)
	e := f.obs.events[0]
	assert.Equal(t, EventContactCreated, e.Kind)
	assert.Equal(t, alice.ID, e.UserID)
	assert.Equal(t, "personal", e.Storage)
	assert.Equal(t, []string{c.UUID}, e.ContactUUIDs)
}

func TestCreateContactRejectsUnwritableStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		storage string
		wantErr error
	}{
		{"team", contacts.ErrReadOnly},
		{"all", contacts.ErrReadOnly},
		{"addressbook99", contacts.ErrNotFound},
		{"inbox", contacts.ErrInvalidStorage},
	}
	for _, tt := range tests {
		t.Run(tt.storage, func(t *testing.T) {
			err := f.m.CreateContact(ctx, alice, &contacts.Contact{Storage: tt.storage, FullName: "x"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.obs.events)
}

func TestUpdateContactChecksETag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, alice, "personal", "Ada", "ada@example.com")
	oldETag := c.ETag

	stale := c.Clone()
	stale.FullName = "Ada King"
	require.NoError(t, f.m.UpdateContact(ctx, alice, stale, oldETag))
	assert.NotEqual(t, oldETag, stale.ETag)
	assert.Equal(t, 2, f.ctag(t, alice, "personal"))

	again := c.Clone()
	again.FullName = "Ada Byron"
	err := f.m.UpdateContact(ctx, alice, again, oldETag)
	assert.ErrorIs(t, err, contacts.ErrPreconditionFailed)
	assert.Equal(t, 2, f.ctag(t, alice, "personal"))

	got, err := f.m.GetContact(ctx, alice, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Ada King", got.FullName)

	err = f.m.UpdateContact(ctx, bob, got.Clone(), "")
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestUpdateContactKeepsStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, alice, "collected", "Ada", "ada@example.com")

	upd := c.Clone()
	upd.Storage = "shared"
	require.NoError(t, f.m.UpdateContact(ctx, alice, upd, ""))

	got, err := f.m.GetContact(ctx, alice, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, "collected", got.Storage)
}

func TestGetContactAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := f.create(t, alice, "personal", "Ada", "ada@example.com")
	shared := f.create(t, alice, "shared", "Office", "office@example.com")

	_, err := f.m.GetContact(ctx, bob, own.UUID)
	assert.ErrorIs(t, err, contacts.ErrNotFound)

	got, err := f.m.GetContact(ctx, bob, shared.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Office", got.FullName)

	got, err = f.m.GetContact(ctx, bob, "t1")
	require.NoError(t, err)
	assert.Equal(t, "team", got.Storage)

	_, err = f.m.GetContact(ctx, User{ID: 3, TenantID: 99}, "t1")
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestGetContactByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, alice, "collected", "Auto Ada", "ada@example.com")
	p := f.create(t, alice, "personal", "Ada", "ada@example.com")

	got, err := f.m.GetContactByEmail(ctx, alice, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.UUID, got.UUID)

	_, err = f.m.GetContactByEmail(ctx, alice, " ")
	assert.ErrorIs(t, err, contacts.ErrValidation)
}

func TestGetContactsAllIncludesTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, alice, "personal", "Bea", "bea@example.com")
	f.create(t, alice, "shared", "Cid", "cid@example.com")
	f.create(t, bob, "personal", "Not Mine", "nm@example.com")

	list, total, err := f.m.GetContacts(ctx, alice, ListRequest{Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.FullName
	}
	assert.Equal(t, []string{"Amy Team", "Bea", "Cid", "Zed Team"}, names)

	page, total, err := f.m.GetContacts(ctx, alice, ListRequest{Ascending: true, Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Bea", page[0].FullName)

	list, total, err = f.m.GetContacts(ctx, alice, ListRequest{Search: "corp.example"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)
}

func TestGetContactsSingleStorageUsesStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, alice, "personal", "Bea", "bea@example.com")
	f.create(t, alice, "collected", "Cid", "cid@example.com")

	list, total, err := f.m.GetContacts(ctx, alice, ListRequest{Storage: "collected"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Cid", list[0].FullName)
	assert.Zero(t, f.team.calls)

	_, _, err = f.m.GetContacts(ctx, alice, ListRequest{Storage: "addressbook5"})
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestGetContactsTeamFailure(t *testing.T) {
	f := newFixture(t)
	f.team.err = errors.New("ldap down")

	_, _, err := f.m.GetContacts(context.Background(), alice, ListRequest{Storage: "team"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ldap down")
}

func TestGetContactsSortsByAgeScore(t *testing.T) {
	f := newFixture(t)
	// 10 uses over 5 days scores 2, 3 uses today scores 3, 30 uses over
	// 20 days scores 1.5.
	mid := f.seed(t, alice, "Mid", "mid@example.com", 10, testNow.Add(-5*24*time.Hour))
	top := f.seed(t, alice, "Top", "top@example.com", 3, testNow.Add(-time.Hour))
	low := f.seed(t, alice, "Low", "low@example.com", 30, testNow.Add(-20*24*time.Hour))

	list, total, err := f.m.GetContacts(context.Background(), alice, ListRequest{
		Storage:   "personal",
		SortField: storage.SortFrequency,
		Limit:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, top.UUID, list[0].UUID)
	assert.Equal(t, mid.UUID, list[1].UUID)

	assert.InDelta(t, 1.5, AgeScore(low, testNow), 0.001)
}

func TestDeleteContactsBumpsEachStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, alice, "personal", "A", "a@example.com")
	b := f.create(t, alice, "shared", "B", "b@example.com")
	other := f.create(t, bob, "personal", "O", "o@example.com")

	n, err := f.m.DeleteContacts(ctx, alice, []string{a.UUID, b.UUID, other.UUID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 2, f.ctag(t, alice, "personal"))
	assert.Equal(t, 2, f.ctag(t, alice, "shared"))
	assert.Equal(t, 1, f.ctag(t, bob, "personal"))

	_, err = f.m.GetContact(ctx, bob, other.UUID)
	assert.NoError(t, err)

	n, err = f.m.DeleteContacts(ctx, alice, []string{"missing"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMoveContactsBumpsBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, alice, "personal", "A", "a@example.com")

	n, err := f.m.MoveContacts(ctx, alice, []string{a.UUID}, "shared")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 2, f.ctag(t, alice, "personal"))
	assert.Equal(t, 1, f.ctag(t, alice, "shared"))
	// shared is counted per tenant
	assert.Equal(t, 1, f.ctag(t, bob, "shared"))

	got, err := f.m.GetContact(ctx, bob, a.UUID)
	require.NoError(t, err)
	assert.Equal(t, "shared", got.Storage)

	_, err = f.m.MoveContacts(ctx, alice, []string{a.UUID}, "team")
	assert.ErrorIs(t, err, contacts.ErrReadOnly)
	assert.Equal(t, EventContactsMoved, f.obs.events[len(f.obs.events)-1].Kind)
}

func TestMoveSharedContactOfAnotherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, alice, "shared", "S", "s@example.com")
	g := &contacts.Group{Name: "Friends", ContactUUIDs: []string{c.UUID}}
	require.NoError(t, f.m.CreateGroup(ctx, alice, g))
	before := f.ctag(t, alice, "personal")

	n, err := f.m.MoveContacts(ctx, bob, []string{c.UUID}, "personal")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.m.GetContact(ctx, bob, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, "personal", got.Storage)
	assert.Equal(t, bob.ID, got.UserID)
	assert.Empty(t, got.GroupUUIDs)

	_, err = f.m.GetContact(ctx, alice, c.UUID)
	assert.ErrorIs(t, err, contacts.ErrNotFound)

	assert.Equal(t, 1, f.ctag(t, bob, "personal"))
	assert.Equal(t, 3, f.ctag(t, bob, "shared"))
	assert.Equal(t, before, f.ctag(t, alice, "personal"))
}

func TestGroupMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, alice, "personal", "A", "a@example.com")
	b := f.create(t, alice, "collected", "B", "b@example.com")
	theirs := f.create(t, bob, "personal", "O", "o@example.com")

	g := &contacts.Group{Name: "  Friends "}
	require.NoError(t, f.m.CreateGroup(ctx, alice, g))
	assert.Equal(t, "Friends", g.Name)
	assert.NotEmpty(t, g.UUID)

	require.NoError(t, f.m.AddContactsToGroup(ctx, alice, g.UUID, []string{a.UUID, b.UUID, theirs.UUID}))
	assert.Equal(t, 2, f.ctag(t, alice, "collected"))

	got, err := f.m.GetGroup(ctx, alice, g.UUID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.UUID, b.UUID}, got.ContactUUIDs)

	list, total, err := f.m.GetContacts(ctx, alice, ListRequest{GroupUUID: g.UUID, Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].FullName)

	require.NoError(t, f.m.RemoveContactsFromGroup(ctx, alice, g.UUID, []string{a.UUID}))
	got, err = f.m.GetGroup(ctx, alice, g.UUID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.UUID}, got.ContactUUIDs)

	_, err = f.m.GetGroup(ctx, bob, g.UUID)
	assert.ErrorIs(t, err, contacts.ErrNotFound)
	assert.ErrorIs(t, f.m.AddContactsToGroup(ctx, bob, g.UUID, []string{theirs.UUID}), contacts.ErrNotFound)

	groups, err := f.m.GetGroups(ctx, alice, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	n, err := f.m.DeleteGroups(ctx, alice, []string{g.UUID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []EventKind{
		EventContactCreated, EventContactCreated, EventContactCreated,
		EventGroupCreated, EventGroupMembersChanged, EventGroupMembersChanged, EventGroupsDeleted,
	}, f.obs.kinds())
}

func TestGroupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.m.CreateGroup(ctx, alice, &contacts.Group{Name: " "}), contacts.ErrValidation)

	g := &contacts.Group{Name: "Work"}
	require.NoError(t, f.m.CreateGroup(ctx, alice, g))
	g.Name = "Office"
	require.NoError(t, f.m.UpdateGroup(ctx, alice, g))

	got, err := f.m.GetGroup(ctx, alice, g.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Office", got.Name)

	assert.ErrorIs(t, f.m.UpdateGroup(ctx, bob, &contacts.Group{UUID: g.UUID, Name: "x"}), contacts.ErrNotFound)
}

func TestSuggestRanksAndExcludes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, alice, "Old Friend", "old@example.com", 40, testNow.Add(-40*24*time.Hour))
	f.seed(t, alice, "Fresh Friend", "fresh@example.com", 5, testNow.Add(-time.Hour))
	f.seed(t, alice, "Hidden Friend", "hidden@example.com", contacts.FrequencyExcluded, testNow)
	f.create(t, alice, "shared", "Shared Friend", "shared@example.com")

	list, err := f.m.Suggest(ctx, alice, "friend", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Fresh Friend", list[0].FullName)
	assert.Equal(t, "Old Friend", list[1].FullName)

	list, err = f.m.Suggest(ctx, alice, "friend", 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCollectEmails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	known := f.seed(t, alice, "Known", "known@example.com", 2, testNow.Add(-48*time.Hour))
	hidden := f.seed(t, alice, "Hidden", "hidden@example.com", contacts.FrequencyExcluded, testNow)

	n, err := f.m.CollectEmails(ctx, alice, []string{
		"Known <KNOWN@example.com>, New Person <new@example.com>",
		"new@example.com",
		"hidden@example.com",
		"not an address",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := f.m.GetContact(ctx, alice, known.UUID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Frequency)
	assert.Equal(t, testNow, got.DateModified)

	got, err = f.m.GetContact(ctx, alice, hidden.UUID)
	require.NoError(t, err)
	assert.Equal(t, contacts.FrequencyExcluded, got.Frequency)

	list, _, err := f.m.GetContacts(ctx, alice, ListRequest{Storage: "collected"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "New Person", list[0].FullName)
	assert.Equal(t, "new@example.com", list[0].ViewEmail)
	assert.True(t, list[0].Auto)
	assert.Equal(t, 1, list[0].Frequency)

	assert.Equal(t, 1, f.ctag(t, alice, "collected"))
	assert.Equal(t, 1, f.ctag(t, alice, "personal"))
}

type failingCreates struct {
	*sqlite.Store
	failAt int
	seen   int
}

func (s *failingCreates) CreateContact(ctx context.Context, c *contacts.Contact) error {
	s.seen++
	if s.seen == s.failAt {
		return errors.New("disk full")
	}
	return s.Store.CreateContact(ctx, c)
}

func TestCollectEmailsKeepsGoingAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := New(&failingCreates{Store: f.store, failAt: 2}, zerolog.Nop(),
		WithObserver(f.obs), WithClock(func() time.Time { return testNow }))

	n, err := m.CollectEmails(ctx, alice, []string{"one@example.com, two@example.com, three@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "two@example.com")
	assert.Equal(t, 2, n)

	v, err := m.GetCTag(ctx, alice, "collected")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	list, _, err := m.GetContacts(ctx, alice, ListRequest{Storage: "collected"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	require.NotEmpty(t, f.obs.events)
	assert.Len(t, f.obs.events[len(f.obs.events)-1].ContactUUIDs, 2)
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := "FirstName,LastName,PersonalEmail\nJohn,Doe,john@example.com\nJane,Roe,jane@example.com\n"

	res, err := f.m.Import(ctx, alice, transfer.FormatCSV, "personal", strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, transfer.Result{Parsed: 2, Imported: 2}, res)
	assert.Equal(t, 1, f.ctag(t, alice, "personal"))

	list, _, err := f.m.GetContacts(ctx, alice, ListRequest{Storage: "personal", Ascending: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Jane Roe", list[0].FullName)
	assert.Equal(t, "jane@example.com", list[0].ViewEmail)

	require.Len(t, f.obs.events, 1)
	assert.Equal(t, EventContactsImported, f.obs.events[0].Kind)
	assert.Len(t, f.obs.events[0].ContactUUIDs, 2)
}

func TestImportVCFCreatesGroupsAndReassignsTakenUUIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.create(t, alice, "personal", "Someone", "someone@example.com")

	data := "BEGIN:VCARD\r\nVERSION:3.0\r\nUID:" + existing.UUID + "\r\nFN:Ada Lovelace\r\n" +
		"EMAIL;TYPE=HOME:ada@example.com\r\nCATEGORIES:Friends\r\nEND:VCARD\r\n" +
		"BEGIN:VCARD\r\nVERSION:3.0\r\nUID:fresh-uid\r\nFN:Grace Hopper\r\nEND:VCARD\r\n"

	res, err := f.m.Import(ctx, alice, transfer.FormatVCF, "personal", strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, transfer.Result{Parsed: 2, Imported: 2}, res)

	groups, err := f.m.GetGroups(ctx, alice, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Friends", groups[0].Name)
	require.Len(t, groups[0].ContactUUIDs, 1)
	assert.NotEqual(t, existing.UUID, groups[0].ContactUUIDs[0])

	_, err = f.m.GetContact(ctx, alice, "fresh-uid")
	assert.NoError(t, err)
	assert.Equal(t, 2, f.ctag(t, alice, "personal"))
}

func TestImportLimits(t *testing.T) {
	f := newFixture(t, WithImportLimits(16, true))
	ctx := context.Background()

	_, err := f.m.Import(ctx, alice, transfer.FormatCSV, "personal",
		strings.NewReader("FirstName\nSomeone with a long name\n"))
	assert.ErrorIs(t, err, contacts.ErrValidation)

	_, err = f.m.Import(ctx, alice, transfer.FormatCSV, "team", strings.NewReader(""))
	assert.ErrorIs(t, err, contacts.ErrReadOnly)
	assert.Equal(t, 0, f.ctag(t, alice, "personal"))
}

func TestExportVCFIncludesCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, alice, "personal", "Ada", "ada@example.com")
	f.create(t, alice, "personal", "Grace", "grace@example.com")
	g := &contacts.Group{Name: "Pioneers", ContactUUIDs: []string{a.UUID}}
	require.NoError(t, f.m.CreateGroup(ctx, alice, g))

	var buf bytes.Buffer
	n, err := f.m.Export(ctx, alice, transfer.FormatVCF, "personal", []string{a.UUID}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := transfer.ReadVCF(buf.Bytes(), false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, a.UUID, entries[0].Contact.UUID)
	assert.Equal(t, []string{"Pioneers"}, entries[0].Categories)

	buf.Reset()
	n, err = f.m.Export(ctx, alice, transfer.FormatCSV, "personal", nil, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), "grace@example.com")
}

func TestAddressBooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ab, err := f.m.CreateAddressBook(ctx, alice, "Work")
	require.NoError(t, err)
	st := ab.Storage().String()

	c := f.create(t, alice, st, "Colleague", "col@example.com")
	assert.Equal(t, ab.ID, c.AddressBookID)
	assert.Equal(t, 1, f.ctag(t, alice, st))

	list, total, err := f.m.GetContacts(ctx, alice, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, list, 3)

	assert.ErrorIs(t, f.m.CreateContact(ctx, bob, &contacts.Contact{Storage: st}), contacts.ErrNotFound)
	assert.ErrorIs(t, f.m.RenameAddressBook(ctx, bob, ab.ID, "Mine"), contacts.ErrNotFound)
	require.NoError(t, f.m.RenameAddressBook(ctx, alice, ab.ID, "Office"))

	books, err := f.m.GetAddressBooks(ctx, alice)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Office", books[0].Name)

	require.NoError(t, f.m.DeleteAddressBook(ctx, alice, ab.ID))
	assert.Equal(t, 2, f.ctag(t, alice, st))
	_, err = f.m.GetContact(ctx, alice, c.UUID)
	assert.ErrorIs(t, err, contacts.ErrNotFound)

	_, err = f.m.CreateAddressBook(ctx, alice, "")
	assert.ErrorIs(t, err, contacts.ErrValidation)
}

func TestGetCTagRejectsAll(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.GetCTag(context.Background(), alice, "all")
	assert.ErrorIs(t, err, contacts.ErrInvalidStorage)
}

func TestObserverErrorDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.obs.err = errors.New("downstream unavailable")

	c := f.create(t, alice, "personal", "Ada", "ada@example.com")
	assert.NotEmpty(t, c.UUID)
	assert.Len(t, f.obs.events, 1)
}

func TestWithoutTeamDirectory(t *testing.T) {
	s, err := sqlite.New(filepath.Join(t.TempDir(), "contacts.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	m := New(s, zerolog.Nop())

	require.NoError(t, m.CreateContact(context.Background(), alice, &contacts.Contact{FullName: "Solo"}))
	list, total, err := m.GetContacts(context.Background(), alice, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	_, err = m.GetContact(context.Background(), alice, "t1")
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}
