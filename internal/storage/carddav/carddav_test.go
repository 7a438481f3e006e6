package carddav

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	govcard "github.com/emersion/go-vcard"
	"github.com/emersion/go-webdav/carddav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
	"github.com/sonroyaalmerol/webmail-contacts/pkg/vcard"
)

type fakeClient struct {
	objects map[string]govcard.Card
	puts    int
	// fail, when set, is returned by every read and delete.
	fail error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string]govcard.Card{}}
}

func copyCard(card govcard.Card) govcard.Card {
	out := make(govcard.Card, len(card))
	for k, fields := range card {
		for _, f := range fields {
			cp := *f
			if f.Params != nil {
				cp.Params = make(govcard.Params, len(f.Params))
				for pk, pv := range f.Params {
					cp.Params[pk] = append([]string(nil), pv...)
				}
			}
			out[k] = append(out[k], &cp)
		}
	}
	return out
}

var errNotFound = errors.New("404 Not Found")

func (f *fakeClient) GetAddressObject(ctx context.Context, path string) (*carddav.AddressObject, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	card, ok := f.objects[path]
	if !ok {
		return nil, errNotFound
	}
	return &carddav.AddressObject{Path: path, Card: copyCard(card)}, nil
}

func (f *fakeClient) PutAddressObject(ctx context.Context, path string, card govcard.Card) (*carddav.AddressObject, error) {
	f.objects[path] = copyCard(card)
	f.puts++
	return &carddav.AddressObject{Path: path}, nil
}

func (f *fakeClient) QueryAddressBook(ctx context.Context, path string, query *carddav.AddressBookQuery) ([]carddav.AddressObject, error) {
	var paths []string
	for p := range f.objects {
		if strings.HasPrefix(p, path) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	out := make([]carddav.AddressObject, 0, len(paths))
	for _, p := range paths {
		out = append(out, carddav.AddressObject{Path: p, Card: copyCard(f.objects[p])})
	}
	return out, nil
}

func (f *fakeClient) RemoveAll(ctx context.Context, path string) error {
	if f.fail != nil {
		return f.fail
	}
	if _, ok := f.objects[path]; !ok {
		return errNotFound
	}
	delete(f.objects, path)
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeClient) {
	t.Helper()
	fc := newFakeClient()
	return NewWithClient(fc, "/dav/contacts", zerolog.Nop()), fc
}

func newContact(t *testing.T, userID int64, st, name, email string) *contacts.Contact {
	t.Helper()
	c := contacts.NewContact(userID, 10)
	c.Storage = st
	c.FullName = name
	c.PersonalEmail = email
	require.NoError(t, c.Populate())
	c.ETag = contacts.ComputeETag(c)
	c.DateModified = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return c
}

func personal() []contacts.Storage {
	return []contacts.Storage{{Kind: contacts.StoragePersonal}}
}

func TestCreateAndGetContact(t *testing.T) {
	s, fc := newTestStore(t)
	ctx := context.Background()

	c := newContact(t, 1, "personal", "Ada Lovelace", "ada@example.com")
	c.Auto = true
	c.Frequency = 4
	require.NoError(t, c.Properties.Set("color", "blue"))
	require.NoError(t, s.CreateContact(ctx, c))
	assert.Contains(t, fc.objects, "/dav/contacts/"+c.UUID+".vcf")

	got, err := s.GetContact(ctx, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, c.UUID, got.UUID)
	assert.Equal(t, "Ada Lovelace", got.FullName)
	assert.Equal(t, "ada@example.com", got.ViewEmail)
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, int64(10), got.TenantID)
	assert.Equal(t, "personal", got.Storage)
	assert.True(t, got.Auto)
	assert.Equal(t, 4, got.Frequency)
	assert.Equal(t, c.ETag, got.ETag)
	assert.True(t, c.DateModified.Equal(got.DateModified))
	assert.Equal(t, []string{}, got.GroupUUIDs)

	var color string
	ok, err := got.Properties.Get("color", &color)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "blue", color)

	err = s.CreateContact(ctx, c)
	assert.ErrorIs(t, err, contacts.ErrAlreadyExists)

	_, err = s.GetContact(ctx, "missing")
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestListContactsScopesAndSorts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, c := range []*contacts.Contact{
		newContact(t, 1, "personal", "Charlie", "c@example.com"),
		newContact(t, 1, "personal", "alice", "a@example.com"),
		newContact(t, 1, "collected", "Bob", "b@example.com"),
		newContact(t, 2, "personal", "Dora", "d@example.com"),
		newContact(t, 2, "shared", "Shared Sam", "s@example.com"),
	} {
		require.NoError(t, s.CreateContact(ctx, c))
	}

	names := func(list []*contacts.Contact) []string {
		out := make([]string, 0, len(list))
		for _, c := range list {
			out = append(out, c.FullName)
		}
		return out
	}

	list, err := s.ListContacts(ctx, storage.ContactQuery{UserID: 1, Storages: personal(), Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "Charlie"}, names(list))

	list, err = s.ListContacts(ctx, storage.ContactQuery{
		UserID:   1,
		TenantID: 10,
		Storages: []contacts.Storage{
			{Kind: contacts.StoragePersonal},
			{Kind: contacts.StorageCollected},
			{Kind: contacts.StorageShared},
		},
		Ascending: true,
		Offset:    1,
		Limit:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Charlie"}, names(list))

	n, err := s.CountContacts(ctx, storage.ContactQuery{UserID: 1, Storages: personal(), Search: "ALI"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountContacts(ctx, storage.ContactQuery{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGetContactByEmailPrefersPersonal(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	collected := newContact(t, 1, "collected", "Collected", "x@example.com")
	own := newContact(t, 1, "personal", "Own", "X@Example.com")
	require.NoError(t, s.CreateContact(ctx, collected))
	require.NoError(t, s.CreateContact(ctx, own))

	got, err := s.GetContactByEmail(ctx, 1, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, own.UUID, got.UUID)

	_, err = s.GetContactByEmail(ctx, 2, "x@example.com")
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestUpdateContactChecksETag(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	c := newContact(t, 1, "personal", "Ada", "ada@example.com")
	require.NoError(t, s.CreateContact(ctx, c))
	old := c.ETag

	c.FullName = "Ada King"
	c.ETag = "next"
	require.NoError(t, s.UpdateContact(ctx, c, old))

	got, err := s.GetContact(ctx, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Ada King", got.FullName)
	assert.Equal(t, "next", got.ETag)

	err = s.UpdateContact(ctx, c, old)
	assert.ErrorIs(t, err, contacts.ErrPreconditionFailed)

	missing := newContact(t, 1, "personal", "Nobody", "")
	err = s.UpdateContact(ctx, missing, "")
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestGroupMembership(t *testing.T) {
	s, fc := newTestStore(t)
	ctx := context.Background()

	a := newContact(t, 1, "personal", "Ada", "ada@example.com")
	b := newContact(t, 1, "personal", "Bob", "bob@example.com")
	require.NoError(t, s.CreateContact(ctx, a))
	require.NoError(t, s.CreateContact(ctx, b))

	g := &contacts.Group{UserID: 1, Name: "Friends"}
	g.EnsureUUID()
	require.NoError(t, s.CreateGroup(ctx, g))

	require.NoError(t, s.AddContactsToGroup(ctx, g.UUID, []string{a.UUID, b.UUID}))
	got, err := s.GetGroup(ctx, g.UUID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.UUID, b.UUID}, got.ContactUUIDs)
	assert.Equal(t, []string{"Friends"}, vcard.Categories(fc.objects["/dav/contacts/"+a.UUID+".vcf"]))

	list, err := s.ListContacts(ctx, storage.ContactQuery{UserID: 1, Storages: personal(), GroupUUID: g.UUID})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.RemoveContactsFromGroup(ctx, g.UUID, []string{a.UUID}))
	assert.Empty(t, vcard.Categories(fc.objects["/dav/contacts/"+a.UUID+".vcf"]))

	n, err := s.DeleteContacts(ctx, []string{b.UUID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = s.GetGroup(ctx, g.UUID)
	require.NoError(t, err)
	assert.Empty(t, got.ContactUUIDs)

	groups, err := s.ListGroups(ctx, storage.GroupQuery{UserID: 1})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Friends", groups[0].Name)

	n, err = s.DeleteGroups(ctx, 2, []string{g.UUID})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = s.DeleteGroups(ctx, 1, []string{g.UUID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetGroup(ctx, g.UUID)
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestUpdateContactReplacesGroups(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	g1 := &contacts.Group{UUID: "g1", UserID: 1, Name: "One"}
	g2 := &contacts.Group{UUID: "g2", UserID: 1, Name: "Two"}
	require.NoError(t, s.CreateGroup(ctx, g1))
	require.NoError(t, s.CreateGroup(ctx, g2))

	c := newContact(t, 1, "personal", "Ada", "ada@example.com")
	c.GroupUUIDs = []string{"g1"}
	require.NoError(t, s.CreateContact(ctx, c))

	c.GroupUUIDs = []string{"g2"}
	require.NoError(t, s.UpdateContact(ctx, c, ""))

	got, err := s.GetContact(ctx, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, got.GroupUUIDs)
}

func TestUpdateGroupKeepsMembersWhenNil(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	g := &contacts.Group{UUID: "g1", UserID: 1, Name: "Team", ContactUUIDs: []string{"c1"}}
	require.NoError(t, s.CreateGroup(ctx, g))

	require.NoError(t, s.UpdateGroup(ctx, &contacts.Group{UUID: "g1", Name: "Renamed", Company: "ACME"}))

	got, err := s.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, []string{"c1"}, got.ContactUUIDs)

	err = s.UpdateGroup(ctx, &contacts.Group{UUID: "nope"})
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestPropertiesStoredAsJSON(t *testing.T) {
	s, fc := newTestStore(t)
	ctx := context.Background()

	c := newContact(t, 1, "personal", "Ada", "")
	require.NoError(t, c.Properties.Set("n", 3))
	require.NoError(t, s.CreateContact(ctx, c))

	raw := fc.objects["/dav/contacts/"+c.UUID+".vcf"].Value(fieldProperties)
	var props map[string]int
	require.NoError(t, json.Unmarshal([]byte(raw), &props))
	assert.Equal(t, 3, props["n"])
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status only", errors.New("404 Not Found"), true},
		{"status with detail", errors.New("404 Not Found: no such object"), true},
		{"wrapped", fmt.Errorf("failed to get c1: %w", errors.New("404 Not Found")), true},
		{"other status", errors.New("500 Internal Server Error"), false},
		{"404 inside a url", errors.New(`Get "http://dav.example/dav/contacts/c404d2b0-11aa.vcf": dial tcp 10.0.0.1:80: connection refused`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestTransportErrorsAreNotNotFound(t *testing.T) {
	s, fc := newTestStore(t)
	ctx := context.Background()
	fc.fail = errors.New(`Get "http://dav.example/dav/contacts/c404d2b0.vcf": dial tcp 10.0.0.1:80: connection refused`)

	_, err := s.GetContact(ctx, "c404d2b0")
	require.Error(t, err)
	assert.NotErrorIs(t, err, contacts.ErrNotFound)

	err = s.CreateContact(ctx, newContact(t, 1, "personal", "Ada", "ada@example.com"))
	require.Error(t, err)
	assert.Zero(t, fc.puts)

	n, err := s.DeleteContacts(ctx, []string{"c404d2b0"})
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestGroupRenameAndDeleteRewriteCategories(t *testing.T) {
	s, fc := newTestStore(t)
	ctx := context.Background()
	cardOf := func(uuid string) govcard.Card { return fc.objects["/dav/contacts/"+uuid+".vcf"] }

	ann := newContact(t, 1, "personal", "Ann", "ann@example.com")
	ben := newContact(t, 1, "personal", "Ben", "ben@example.com")
	require.NoError(t, s.CreateContact(ctx, ann))
	require.NoError(t, s.CreateContact(ctx, ben))

	g := &contacts.Group{UUID: "g1", UserID: 1, Name: "Friends"}
	require.NoError(t, s.CreateGroup(ctx, g))
	require.NoError(t, s.AddContactsToGroup(ctx, "g1", []string{ann.UUID, ben.UUID}))

	require.NoError(t, s.UpdateGroup(ctx, &contacts.Group{UUID: "g1", Name: "Pals"}))
	assert.Equal(t, []string{"Pals"}, vcard.Categories(cardOf(ann.UUID)))
	assert.Equal(t, []string{"Pals"}, vcard.Categories(cardOf(ben.UUID)))

	require.NoError(t, s.UpdateGroup(ctx, &contacts.Group{UUID: "g1", Name: "Pals", ContactUUIDs: []string{ann.UUID}}))
	assert.Equal(t, []string{"Pals"}, vcard.Categories(cardOf(ann.UUID)))
	assert.Empty(t, vcard.Categories(cardOf(ben.UUID)))

	n, err := s.DeleteGroups(ctx, 1, []string{"g1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, vcard.Categories(cardOf(ann.UUID)))
}
