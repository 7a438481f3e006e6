// Package carddav keeps contacts and groups as vCards in a remote CardDAV
// collection.
package carddav

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	govcard "github.com/emersion/go-vcard"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/carddav"
	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
	"github.com/sonroyaalmerol/webmail-contacts/pkg/vcard"
)

var _ storage.ContactStore = (*Store)(nil)

// Bookkeeping properties the store adds to every card it writes.
const (
	fieldUser       = "X-CONTACTS-USER"
	fieldTenant     = "X-CONTACTS-TENANT"
	fieldStorage    = "X-CONTACTS-STORAGE"
	fieldAuto       = "X-CONTACTS-AUTO"
	fieldETag       = "X-CONTACTS-ETAG"
	fieldProperties = "X-CONTACTS-PROPERTIES"
)

// Client is the part of *carddav.Client the store talks to.
type Client interface {
	GetAddressObject(ctx context.Context, path string) (*carddav.AddressObject, error)
	PutAddressObject(ctx context.Context, path string, card govcard.Card) (*carddav.AddressObject, error)
	QueryAddressBook(ctx context.Context, path string, query *carddav.AddressBookQuery) ([]carddav.AddressObject, error)
	RemoveAll(ctx context.Context, path string) error
}

type Store struct {
	client     Client
	collection string
	logger     zerolog.Logger
	now        func() time.Time
}

// New connects to the address book collection at endpoint+collection with
// HTTP basic authentication.
func New(endpoint, username, password, collection string, logger zerolog.Logger) (*Store, error) {
	hc := webdav.HTTPClientWithBasicAuth(http.DefaultClient, username, password)
	c, err := carddav.NewClient(hc, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create carddav client: %w", err)
	}
	return NewWithClient(c, collection, logger), nil
}

func NewWithClient(c Client, collection string, logger zerolog.Logger) *Store {
	if !strings.HasSuffix(collection, "/") {
		collection += "/"
	}
	return &Store{
		client:     c,
		collection: collection,
		logger:     logger.With().Str("component", "carddav").Logger(),
		now:        time.Now,
	}
}

func (s *Store) Close() {}

func (s *Store) objectPath(uuid string) string {
	return path.Join(s.collection, uuid+".vcf")
}

var notFoundText = strconv.Itoa(http.StatusNotFound) + " " + http.StatusText(http.StatusNotFound)

// isNotFound matches the "<code> <status>[: detail]" text of the webdav
// client's HTTP errors anywhere in the wrap chain. Transport errors that
// merely mention 404 in a URL do not count.
func isNotFound(err error) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		msg := err.Error()
		if msg == notFoundText || strings.HasPrefix(msg, notFoundText+":") {
			return true
		}
	}
	return false
}

type object struct {
	path string
	card govcard.Card
}

// loadAll fetches every card of the collection.
func (s *Store) loadAll(ctx context.Context) ([]object, error) {
	objs, err := s.client.QueryAddressBook(ctx, s.collection, &carddav.AddressBookQuery{
		DataRequest: carddav.AddressDataRequest{AllProp: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query address book: %w", err)
	}
	out := make([]object, 0, len(objs))
	for _, o := range objs {
		if o.Card == nil {
			continue
		}
		out = append(out, object{path: o.Path, card: o.Card})
	}
	return out, nil
}

func (s *Store) get(ctx context.Context, uuid string) (govcard.Card, error) {
	obj, err := s.client.GetAddressObject(ctx, s.objectPath(uuid))
	if isNotFound(err) {
		return nil, contacts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", uuid, err)
	}
	return obj.Card, nil
}

func (s *Store) ensureAbsent(ctx context.Context, uuid string) error {
	_, err := s.get(ctx, uuid)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", contacts.ErrAlreadyExists, uuid)
	case errors.Is(err, contacts.ErrNotFound):
		return nil
	}
	return err
}

func (s *Store) put(ctx context.Context, uuid string, card govcard.Card) error {
	if _, err := s.client.PutAddressObject(ctx, s.objectPath(uuid), card); err != nil {
		return fmt.Errorf("failed to put %s: %w", uuid, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, uuid string) (bool, error) {
	err := s.client.RemoveAll(ctx, s.objectPath(uuid))
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", uuid, err)
	}
	return true, nil
}

// writeBookkeeping stores the fields a vCard has no property for.
func writeBookkeeping(card govcard.Card, c *contacts.Contact) error {
	card.SetValue(fieldUser, strconv.FormatInt(c.UserID, 10))
	card.SetValue(fieldTenant, strconv.FormatInt(c.TenantID, 10))
	card.SetValue(fieldStorage, c.Storage)
	card.SetValue(fieldAuto, strconv.FormatBool(c.Auto))
	card.SetValue(fieldETag, c.ETag)
	card.SetValue(govcard.FieldRevision, c.DateModified.UTC().Format(time.RFC3339))
	delete(card, fieldProperties)
	if len(c.Properties) > 0 {
		b, err := json.Marshal(c.Properties)
		if err != nil {
			return fmt.Errorf("failed to encode properties: %w", err)
		}
		card.SetValue(fieldProperties, string(b))
	}
	return nil
}

func readContact(card govcard.Card) (*contacts.Contact, error) {
	c := vcard.ParseContact(card)
	c.UserID, _ = strconv.ParseInt(card.Value(fieldUser), 10, 64)
	c.TenantID, _ = strconv.ParseInt(card.Value(fieldTenant), 10, 64)
	c.Storage = card.Value(fieldStorage)
	c.Auto, _ = strconv.ParseBool(card.Value(fieldAuto))
	c.Frequency, _ = strconv.Atoi(card.Value(vcard.FieldFrequency))
	c.ETag = card.Value(fieldETag)
	if rev := card.Value(govcard.FieldRevision); rev != "" {
		if t, err := time.Parse(time.RFC3339, rev); err == nil {
			c.DateModified = t
		}
	}
	if raw := card.Value(fieldProperties); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode properties of %s: %w", c.UUID, err)
		}
	}
	if err := c.Populate(); err != nil {
		return nil, err
	}
	return c, nil
}

func readGroup(card govcard.Card) *contacts.Group {
	g := vcard.ParseGroup(card, "")
	g.UserID, _ = strconv.ParseInt(card.Value(fieldUser), 10, 64)
	if g.ContactUUIDs == nil {
		g.ContactUUIDs = []string{}
	}
	return g
}
