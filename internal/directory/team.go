package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/webmail-contacts/internal/cache"
	"github.com/sonroyaalmerol/webmail-contacts/internal/config"
	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

// Searcher is the part of *ldap.Conn the team directory uses.
type Searcher interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

// Team serves the read-only team storage of one tenant.
type Team struct {
	cfg    config.TeamDirectoryConfig
	conn   *ldap.Conn
	search Searcher
	cache  *cache.Cache[string, []*contacts.Contact]
	logger zerolog.Logger
}

// NewTeam dials the directory described by cfg.
func NewTeam(cfg config.TeamDirectoryConfig, logger zerolog.Logger) (*Team, error) {
	conn, err := dialLDAP(cfg)
	if err != nil {
		logger.Error().Err(err).Str("url", cfg.URL).Msg("failed to dial LDAP")
		return nil, err
	}
	t := NewTeamWithSearcher(cfg, conn, logger)
	t.conn = conn
	return t, nil
}

func NewTeamWithSearcher(cfg config.TeamDirectoryConfig, s Searcher, logger zerolog.Logger) *Team {
	return &Team{
		cfg:    cfg,
		search: s,
		cache:  cache.New[string, []*contacts.Contact](cfg.CacheTTL),
		logger: logger.With().Str("component", "team-directory").Logger(),
	}
}

func (t *Team) Close() {
	if t.conn != nil {
		t.conn.Close()
	}
}

// TenantID is the tenant whose team the directory lists.
func (t *Team) TenantID() int64 { return t.cfg.TenantID }

func (t *Team) attributes() []string {
	set := map[string]struct{}{}
	var out []string
	for _, a := range []string{
		t.cfg.MapUID, t.cfg.MapDisplayName, t.cfg.MapFirstName, t.cfg.MapLastName,
		t.cfg.MapEmail, t.cfg.MapPhone, t.cfg.MapMobile, t.cfg.MapOrganization,
		t.cfg.MapDepartment, t.cfg.MapTitle,
	} {
		if a = safeAttr(a); a == "" {
			continue
		}
		if _, ok := set[a]; ok {
			continue
		}
		set[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// ListTeam returns every team member. Results are cached for the configured
// TTL.
func (t *Team) ListTeam(ctx context.Context) ([]*contacts.Contact, error) {
	return t.cache.GetOrLoad("all", func() ([]*contacts.Contact, error) {
		req := ldap.NewSearchRequest(
			t.cfg.BaseDN,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, int(t.cfg.Timeout.Seconds()), false,
			t.cfg.Filter,
			t.attributes(),
			nil,
		)
		res, err := t.search.Search(req)
		if err != nil {
			t.logger.Error().Err(err).Str("base_dn", t.cfg.BaseDN).Msg("LDAP search failed in ListTeam")
			return nil, fmt.Errorf("failed to search team directory: %w", err)
		}
		out := make([]*contacts.Contact, 0, len(res.Entries))
		for _, e := range res.Entries {
			c := t.mapEntry(e)
			if c.ViewEmail == "" && c.FullName == "" {
				continue
			}
			out = append(out, c)
		}
		t.logger.Debug().Int("count", len(out)).Msg("loaded team directory")
		return out, nil
	})
}

// GetTeamContact finds one team member by UUID.
func (t *Team) GetTeamContact(ctx context.Context, id string) (*contacts.Contact, error) {
	list, err := t.ListTeam(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		if c.UUID == id {
			return c, nil
		}
	}
	return nil, contacts.ErrNotFound
}

func (t *Team) mapEntry(e *ldap.Entry) *contacts.Contact {
	get := func(attr string) string {
		if attr == "" {
			return ""
		}
		return strings.TrimSpace(e.GetAttributeValue(attr))
	}

	c := &contacts.Contact{
		UUID:               get(t.cfg.MapUID),
		TenantID:           t.cfg.TenantID,
		Storage:            string(contacts.StorageTeam),
		FullName:           get(t.cfg.MapDisplayName),
		FirstName:          get(t.cfg.MapFirstName),
		LastName:           get(t.cfg.MapLastName),
		PersonalEmail:      get(t.cfg.MapEmail),
		BusinessPhone:      get(t.cfg.MapPhone),
		PersonalMobile:     get(t.cfg.MapMobile),
		BusinessCompany:    get(t.cfg.MapOrganization),
		BusinessDepartment: get(t.cfg.MapDepartment),
		BusinessJobTitle:   get(t.cfg.MapTitle),
		PrimaryPhone:       contacts.PrimaryPhoneBusiness,
	}
	if c.UUID == "" {
		c.UUID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ldap:"+e.DN)).String()
	}
	if c.FullName == "" {
		c.FullName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	c.RefreshViewEmail()
	c.ETag = contacts.ComputeETag(c)
	return c
}
