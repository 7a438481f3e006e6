// Package app assembles the contact manager from configuration.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/webmail-contacts/internal/config"
	"github.com/sonroyaalmerol/webmail-contacts/internal/directory"
	"github.com/sonroyaalmerol/webmail-contacts/internal/manager"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage/carddav"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage/postgres"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage/sqlite"
)

// OpenStore builds the backend named by cfg.Type. The carddav backend keeps
// its CTags and address books in the SQLite database at cfg.SQLitePath.
func OpenStore(cfg config.StorageConfig, logger zerolog.Logger) (storage.Store, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.PostgresURL, logger)
	case "sqlite":
		return sqlite.New(cfg.SQLitePath, logger)
	case "carddav":
		meta, err := sqlite.New(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		dav, err := carddav.New(cfg.CardDAV.URL, cfg.CardDAV.Username, cfg.CardDAV.Password, cfg.CardDAV.AddressBook, logger)
		if err != nil {
			meta.Close()
			return nil, err
		}
		return storage.Combine(dav, meta), nil
	}
	return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
}

// New returns a manager over the configured store and, when an LDAP URL is
// set, the team directory. The returned cleanup releases both.
func New(cfg *config.Config, logger zerolog.Logger) (*manager.Manager, func(), error) {
	store, err := OpenStore(cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []manager.Option{
		manager.WithImportLimits(cfg.Import.MaxBytes, cfg.Import.Lenient),
		manager.WithSuggestLimit(cfg.SuggestLimit),
	}
	var team *directory.Team
	if cfg.Team.URL != "" {
		team, err = directory.NewTeam(cfg.Team, logger)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		opts = append(opts, manager.WithTeamDirectory(team))
	}

	cleanup := func() {
		store.Close()
		if team != nil {
			team.Close()
		}
	}
	logger.Info().
		Str("storage", cfg.Storage.Type).
		Bool("team", team != nil).
		Msg("contacts manager ready")
	return manager.New(store, logger, opts...), cleanup, nil
}
