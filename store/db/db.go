package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/wordloop/internal/profile"
	"github.com/hrygo/wordloop/store"
	"github.com/hrygo/wordloop/store/db/postgres"
	"github.com/hrygo/wordloop/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// This project supports only PostgreSQL and SQLite databases.
//
// PostgreSQL: production use.
// SQLite: development, demo mode and tests.
// MySQL: NOT SUPPORTED.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported (MySQL is not supported)")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
