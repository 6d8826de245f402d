package test

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"

	"github.com/hrygo/wordloop/internal/profile"
	"github.com/hrygo/wordloop/store"
	"github.com/hrygo/wordloop/store/db"
)

// NewTestingStore returns a migrated store on a fresh database.
// DRIVER selects sqlite (default) or postgres.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	profile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	ts := store.New(dbDriver, profile)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %+v", err)
	}
	t.Cleanup(func() {
		if err := ts.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return ts
}

func getTestingProfile(t *testing.T) *profile.Profile {
	if err := godotenv.Load(".env"); err != nil {
		t.Log("no .env file for store tests, using the environment")
	}

	dir := t.TempDir()
	driver := getDriverFromEnv()
	dsn := os.Getenv("DRIVER_DSN")
	if driver == "postgres" && dsn == "" {
		dsn = GetPostgresDSN(t)
	}

	p := &profile.Profile{
		Mode:    "prod",
		Data:    dir,
		DSN:     dsn,
		Driver:  driver,
		Version: "test",
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid testing profile: %v", err)
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
