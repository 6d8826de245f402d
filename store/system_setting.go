package store

import (
	"context"
)

const (
	// SystemSettingSchemaVersionName is the setting holding the applied schema version.
	SystemSettingSchemaVersionName = "schema_version"
)

// SystemSetting is a named instance-wide value.
type SystemSetting struct {
	Name  string
	Value string
}

// FindSystemSetting is the find condition for system settings.
type FindSystemSetting struct {
	Name *string
}

func (s *Store) UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error) {
	return s.driver.UpsertSystemSetting(ctx, upsert)
}

func (s *Store) ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error) {
	return s.driver.ListSystemSettings(ctx, find)
}

// GetSchemaVersion returns the schema version recorded in the database,
// or an empty string if none has been recorded.
func (s *Store) GetSchemaVersion(ctx context.Context) (string, error) {
	name := SystemSettingSchemaVersionName
	list, err := s.ListSystemSettings(ctx, &FindSystemSetting{Name: &name})
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", nil
	}
	return list[0].Value, nil
}
