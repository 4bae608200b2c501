package backend

import (
	"errors"
	"fmt"
	"strings"

	"atelier/internal/config"
)

// FromAppConfig picks the backend from DATA_BACKEND and SQLITE_DB_PATH.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend))),
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("unknown DATA_BACKEND %q, want one of: %s", c.Type, strings.Join(TypeNames(), ", "))
	}
	if c.Type == SQLiteBackend && strings.TrimSpace(c.SQLiteDBPath) == "" {
		return errors.New("SQLITE_DB_PATH is required for the sqlite backend")
	}
	return nil
}

// TypeNames lists the accepted DATA_BACKEND values.
func TypeNames() []string {
	names := make([]string, len(backendTypes))
	for i, t := range backendTypes {
		names[i] = t.String()
	}
	return names
}
