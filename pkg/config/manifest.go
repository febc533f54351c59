package config

import "fmt"

// ManifestConfig enables recording upload results in a database.
type ManifestConfig struct {
	Enabled  bool           `yaml:"enabled" mapstructure:"enabled"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// Validate checks the manifest database settings.
func (m *ManifestConfig) Validate() error {
	if m == nil || !m.Enabled {
		return nil
	}

	switch m.Database.Driver {
	case "sqlite":
		if m.Database.SQLite.Path == "" {
			return fmt.Errorf("manifest: sqlite.path is required")
		}
	case "postgres":
		if m.Database.Postgres.Host == "" {
			return fmt.Errorf("manifest: postgres.host is required")
		}

		if m.Database.Postgres.Database == "" {
			return fmt.Errorf("manifest: postgres.database is required")
		}
	default:
		return fmt.Errorf("manifest: unsupported database driver %q", m.Database.Driver)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	port := p.Port
	if port == 0 {
		port = 5432
	}

	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.User, p.Password, p.Database, sslMode,
	)
}
