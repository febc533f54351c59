package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfig = `
protocol: https
domain: cdn.example.com/
threshold: 3
provider:
  name: s3
  access_policy: public-read
  credentials:
    key: AKIATEST
    secret: s3cr3t
  buckets:
    zeta-bucket:
      region: eu-west-1
    alpha-bucket: {}
    mid-bucket:
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	configPath := writeConfig(t, testConfig)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https", cfg.Protocol)
				assert.Equal(t, "cdn.example.com/", cfg.Domain)
				assert.Equal(t, 3, cfg.Threshold)
				assert.Equal(t, "s3cr3t", cfg.Provider.Credentials.Secret)
			},
		},
		{
			name: "string override - domain",
			envVars: map[string]string{
				"ASSETOOR_DOMAIN": "assets.example.org",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "assets.example.org", cfg.Domain)
			},
		},
		{
			name: "integer override - threshold",
			envVars: map[string]string{
				"ASSETOOR_THRESHOLD": "12",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 12, cfg.Threshold)
			},
		},
		{
			name: "nested field override - credentials.secret",
			envVars: map[string]string{
				"ASSETOOR_PROVIDER_CREDENTIALS_SECRET": "from-env",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env", cfg.Provider.Credentials.Secret)
				assert.Equal(t, "AKIATEST", cfg.Provider.Credentials.Key)
			},
		},
		{
			name: "boolean override - force_path_style",
			envVars: map[string]string{
				"ASSETOOR_PROVIDER_FORCE_PATH_STYLE": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Provider.ForcePathStyle)
				assert.True(t, *cfg.Provider.ForcePathStyle)
			},
		},
		{
			name: "env override keeps buckets from yaml",
			envVars: map[string]string{
				"ASSETOOR_PROVIDER_NAME": "gcs",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gcs", cfg.Provider.Name)
				assert.Equal(t,
					[]string{"zeta-bucket", "alpha-bucket", "mid-bucket"},
					cfg.Provider.Buckets.Names(),
				)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(configPath)
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoad_MultipleFilesLaterWins(t *testing.T) {
	base := writeConfig(t, testConfig)
	override := writeConfig(t, `
threshold: 7
provider:
  buckets:
    other-bucket: {}
`)

	cfg, err := Load(base, override)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Threshold)
	assert.Equal(t, "cdn.example.com/", cfg.Domain)
	assert.Equal(t, "AKIATEST", cfg.Provider.Credentials.Key)
	assert.Equal(t, []string{"other-bucket"}, cfg.Provider.Buckets.Names())
}

func TestLoad_BucketOrderAndMetadata(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Provider.Buckets, 3)
	assert.Equal(t, "zeta-bucket", cfg.Provider.Buckets[0].Name)
	assert.Equal(t, "eu-west-1", cfg.Provider.Buckets[0].Meta["region"])
	assert.Empty(t, cfg.Provider.Buckets[1].Meta)
	assert.NotNil(t, cfg.Provider.Buckets[2].Meta)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "protocol: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_BucketsMustBeMapping(t *testing.T) {
	_, err := Load(writeConfig(t, `
provider:
  buckets:
    - a
    - b
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buckets must be a mapping")
}

func TestLoad_DuplicateBucket(t *testing.T) {
	_, err := Load(writeConfig(t, `
provider:
  buckets:
    a: {}
    a: {}
`))
	require.Error(t, err)
}

func TestBuckets_MarshalYAMLKeepsOrder(t *testing.T) {
	buckets := Buckets{
		{Name: "second", Meta: map[string]string{}},
		{Name: "first", Meta: map[string]string{"region": "us-east-2"}},
	}

	out, err := yaml.Marshal(struct {
		Buckets Buckets `yaml:"buckets"`
	}{Buckets: buckets})
	require.NoError(t, err)

	var decoded struct {
		Buckets Buckets `yaml:"buckets"`
	}

	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, []string{"second", "first"}, decoded.Buckets.Names())
	assert.Equal(t, "us-east-2", decoded.Buckets[1].Meta["region"])
}

func TestManifestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ManifestConfig
		wantErr string
	}{
		{name: "nil", cfg: nil},
		{name: "disabled", cfg: &ManifestConfig{Enabled: false}},
		{
			name: "sqlite ok",
			cfg: &ManifestConfig{Enabled: true, Database: DatabaseConfig{
				Driver: "sqlite", SQLite: SQLiteDatabaseConfig{Path: "manifest.db"},
			}},
		},
		{
			name:    "sqlite missing path",
			cfg:     &ManifestConfig{Enabled: true, Database: DatabaseConfig{Driver: "sqlite"}},
			wantErr: "sqlite.path",
		},
		{
			name: "postgres missing database",
			cfg: &ManifestConfig{Enabled: true, Database: DatabaseConfig{
				Driver: "postgres", Postgres: PostgresConfig{Host: "db"},
			}},
			wantErr: "postgres.database",
		},
		{
			name:    "unknown driver",
			cfg:     &ManifestConfig{Enabled: true, Database: DatabaseConfig{Driver: "mysql"}},
			wantErr: "unsupported database driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	p := &PostgresConfig{Host: "db", User: "u", Password: "p", Database: "assets"}
	assert.Equal(t,
		"host=db port=5432 user=u password=p dbname=assets sslmode=disable",
		p.DSN(),
	)
}

func TestMissingConfigurationError_As(t *testing.T) {
	var err error = &MissingConfigurationError{Fields: []string{"domain"}}

	var missing *MissingConfigurationError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"domain"}, missing.Fields)
}
