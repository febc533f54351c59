package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix for environment variable overrides,
	// e.g. ASSETOOR_PROVIDER_CREDENTIALS_SECRET.
	EnvPrefix = "ASSETOOR"

	// DefaultProtocol is the default protocol used for public URLs.
	DefaultProtocol = "https"

	// DefaultDomain is the default storage domain used for public URLs.
	DefaultDomain = "s3.amazonaws.com"

	// DefaultThreshold is the default number of uploads per batch.
	DefaultThreshold = 5

	// DefaultProvider is the default storage provider.
	DefaultProvider = "s3"

	// DefaultAccessPolicy is the default canned ACL applied to uploads.
	DefaultAccessPolicy = "public-read"

	// DefaultRegion is the default bucket region.
	DefaultRegion = "us-east-1"
)

// Config is the root configuration for assetoor.
type Config struct {
	Protocol  string         `yaml:"protocol" mapstructure:"protocol"`
	Domain    string         `yaml:"domain" mapstructure:"domain"`
	Threshold int            `yaml:"threshold" mapstructure:"threshold"`
	Provider  ProviderConfig `yaml:"provider" mapstructure:"provider"`
	Upload    UploadConfig   `yaml:"upload,omitempty" mapstructure:"upload"`
}

// ProviderConfig contains the storage provider settings. Name selects the
// backend; the remaining fields form the credential/bucket/policy tree.
type ProviderConfig struct {
	Name           string            `yaml:"name" mapstructure:"name"`
	AccessPolicy   string            `yaml:"access_policy" mapstructure:"access_policy"`
	Credentials    CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`
	Buckets        Buckets           `yaml:"buckets" mapstructure:"-"`
	Region         string            `yaml:"region,omitempty" mapstructure:"region"`
	EndpointURL    string            `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	ForcePathStyle *bool             `yaml:"force_path_style,omitempty" mapstructure:"force_path_style"`
	UseSSL         *bool             `yaml:"use_ssl,omitempty" mapstructure:"use_ssl"`
}

// CredentialsConfig holds the key/secret pair used to open a storage session.
type CredentialsConfig struct {
	Key    string `yaml:"key" mapstructure:"key"`
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// UploadConfig contains optional upload tuning settings.
type UploadConfig struct {
	// RateLimit caps put requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
	// KeyPrefix is prepended to every object key.
	KeyPrefix string          `yaml:"key_prefix,omitempty" mapstructure:"key_prefix"`
	Manifest  *ManifestConfig `yaml:"manifest,omitempty" mapstructure:"manifest"`
}

// Defaults returns the built-in configuration that user configuration is
// merged over.
func Defaults() *Config {
	return &Config{
		Protocol:  DefaultProtocol,
		Domain:    DefaultDomain,
		Threshold: DefaultThreshold,
		Provider: ProviderConfig{
			Name:           DefaultProvider,
			AccessPolicy:   DefaultAccessPolicy,
			Region:         DefaultRegion,
			ForcePathStyle: boolPtr(false),
			UseSSL:         boolPtr(true),
		},
	}
}

// envKeys lists the configuration keys that may be overridden from the
// environment.
var envKeys = []string{
	"protocol",
	"domain",
	"threshold",
	"provider.name",
	"provider.access_policy",
	"provider.credentials.key",
	"provider.credentials.secret",
	"provider.region",
	"provider.endpoint_url",
	"provider.force_path_style",
	"provider.use_ssl",
	"upload.rate_limit",
	"upload.key_prefix",
}

// Load reads and parses the given configuration files in order, later files
// overriding earlier ones, and applies environment variable overrides.
// Defaults are not applied; see Resolve.
func Load(paths ...string) (*Config, error) {
	var cfg Config

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides overlays ASSETOOR_* environment variables onto the
// configuration. Only variables that are set are applied.
func (c *Config) applyEnvOverrides() error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding env for %q: %w", key, err)
		}
	}

	overrides := v.AllSettings()
	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	if err := decoder.Decode(overrides); err != nil {
		return fmt.Errorf("decoding env overrides: %w", err)
	}

	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
