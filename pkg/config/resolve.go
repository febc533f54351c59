package config

import (
	"fmt"
	"slices"
	"strings"
)

// SupportedProviders lists the storage provider names that can be selected
// with provider.name.
var SupportedProviders = []string{"s3", "gcs", "minio"}

// MissingConfigurationError is returned by Resolve when one or more
// required settings are empty after merging user configuration over the
// defaults. Fields holds every offending key as a dotted path.
type MissingConfigurationError struct {
	Fields []string
}

func (e *MissingConfigurationError) Error() string {
	return "missing required configuration: " + strings.Join(e.Fields, ", ")
}

// Credentials is the key/secret pair used to authenticate with storage.
type Credentials struct {
	Key    string
	Secret string
}

// ProviderSettings contains the resolved provider selection and options.
type ProviderSettings struct {
	Name           string
	Region         string
	EndpointURL    string
	ForcePathStyle bool
	UseSSL         bool
}

// UploadSettings is the normalized, validated configuration for a single
// run. It is created by Resolve and is read-only afterwards.
type UploadSettings struct {
	protocol     string
	domain       string
	threshold    int
	accessPolicy string
	credentials  Credentials
	buckets      Buckets
	provider     ProviderSettings
	rateLimit    float64
	keyPrefix    string
	manifest     *ManifestConfig
}

// Protocol returns the public URL protocol, e.g. "https".
func (s *UploadSettings) Protocol() string { return s.protocol }

// Domain returns the public URL domain.
func (s *UploadSettings) Domain() string { return s.domain }

// Threshold returns the maximum number of requests per batch.
func (s *UploadSettings) Threshold() int { return s.threshold }

// AccessPolicy returns the canned ACL applied to every upload.
func (s *UploadSettings) AccessPolicy() string { return s.accessPolicy }

// Credentials returns the storage credentials.
func (s *UploadSettings) Credentials() Credentials { return s.credentials }

// Provider returns the provider selection and options.
func (s *UploadSettings) Provider() ProviderSettings { return s.provider }

// RateLimit returns the put request rate limit per second, 0 if unlimited.
func (s *UploadSettings) RateLimit() float64 { return s.rateLimit }

// KeyPrefix returns the prefix prepended to object keys.
func (s *UploadSettings) KeyPrefix() string { return s.keyPrefix }

// Buckets returns a copy of the configured buckets in order.
func (s *UploadSettings) Buckets() Buckets { return s.buckets.clone() }

// PrimaryBucket returns the bucket uploads are sent to: the first
// configured bucket.
func (s *UploadSettings) PrimaryBucket() string { return s.buckets[0].Name }

// URL returns protocol + "://" + domain.
func (s *UploadSettings) URL() string { return s.protocol + "://" + s.domain }

// Manifest returns the manifest configuration, nil if not configured.
func (s *UploadSettings) Manifest() *ManifestConfig {
	if s.manifest == nil {
		return nil
	}

	m := *s.manifest

	return &m
}

// Resolve merges user over defaults and validates the result. User values
// override defaults key by key, including the nested provider tree; a
// non-empty user bucket mapping replaces the default one. Every empty
// required key is reported in a single MissingConfigurationError.
func Resolve(user, defaults *Config) (*UploadSettings, error) {
	if defaults == nil {
		defaults = &Config{}
	}

	merged := merge(user, defaults)

	if missing := merged.missingFields(); len(missing) > 0 {
		return nil, &MissingConfigurationError{Fields: missing}
	}

	name := strings.TrimSpace(merged.Provider.Name)
	if !slices.Contains(SupportedProviders, name) {
		return nil, fmt.Errorf(
			"unsupported provider %q (supported: %s)",
			name, strings.Join(SupportedProviders, ", "),
		)
	}

	if err := merged.Upload.Manifest.Validate(); err != nil {
		return nil, err
	}

	if merged.Upload.RateLimit < 0 {
		return nil, fmt.Errorf("upload.rate_limit must not be negative")
	}

	return &UploadSettings{
		protocol:     strings.TrimSpace(merged.Protocol),
		domain:       strings.TrimSpace(merged.Domain),
		threshold:    merged.Threshold,
		accessPolicy: strings.TrimSpace(merged.Provider.AccessPolicy),
		credentials: Credentials{
			Key:    merged.Provider.Credentials.Key,
			Secret: merged.Provider.Credentials.Secret,
		},
		buckets: merged.Provider.Buckets.clone(),
		provider: ProviderSettings{
			Name:           name,
			Region:         merged.Provider.Region,
			EndpointURL:    merged.Provider.EndpointURL,
			ForcePathStyle: derefBool(merged.Provider.ForcePathStyle),
			UseSSL:         derefBool(merged.Provider.UseSSL),
		},
		rateLimit: merged.Upload.RateLimit,
		keyPrefix: strings.Trim(merged.Upload.KeyPrefix, "/"),
		manifest:  merged.Upload.Manifest,
	}, nil
}

// merge returns defaults with every non-empty user value applied on top.
func merge(user, defaults *Config) Config {
	out := *defaults
	out.Provider.Buckets = defaults.Provider.Buckets.clone()

	if user == nil {
		return out
	}

	out.Protocol = pick(user.Protocol, defaults.Protocol)
	out.Domain = pick(user.Domain, defaults.Domain)

	if user.Threshold != 0 {
		out.Threshold = user.Threshold
	}

	up, dp := user.Provider, defaults.Provider
	out.Provider.Name = pick(up.Name, dp.Name)
	out.Provider.AccessPolicy = pick(up.AccessPolicy, dp.AccessPolicy)
	out.Provider.Credentials.Key = pick(up.Credentials.Key, dp.Credentials.Key)
	out.Provider.Credentials.Secret = pick(up.Credentials.Secret, dp.Credentials.Secret)
	out.Provider.Region = pick(up.Region, dp.Region)
	out.Provider.EndpointURL = pick(up.EndpointURL, dp.EndpointURL)

	if len(up.Buckets) > 0 {
		out.Provider.Buckets = up.Buckets.clone()
	}

	if up.ForcePathStyle != nil {
		out.Provider.ForcePathStyle = up.ForcePathStyle
	}

	if up.UseSSL != nil {
		out.Provider.UseSSL = up.UseSSL
	}

	if user.Upload.RateLimit != 0 {
		out.Upload.RateLimit = user.Upload.RateLimit
	}

	out.Upload.KeyPrefix = pick(user.Upload.KeyPrefix, defaults.Upload.KeyPrefix)

	if user.Upload.Manifest != nil {
		out.Upload.Manifest = user.Upload.Manifest
	}

	return out
}

// missingFields walks every required key and returns the dotted path of
// each one that is empty.
func (c *Config) missingFields() []string {
	required := []struct {
		key   string
		empty bool
	}{
		{"protocol", isBlank(strings.TrimRight(c.Protocol, ":/"))},
		{"domain", isBlank(strings.TrimRight(c.Domain, "/"))},
		{"threshold", c.Threshold < 1},
		{"provider.name", isBlank(c.Provider.Name)},
		{"provider.access_policy", isBlank(c.Provider.AccessPolicy)},
		{"provider.credentials.key", isBlank(c.Provider.Credentials.Key)},
		{"provider.credentials.secret", isBlank(c.Provider.Credentials.Secret)},
		{"provider.buckets", len(c.Provider.Buckets) == 0},
	}

	var missing []string

	for _, field := range required {
		if field.empty {
			missing = append(missing, field.key)
		}
	}

	for i, bucket := range c.Provider.Buckets {
		if isBlank(bucket.Name) {
			missing = append(missing, fmt.Sprintf("provider.buckets[%d]", i))
		}
	}

	if strings.TrimSpace(c.Provider.Name) == "minio" && isBlank(c.Provider.EndpointURL) {
		missing = append(missing, "provider.endpoint_url")
	}

	return missing
}

func pick(value, fallback string) string {
	if isBlank(value) {
		return fallback
	}

	return value
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
