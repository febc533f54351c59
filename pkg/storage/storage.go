// Package storage opens sessions to object storage backends and exposes the
// minimal put-object capability the uploader needs.
package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ethpandaops/assetoor/pkg/config"
)

// Client is an open session to an object storage backend. It is safe for
// concurrent use.
type Client interface {
	// PutObject stores the body under in.Key in in.Bucket and returns the
	// URL of the stored object.
	PutObject(ctx context.Context, in *PutObjectInput) (*PutObjectOutput, error)

	// Verify checks that bucket exists and is reachable with the session's
	// credentials.
	Verify(ctx context.Context, bucket string) error
}

// PutObjectInput describes a single object write.
type PutObjectInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64 // -1 when unknown.
	ContentType string
	ACL         string
}

// PutObjectOutput is the backend's answer to a successful write.
type PutObjectOutput struct {
	URL  string
	ETag string
}

// Options are passed to a Provider to open a session.
type Options struct {
	Credentials config.Credentials
	Provider    config.ProviderSettings
}

// Provider opens an authenticated session to a backend.
type Provider func(ctx context.Context, opts Options) (Client, error)

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Provider, 3)
)

// Register makes a provider available under name. It panics if name is
// already registered.
func Register(name string, p Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()

	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("storage: provider %q registered twice", name))
	}

	providers[name] = p
}

// Lookup returns the provider registered under name.
func Lookup(name string) (Provider, error) {
	providersMu.RLock()
	defer providersMu.RUnlock()

	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage provider %q", name)
	}

	return p, nil
}

// Providers returns the sorted names of all registered providers.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func init() {
	Register("s3", openS3)
	Register("gcs", openGCS)
	Register("minio", openMinio)
}
