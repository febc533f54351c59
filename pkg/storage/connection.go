package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethpandaops/assetoor/pkg/config"
	"github.com/sirupsen/logrus"
)

// ConnectionError is returned when a storage session cannot be opened or
// the primary bucket cannot be reached. It is fatal for a run.
type ConnectionError struct {
	Provider string
	Bucket   string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s storage (bucket %q): %v", e.Provider, e.Bucket, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Connection lazily opens a single shared storage session for a run.
type Connection struct {
	log      logrus.FieldLogger
	settings *config.UploadSettings
	provider Provider

	mu     sync.Mutex
	client Client
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithProvider overrides the provider selected by the settings.
func WithProvider(p Provider) ConnectionOption {
	return func(c *Connection) {
		c.provider = p
	}
}

// NewConnection creates a Connection. No network activity happens until
// Connect is called.
func NewConnection(
	log logrus.FieldLogger,
	settings *config.UploadSettings,
	opts ...ConnectionOption,
) *Connection {
	c := &Connection{
		log:      log.WithField("component", "storage-connection"),
		settings: settings,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect returns the run's storage session, opening it on first use and
// verifying that the primary bucket is reachable. Subsequent calls return
// the same handle. Failed attempts are not cached.
func (c *Connection) Connect(ctx context.Context) (Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	name := c.settings.Provider().Name
	bucket := c.settings.PrimaryBucket()

	provider := c.provider
	if provider == nil {
		p, err := Lookup(name)
		if err != nil {
			return nil, &ConnectionError{Provider: name, Bucket: bucket, Err: err}
		}

		provider = p
	}

	client, err := provider(ctx, Options{
		Credentials: c.settings.Credentials(),
		Provider:    c.settings.Provider(),
	})
	if err != nil {
		return nil, &ConnectionError{Provider: name, Bucket: bucket, Err: err}
	}

	if err := client.Verify(ctx, bucket); err != nil {
		return nil, &ConnectionError{Provider: name, Bucket: bucket, Err: err}
	}

	c.log.WithFields(logrus.Fields{
		"provider": name,
		"bucket":   bucket,
	}).Info("Storage connection established")

	c.client = client

	return client, nil
}

// Close drops the session handle. A later Connect opens a new session.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client = nil
}
