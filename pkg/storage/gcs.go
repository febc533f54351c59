package storage

import "context"

const (
	gcsEndpoint = "https://storage.googleapis.com"
	gcsRegion   = "auto"
)

// openGCS opens a Google Cloud Storage session through the XML API's S3
// interoperability mode. Credentials are HMAC keys.
func openGCS(ctx context.Context, opts Options) (Client, error) {
	if opts.Provider.EndpointURL == "" {
		opts.Provider.EndpointURL = gcsEndpoint
	}

	if opts.Provider.Region == "" || opts.Provider.Region == defaultS3Region {
		opts.Provider.Region = gcsRegion
	}

	opts.Provider.ForcePathStyle = true

	return openS3(ctx, opts)
}
