package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioClient implements Client using the MinIO SDK. It works with MinIO
// and other S3-compatible servers.
type minioClient struct {
	client *minio.Client
}

// Ensure interface compliance.
var _ Client = (*minioClient)(nil)

// openMinio creates a MinIO session. The endpoint may be given as a bare
// host:port, in which case UseSSL selects the scheme.
func openMinio(_ context.Context, opts Options) (Client, error) {
	p := opts.Provider

	host, secure, err := splitEndpoint(p.EndpointURL, p.UseSSL)
	if err != nil {
		return nil, err
	}

	lookup := minio.BucketLookupAuto
	if p.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.Credentials.Key, opts.Credentials.Secret, ""),
		Secure:       secure,
		Region:       p.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &minioClient{client: client}, nil
}

// PutObject streams the body to the bucket.
func (c *minioClient) PutObject(ctx context.Context, in *PutObjectInput) (*PutObjectOutput, error) {
	putOpts := minio.PutObjectOptions{
		ContentType: in.ContentType,
	}

	if in.ACL != "" {
		putOpts.UserMetadata = map[string]string{"x-amz-acl": in.ACL}
	}

	info, err := c.client.PutObject(ctx, in.Bucket, in.Key, in.Body, in.Size, putOpts)
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", in.Key, err)
	}

	base := strings.TrimRight(c.client.EndpointURL().String(), "/")

	return &PutObjectOutput{
		URL:  base + "/" + in.Bucket + "/" + escapeKey(in.Key),
		ETag: info.ETag,
	}, nil
}

// Verify checks that the bucket exists.
func (c *minioClient) Verify(ctx context.Context, bucket string) error {
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}

	if !exists {
		return fmt.Errorf("bucket %q does not exist", bucket)
	}

	return nil
}

// splitEndpoint returns the host and TLS setting for a MinIO endpoint.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), useSSL, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint url %q: %w", endpoint, err)
	}

	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}
