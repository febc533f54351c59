package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultS3Region = "us-east-1"

// s3Client implements Client for S3-compatible storage.
type s3Client struct {
	client    *s3.Client
	objectURL func(bucket, key string) string
}

// Ensure interface compliance.
var _ Client = (*s3Client)(nil)

// openS3 creates an S3 session using static credentials.
func openS3(_ context.Context, opts Options) (Client, error) {
	p := opts.Provider

	region := p.Region
	if region == "" {
		region = defaultS3Region
	}

	if p.EndpointURL != "" {
		if _, err := url.ParseRequestURI(p.EndpointURL); err != nil {
			return nil, fmt.Errorf("invalid endpoint url %q: %w", p.EndpointURL, err)
		}
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = region

		if p.EndpointURL != "" {
			o.BaseEndpoint = aws.String(p.EndpointURL)
			// S3-compatible services commonly reject the SDK's default
			// trailing checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}

		if p.ForcePathStyle {
			o.UsePathStyle = true
		}

		o.Credentials = credentials.NewStaticCredentialsProvider(
			opts.Credentials.Key, opts.Credentials.Secret, "",
		)
	})

	return &s3Client{
		client:    client,
		objectURL: s3ObjectURL(p.EndpointURL, region, p.ForcePathStyle),
	}, nil
}

// PutObject uploads a single object.
func (c *s3Client) PutObject(ctx context.Context, in *PutObjectInput) (*PutObjectOutput, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(in.Key),
		Body:   in.Body,
	}

	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}

	if in.Size >= 0 {
		input.ContentLength = aws.Int64(in.Size)
	}

	if in.ACL != "" {
		input.ACL = s3types.ObjectCannedACL(in.ACL)
	}

	out, err := c.client.PutObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("PutObject: %w", err)
	}

	return &PutObjectOutput{
		URL:  c.objectURL(in.Bucket, in.Key),
		ETag: strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

// Verify checks bucket access with HeadBucket.
func (c *s3Client) Verify(ctx context.Context, bucket string) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		return fmt.Errorf("HeadBucket s3://%s: %w", bucket, err)
	}

	return nil
}

// s3ObjectURL returns a function building the backend URL of an object.
func s3ObjectURL(endpoint, region string, pathStyle bool) func(bucket, key string) string {
	if endpoint == "" {
		host := fmt.Sprintf("s3.%s.amazonaws.com", region)

		return func(bucket, key string) string {
			if pathStyle {
				return "https://" + host + "/" + bucket + "/" + escapeKey(key)
			}

			return "https://" + bucket + "." + host + "/" + escapeKey(key)
		}
	}

	base := strings.TrimRight(endpoint, "/")

	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		pathStyle = true
	}

	return func(bucket, key string) string {
		if pathStyle {
			return base + "/" + bucket + "/" + escapeKey(key)
		}

		return u.Scheme + "://" + bucket + "." + u.Host + u.Path + "/" + escapeKey(key)
	}
}

// escapeKey escapes each segment of an object key for use in a URL path.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return strings.Join(segments, "/")
}
