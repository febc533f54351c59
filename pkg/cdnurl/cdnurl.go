// Package cdnurl derives the public address of uploaded assets.
package cdnurl

import (
	"strings"

	"github.com/ethpandaops/assetoor/pkg/config"
)

// Compose returns the public URL of path in bucket using the protocol and
// domain from settings: protocol://bucket.domain/path.
func Compose(settings *config.UploadSettings, bucket, path string) string {
	return ComposeParts(settings.Protocol(), settings.Domain(), bucket, path)
}

// ComposeParts normalizes protocol and domain and joins them with bucket
// and path. Trailing "/" and ":" are stripped from protocol and trailing
// "/" from domain so separators are never duplicated.
func ComposeParts(protocol, domain, bucket, path string) string {
	var b strings.Builder

	b.Grow(len(protocol) + len(domain) + len(bucket) + len(path) + 5)
	b.WriteString(strings.TrimRight(protocol, "/:"))
	b.WriteString("://")
	b.WriteString(bucket)
	b.WriteString(".")
	b.WriteString(strings.TrimRight(domain, "/"))
	b.WriteString("/")
	b.WriteString(strings.TrimLeft(path, "/"))

	return b.String()
}
