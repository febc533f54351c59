package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Bucket is a single named bucket entry with free-form metadata.
type Bucket struct {
	Name string
	Meta map[string]string
}

// Buckets is an ordered mapping of bucket name to bucket metadata. Order
// follows the order in which the buckets appear in the configuration
// document.
type Buckets []Bucket

// UnmarshalYAML decodes a YAML mapping while preserving key order.
func (b *Buckets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: buckets must be a mapping of name to metadata", node.Line)
	}

	out := make(Buckets, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("line %d: decoding bucket name: %w", node.Content[i].Line, err)
		}

		if _, dup := seen[name]; dup {
			return fmt.Errorf("line %d: duplicate bucket %q", node.Content[i].Line, name)
		}

		seen[name] = struct{}{}

		meta := make(map[string]string)

		value := node.Content[i+1]
		if value.Kind != yaml.ScalarNode || value.ShortTag() != "!!null" {
			if err := value.Decode(&meta); err != nil {
				return fmt.Errorf("line %d: decoding bucket %q: %w", value.Line, name, err)
			}
		}

		out = append(out, Bucket{Name: name, Meta: meta})
	}

	*b = out

	return nil
}

// MarshalYAML encodes the buckets as a mapping in order.
func (b Buckets) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, bucket := range b {
		var value yaml.Node
		if err := value.Encode(bucket.Meta); err != nil {
			return nil, fmt.Errorf("encoding bucket %q: %w", bucket.Name, err)
		}

		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: bucket.Name},
			&value,
		)
	}

	return node, nil
}

// Names returns the bucket names in order.
func (b Buckets) Names() []string {
	names := make([]string, 0, len(b))
	for _, bucket := range b {
		names = append(names, bucket.Name)
	}

	return names
}

// Lookup returns the bucket with the given name.
func (b Buckets) Lookup(name string) (Bucket, bool) {
	for _, bucket := range b {
		if bucket.Name == name {
			return bucket, true
		}
	}

	return Bucket{}, false
}

func (b Buckets) clone() Buckets {
	out := make(Buckets, 0, len(b))

	for _, bucket := range b {
		meta := make(map[string]string, len(bucket.Meta))
		for k, v := range bucket.Meta {
			meta[k] = v
		}

		out = append(out, Bucket{Name: bucket.Name, Meta: meta})
	}

	return out
}
