// Package upload sends assets to object storage in bounded batches,
// isolating failures per asset.
package upload

import (
	"fmt"
	"io"
	"time"
)

// Asset is a local file to upload. Path is the slash-separated path the
// asset is published under; Open returns a fresh stream of its contents.
type Asset struct {
	Path        string
	Size        int64 // -1 when unknown.
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Result is the outcome of uploading a single asset. Err is nil on success.
type Result struct {
	Asset     Asset
	Key       string
	ObjectURL string
	Err       error
	// Batch is the 1-based sequence number of the batch the asset was
	// flushed in, 0 if no request could be built for it.
	Batch    int
	Bytes    int64
	Duration time.Duration
}

// OK reports whether the upload succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// UploadItemError is the failure of a single asset's put request.
type UploadItemError struct {
	Key string
	Err error
}

func (e *UploadItemError) Error() string {
	return fmt.Sprintf("uploading %s: %v", e.Key, e.Err)
}

func (e *UploadItemError) Unwrap() error {
	return e.Err
}

// FlushError marks a request that failed because its whole batch could not
// be executed.
type FlushError struct {
	Batch int
	Err   error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flushing batch %d: %v", e.Batch, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}
