package upload

import "io"

// request is a pending put-object request.
type request struct {
	index int // Position of the asset in the input.
	asset Asset
	key   string
	body  io.ReadCloser
}

// batch accumulates requests up to a fixed capacity. It is only used by
// the goroutine running Upload.
type batch struct {
	capacity int
	reqs     []*request
}

func newBatch(capacity int) *batch {
	return &batch{
		capacity: capacity,
		reqs:     make([]*request, 0, capacity),
	}
}

// add appends r and reports whether the batch is now full.
func (b *batch) add(r *request) bool {
	b.reqs = append(b.reqs, r)

	return len(b.reqs) >= b.capacity
}

// drain returns the pending requests and empties the batch.
func (b *batch) drain() []*request {
	out := b.reqs
	b.reqs = make([]*request, 0, b.capacity)

	return out
}

func (b *batch) len() int {
	return len(b.reqs)
}

// countingReader counts bytes read from an unsized body.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}
