package upload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ethpandaops/assetoor/pkg/config"
	"github.com/ethpandaops/assetoor/pkg/report"
	"github.com/ethpandaops/assetoor/pkg/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Connector provides the run's storage session.
type Connector interface {
	Connect(ctx context.Context) (storage.Client, error)
}

// Uploader uploads assets to the first configured bucket in batches of at
// most settings.Threshold() requests.
type Uploader struct {
	log      logrus.FieldLogger
	settings *config.UploadSettings
	conn     Connector
	reporter report.Reporter
	limiter  *rate.Limiter
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithLimiter throttles put requests with l, replacing the limiter derived
// from the settings.
func WithLimiter(l *rate.Limiter) Option {
	return func(u *Uploader) {
		u.limiter = l
	}
}

// NewUploader creates an Uploader. A nil reporter discards events.
func NewUploader(
	log logrus.FieldLogger,
	settings *config.UploadSettings,
	conn Connector,
	reporter report.Reporter,
	opts ...Option,
) *Uploader {
	if reporter == nil {
		reporter = report.Nop
	}

	u := &Uploader{
		log:      log.WithField("component", "uploader"),
		settings: settings,
		conn:     conn,
		reporter: reporter,
	}

	if limit := settings.RateLimit(); limit > 0 {
		u.limiter = rate.NewLimiter(rate.Limit(limit), 1)
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Upload sends every asset to storage and returns one result per asset,
// in input order. Requests are grouped into batches that are flushed as
// soon as they reach the threshold; a trailing partial batch is flushed at
// the end. Per-asset and per-batch failures are reported in the results;
// the returned error is only set when no storage session could be opened.
//
// Cancelling ctx prevents batches that have not started from running;
// their assets fail with a FlushError without being opened. Requests of a
// batch already running are allowed to finish.
func (u *Uploader) Upload(ctx context.Context, assets []Asset) ([]Result, error) {
	client, err := u.conn.Connect(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	bucket := u.settings.PrimaryBucket()

	u.reporter.Notify(report.KindStarted, report.Event{
		Bucket: bucket,
		Total:  len(assets),
	})

	var (
		results = make([]Result, len(assets))
		pending = newBatch(u.settings.Threshold())
		seq     int
	)

	flush := func() {
		if err := ctx.Err(); err != nil {
			u.abandon(bucket, seq, pending.drain(), nil, 0, results, err)

			return
		}

		seq++
		u.flush(ctx, client, bucket, seq, pending.drain(), results)
	}

	for i, asset := range assets {
		if err := ctx.Err(); err != nil {
			u.abandon(bucket, seq, pending.drain(), assets[i:], i, results, err)

			break
		}

		req, err := u.newRequest(i, asset)
		if err != nil {
			results[i] = Result{
				Asset: asset,
				Key:   req.key,
				Err:   &UploadItemError{Key: req.key, Err: err},
			}

			u.notifyResult(bucket, results[i])

			continue
		}

		if pending.add(req) {
			flush()
		}
	}

	if pending.len() > 0 {
		flush()
	}

	summary := report.Event{
		Bucket:  bucket,
		Total:   len(assets),
		Elapsed: time.Since(start),
	}

	for _, res := range results {
		if res.OK() {
			summary.Uploaded++
			summary.TotalBytes += res.Bytes
		} else {
			summary.Failed++
		}
	}

	u.reporter.Notify(report.KindCompleted, summary)

	return results, nil
}

// newRequest builds the put request for an asset and opens its body. The
// returned request always carries the object key, even on error.
func (u *Uploader) newRequest(index int, asset Asset) (*request, error) {
	req := &request{
		index: index,
		asset: asset,
		key:   ObjectKey(u.settings, asset.Path),
	}

	if strings.Trim(asset.Path, "/") == "" {
		return req, errors.New("asset has an empty path")
	}

	if asset.Open == nil {
		return req, errors.New("asset has no content")
	}

	body, err := asset.Open()
	if err != nil {
		return req, fmt.Errorf("opening asset: %w", err)
	}

	req.body = body

	return req, nil
}

// ObjectKey returns the storage key an asset path is uploaded under: the
// configured key prefix joined with the path.
func ObjectKey(settings *config.UploadSettings, p string) string {
	p = strings.TrimLeft(p, "/")

	if prefix := settings.KeyPrefix(); prefix != "" {
		return path.Join(prefix, p)
	}

	return p
}

// abandon fails work that was never started after ctx was cancelled.
// Pending requests have their bodies closed; rest holds assets that were
// never opened, starting at input index offset. Each result carries the
// sequence number its batch would have been flushed with.
func (u *Uploader) abandon(
	bucket string,
	seq int,
	reqs []*request,
	rest []Asset,
	offset int,
	results []Result,
	cause error,
) {
	threshold := u.settings.Threshold()
	pos := 0

	fail := func(index int, asset Asset, key string) {
		batch := seq + 1 + pos/threshold
		pos++

		results[index] = Result{
			Asset: asset,
			Key:   key,
			Batch: batch,
			Err:   &FlushError{Batch: batch, Err: cause},
		}

		u.notifyResult(bucket, results[index])
	}

	for _, req := range reqs {
		_ = req.body.Close()

		fail(req.index, req.asset, req.key)
	}

	for i, asset := range rest {
		fail(offset+i, asset, ObjectKey(u.settings, asset.Path))
	}

	if pos > 0 {
		u.log.WithError(cause).WithField("assets", pos).Warn("Upload cancelled, remaining assets skipped")
	}
}

// flush executes a batch and stores each request's result at its input
// index. Requests run concurrently and are resolved independently; a batch
// never holds more than threshold requests.
func (u *Uploader) flush(
	ctx context.Context,
	client storage.Client,
	bucket string,
	seq int,
	reqs []*request,
	results []Result,
) {
	keys := make([]string, 0, len(reqs))
	for _, req := range reqs {
		keys = append(keys, req.key)
	}

	u.log.WithFields(logrus.Fields{
		"batch": seq,
		"size":  len(reqs),
	}).Debug("Flushing batch")

	var g errgroup.Group

	for _, req := range reqs {
		req := req

		g.Go(func() error {
			results[req.index] = u.put(ctx, client, bucket, seq, req)

			return nil
		})
	}

	_ = g.Wait()

	for _, req := range reqs {
		u.notifyResult(bucket, results[req.index])
	}

	u.reporter.Notify(report.KindBatchFlushed, report.Event{
		Bucket: bucket,
		Batch:  seq,
		Keys:   keys,
	})
}

// put executes a single request. It always closes the request body. A
// storage client that panics or returns no output fails only this request.
func (u *Uploader) put(
	ctx context.Context,
	client storage.Client,
	bucket string,
	seq int,
	req *request,
) (res Result) {
	defer func() { _ = req.body.Close() }()

	res = Result{
		Asset: req.asset,
		Key:   req.key,
		Batch: seq,
	}

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			u.log.WithFields(logrus.Fields{
				"key":   req.key,
				"panic": r,
			}).Error("Storage client panicked")

			res.ObjectURL = ""
			res.Bytes = 0
			res.Duration = time.Since(start)
			res.Err = &UploadItemError{Key: req.key, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	// Once a batch has started, neither the limiter wait nor the request
	// observe cancellation.
	runCtx := context.WithoutCancel(ctx)

	if u.limiter != nil {
		if err := u.limiter.Wait(runCtx); err != nil {
			res.Err = &UploadItemError{Key: req.key, Err: err}

			return res
		}
	}

	in := &storage.PutObjectInput{
		Bucket:      bucket,
		Key:         req.key,
		Body:        req.body,
		Size:        req.asset.Size,
		ContentType: req.asset.ContentType,
		ACL:         u.settings.AccessPolicy(),
	}

	var counter *countingReader
	if in.Size < 0 {
		counter = &countingReader{r: req.body}
		in.Body = counter
	}

	u.log.WithFields(logrus.Fields{
		"key":    req.key,
		"bucket": bucket,
	}).Debug("Uploading file")

	out, err := client.PutObject(runCtx, in)

	res.Duration = time.Since(start)

	if err != nil {
		res.Err = &UploadItemError{Key: req.key, Err: err}

		return res
	}

	if out == nil {
		res.Err = &UploadItemError{Key: req.key, Err: errors.New("storage client returned no output")}

		return res
	}

	res.ObjectURL = out.URL
	res.Bytes = req.asset.Size

	if counter != nil {
		res.Bytes = counter.n
	}

	return res
}

func (u *Uploader) notifyResult(bucket string, res Result) {
	ev := report.Event{
		Bucket:   bucket,
		Key:      res.Key,
		URL:      res.ObjectURL,
		Err:      res.Err,
		Bytes:    res.Bytes,
		Duration: res.Duration,
		Batch:    res.Batch,
	}

	if res.OK() {
		u.reporter.Notify(report.KindItemUploaded, ev)

		return
	}

	u.reporter.Notify(report.KindItemFailed, ev)
}
