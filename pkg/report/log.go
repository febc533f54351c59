package report

import (
	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"
)

// Compile-time interface check.
var _ Reporter = (*LogReporter)(nil)

// LogReporter writes progress events as structured log entries.
type LogReporter struct {
	log logrus.FieldLogger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(log logrus.FieldLogger) *LogReporter {
	return &LogReporter{log: log.WithField("component", "reporter")}
}

// Notify implements Reporter.
func (r *LogReporter) Notify(kind Kind, ev Event) {
	switch kind {
	case KindStarted:
		r.log.WithFields(logrus.Fields{
			"bucket": ev.Bucket,
			"assets": ev.Total,
		}).Info("Upload started")
	case KindItemUploaded:
		r.log.WithFields(logrus.Fields{
			"key":      ev.Key,
			"size":     units.HumanSize(float64(ev.Bytes)),
			"duration": ev.Duration,
		}).Infof("uploaded: %s", ev.URL)
	case KindItemFailed:
		r.log.WithError(ev.Err).WithField("key", ev.Key).Warn("Upload failed")
	case KindBatchFlushed:
		r.log.WithFields(logrus.Fields{
			"batch": ev.Batch,
			"size":  len(ev.Keys),
		}).Debug("Batch flushed")
	case KindCompleted:
		entry := r.log.WithFields(logrus.Fields{
			"uploaded": ev.Uploaded,
			"failed":   ev.Failed,
			"total":    ev.Total,
			"size":     units.HumanSize(float64(ev.TotalBytes)),
			"elapsed":  ev.Elapsed,
		})

		if ev.Failed > 0 {
			entry.Warn("Upload completed with failures")

			return
		}

		entry.Info("Upload completed")
	}
}
