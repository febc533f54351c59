package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/fatih/color"
)

// Compile-time interface check.
var _ Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter prints human readable, colored progress lines.
type ConsoleReporter struct {
	mu    sync.Mutex
	out   io.Writer
	ok    *color.Color
	fail  *color.Color
	info  *color.Color
	faint *color.Color
}

// NewConsoleReporter creates a ConsoleReporter writing to out. Colors are
// disabled when noColor is set.
func NewConsoleReporter(out io.Writer, noColor bool) *ConsoleReporter {
	r := &ConsoleReporter{
		out:   out,
		ok:    color.New(color.FgGreen),
		fail:  color.New(color.FgRed, color.Bold),
		info:  color.New(color.FgCyan),
		faint: color.New(color.FgHiBlack),
	}

	if noColor {
		for _, c := range []*color.Color{r.ok, r.fail, r.info, r.faint} {
			c.DisableColor()
		}
	}

	return r
}

// Notify implements Reporter.
func (r *ConsoleReporter) Notify(kind Kind, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case KindStarted:
		_, _ = r.info.Fprintf(r.out, "started: uploading %d assets to %s\n", ev.Total, ev.Bucket)
	case KindItemUploaded:
		_, _ = r.ok.Fprint(r.out, "uploaded: ")
		_, _ = fmt.Fprint(r.out, ev.URL)
		_, _ = r.faint.Fprintf(r.out, " (%s)\n", units.HumanSize(float64(ev.Bytes)))
	case KindItemFailed:
		_, _ = r.fail.Fprint(r.out, "failed: ")
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", ev.Key, ev.Err)
	case KindCompleted:
		c := r.ok
		if ev.Failed > 0 {
			c = r.fail
		}

		_, _ = c.Fprintf(r.out, "completed: %d uploaded, %d failed, %s in %s\n",
			ev.Uploaded, ev.Failed,
			units.HumanSize(float64(ev.TotalBytes)), ev.Elapsed.Round(time.Millisecond))
	}
}
