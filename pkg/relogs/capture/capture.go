// Package capture redirects the process-wide slog and std log output into a
// track callback, optionally still forwarding each record to the original
// handler. It is the relogs counterpart of patching console functions.
package capture

import (
	"io"
	"log"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Severity names used in captured records.
const (
	SeverityDebug   = "Debug"
	SeverityInfo    = "Info"
	SeverityWarning = "Warning"
	SeverityError   = "Error"
)

// Record is the payload tracked for each captured log call.
type Record struct {
	Severity       string         `json:"severity"`
	Trace          string         `json:"trace"`
	TraceArguments map[string]any `json:"traceArguments,omitempty"`
	Time           time.Time      `json:"time"`
}

// Options configures a Capture.
type Options struct {
	// MinLevel is the lowest level captured (default: slog.LevelInfo, i.e.
	// the log/info/warn/error entry points)
	MinLevel slog.Leveler

	// Suppress stops captured records from reaching the original handler
	Suppress bool
}

// Capture swaps slog.Default for a capturing logger and restores it.
// A Capture can be installed again after Restore.
type Capture struct {
	opts Options

	mu        sync.Mutex
	installed bool
	prev      *slog.Logger
	forward   slog.Handler
	logWriter io.Writer
	logFlags  int
	logPrefix string
}

// New creates an uninstalled Capture.
func New(opts Options) *Capture {
	if opts.MinLevel == nil {
		opts.MinLevel = slog.LevelInfo
	}
	return &Capture{opts: opts}
}

// Install makes slog.Default, and through it the std log package, call
// track with a Record for every record at or above MinLevel.
// Installing an installed Capture is a no-op.
func (c *Capture) Install(track func(payload any)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.installed {
		return
	}

	c.prev = slog.Default()
	c.logWriter = log.Writer()
	c.logFlags = log.Flags()
	c.logPrefix = log.Prefix()

	c.forward = c.prev.Handler()
	if isBuiltinHandler(c.forward) {
		// The builtin handler writes through the std log package, which
		// slog.SetDefault is about to point at us. Forward straight to the
		// original writer instead.
		c.forward = slog.NewTextHandler(c.logWriter, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	slog.SetDefault(slog.New(&handler{
		track:    track,
		forward:  c.forward,
		minLevel: c.opts.MinLevel,
		suppress: c.opts.Suppress,
	}))
	c.installed = true
}

// Restore puts back the slog default logger and the std log output
// captured by Install. Restoring an uninstalled Capture is a no-op.
func (c *Capture) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.installed {
		return
	}

	slog.SetDefault(c.prev)
	log.SetOutput(c.logWriter)
	log.SetFlags(c.logFlags)
	log.SetPrefix(c.logPrefix)
	c.installed = false
}

// Original returns the handler captured records are forwarded to. It is
// never captured itself and is nil before the first Install.
func (c *Capture) Original() slog.Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forward
}

// Installed reports whether the capture is active.
func (c *Capture) Installed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installed
}

// isBuiltinHandler reports whether h is slog's unexported default handler.
func isBuiltinHandler(h slog.Handler) bool {
	t := reflect.TypeOf(h)
	if t == nil || t.Kind() != reflect.Pointer {
		return false
	}
	t = t.Elem()
	return t.PkgPath() == "log/slog" && t.Name() == "defaultHandler"
}

// SeverityOf maps a slog level to a captured severity name.
func SeverityOf(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return SeverityError
	case level >= slog.LevelWarn:
		return SeverityWarning
	case level >= slog.LevelInfo:
		return SeverityInfo
	default:
		return SeverityDebug
	}
}

var _ interface {
	Install(func(any))
	Restore()
} = (*Capture)(nil)
