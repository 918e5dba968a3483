// Package relogs buffers structured telemetry events in process and ships
// them, grouped by destination table, to an ingestion backend on a timer.
//
// Track never blocks and may be called from logging hot paths. Batches are
// delivered at most once: failed uploads are logged and dropped. End stops
// the timer, flushes what is left and waits, up to FlushTimeout, for every
// upload to settle.
package relogs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/SebastienMelki/relogs/internal/buffer"
	"github.com/SebastienMelki/relogs/internal/drain"
	"github.com/SebastienMelki/relogs/internal/observability"
	"github.com/SebastienMelki/relogs/internal/scheduler"
	"github.com/SebastienMelki/relogs/internal/uploads"
	"github.com/SebastienMelki/relogs/pkg/relogs/capture"
	"github.com/SebastienMelki/relogs/pkg/relogs/transport/httptransport"
)

const meterName = "github.com/SebastienMelki/relogs"

// Client buffers events and ships them through a Transport.
type Client struct {
	config      Config
	logger      *slog.Logger
	clock       clockwork.Clock
	metrics     *observability.Metrics
	transport   Transport
	interceptor Interceptor

	buffer    *buffer.Buffer
	uploads   *uploads.Tracker
	scheduler *scheduler.Ticker

	// stateMu orders Track's append against the transition to Ended
	stateMu sync.RWMutex
	state   atomic.Int32

	endOnce sync.Once
	drained bool

	routingWarn  rate.Sometimes
	rejectedWarn rate.Sometimes
}

// New creates a client, installs log capture when configured and starts the
// flush timer. It returns a *ConfigurationError when cfg is invalid; no
// buffer or goroutine exists in that case.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Resolved before capture is installed so our own diagnostics are never
	// fed back into the buffer.
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "relogs-client")

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	meter := cfg.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	metrics, err := observability.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("relogs: create metrics: %w", err)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = httptransport.New(httptransport.Config{
			Endpoint:    cfg.IngestionEndpoint,
			WorkspaceID: cfg.WorkspaceID,
			APIKey:      cfg.APIKey,
		}, logger)
	}

	interceptor := cfg.Interceptor
	if cfg.CaptureLogs && interceptor == nil {
		interceptor = capture.New(capture.Options{Suppress: cfg.SuppressCapturedOutput})
	}

	c := &Client{
		config:       cfg,
		logger:       logger,
		clock:        clock,
		metrics:      metrics,
		transport:    transport,
		buffer:       buffer.New(),
		uploads:      &uploads.Tracker{},
		scheduler:    scheduler.NewTicker(clock, cfg.IngestInterval),
		routingWarn:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
		rejectedWarn: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}

	if cfg.CaptureLogs {
		c.interceptor = interceptor
		interceptor.Install(func(payload any) {
			c.Track(payload, cfg.DefaultTable)
		})

		// The std log package now feeds the capture handler, so a logger
		// built on the builtin slog handler would be captured too.
		if o, ok := interceptor.(interface{ Original() slog.Handler }); ok && cfg.Logger == nil {
			c.logger = slog.New(o.Original()).With("component", "relogs-client")
		}
	}

	c.logger.Info("relogs client configured", "config", cfg.logValue())

	if err := c.scheduler.Start(c.tick); err != nil {
		return nil, fmt.Errorf("relogs: start flush timer: %w", err)
	}

	return c, nil
}

// Track appends payload to the buffer for table. An empty table resolves to
// DefaultTable; when none is configured the event is kept under the empty
// table and a warning is logged. Track never blocks on I/O and is safe for
// concurrent use. Events tracked after End has finished are dropped.
func (c *Client) Track(payload any, table string) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if c.State() == Ended {
		c.metrics.EventsRejected.Add(context.Background(), 1)
		c.rejectedWarn.Do(func() {
			c.logger.Warn("event tracked after client ended, dropping", "table", table)
		})
		return
	}

	if table == "" {
		table = c.config.DefaultTable
		if table == "" {
			c.routingWarn.Do(func() {
				c.logger.Warn("no table provided and default table is not set")
			})
		}
	}

	c.buffer.Append(table, payload)
	c.metrics.EventsTracked.Add(context.Background(), 1,
		otelmetric.WithAttributes(attribute.String("table", table)))
}

// Flush ships everything buffered so far and waits until those uploads
// settle or ctx is done. Delivery failures are logged, not returned; the
// only error is ctx's. Uploads keep running after ctx is done.
func (c *Client) Flush(ctx context.Context) error {
	done := c.dispatch(context.WithoutCancel(ctx))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// End drains the client: it stops the flush timer, restores captured log
// entry points, flushes what remains and waits for quiescence for at most
// FlushTimeout (or until ctx is done). It reports whether quiescence was
// reached; anything still buffered or in flight on timeout is abandoned.
// Concurrent and repeated calls wait for and return the first result.
func (c *Client) End(ctx context.Context) bool {
	c.endOnce.Do(func() {
		c.drained = c.drain(ctx)
	})
	return c.drained
}

// Close drains the client with a background context. It always returns nil
// and exists so a Client can be used as an io.Closer.
func (c *Client) Close() error {
	c.End(context.Background())
	return nil
}

// IsIngestionCompleted reports whether nothing is buffered and no upload is
// in flight. It is false between a flush snapshot and the settlement of the
// uploads it started. While Track calls race it, a true result may be stale
// by the time it returns; once the client has Ended it is exact.
func (c *Client) IsIngestionCompleted() bool {
	// Buffer before uploads: dispatch raises the upload count before it
	// empties the buffer.
	return c.buffer.IsEmpty() && c.uploads.Idle()
}

// Buffered returns the number of events waiting for the next flush.
func (c *Client) Buffered() int {
	return c.buffer.Len()
}

// InFlight returns the number of uploads in progress.
func (c *Client) InFlight() int64 {
	return c.uploads.InFlight()
}

// State returns the client's lifecycle state.
func (c *Client) State() LifecycleState {
	return LifecycleState(c.state.Load())
}

func (c *Client) drain(ctx context.Context) bool {
	start := c.clock.Now()
	c.state.Store(int32(Draining))

	c.scheduler.Stop()

	if c.interceptor != nil {
		c.interceptor.Restore()
	}

	uploadCtx := context.WithoutCancel(ctx)
	c.dispatch(uploadCtx)

	// Events tracked while draining still go out.
	settled := func() bool {
		if !c.buffer.IsEmpty() {
			c.dispatch(uploadCtx)
		}
		return c.IsIngestionCompleted()
	}

	drain.Until(ctx, c.clock, c.config.FlushCheckInterval, c.config.FlushTimeout, settled)

	c.stateMu.Lock()
	c.state.Store(int32(Ended))
	c.stateMu.Unlock()

	// A poll can pass while a Track lands behind it. Once Ended the buffer
	// only shrinks, so the answer is taken here, with one more bounded poll
	// for anything that raced the transition.
	quiescent := c.IsIngestionCompleted()
	if !quiescent {
		if remaining := c.config.FlushTimeout - c.clock.Since(start); remaining > 0 {
			quiescent = drain.Until(ctx, c.clock, c.config.FlushCheckInterval, remaining, settled)
		}
	}

	buffered := c.buffer.Len()
	inFlight := c.uploads.InFlight()
	elapsed := c.clock.Since(start)
	c.metrics.DrainDuration.Record(uploadCtx, float64(elapsed.Milliseconds()))

	if !quiescent {
		c.metrics.DrainTimeouts.Add(uploadCtx, 1)
		c.logger.Warn("drain gave up before ingestion completed",
			"buffered", buffered,
			"in_flight", inFlight,
			"flush_timeout", c.config.FlushTimeout,
			"elapsed", elapsed,
		)
		return false
	}

	c.logger.Info("ingestion drained", "elapsed", elapsed)
	return true
}
