package relogs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/SebastienMelki/relogs/internal/buffer"
)

// errTransportPanic wraps a panic recovered from Transport.Send.
var errTransportPanic = errors.New("transport panicked")

// tick is the flush timer callback.
func (c *Client) tick() {
	c.dispatch(context.Background())
}

// dispatch snapshots the buffer and starts one upload per table. It returns
// a channel closed once every upload it started has settled. An empty
// buffer starts nothing and returns a closed channel.
func (c *Client) dispatch(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	// Hold an upload slot across the snapshot so quiescence is never
	// observed between emptying the buffer and starting the uploads.
	c.uploads.Begin()
	batches := buffer.Partition(c.buffer.SnapshotAndClear())

	var wg sync.WaitGroup
	for _, batch := range batches {
		c.uploads.Begin()
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.upload(ctx, batch)
		}()
	}
	c.endUpload("snapshot")

	if len(batches) == 0 {
		close(done)
		return done
	}

	c.metrics.Flushes.Add(ctx, 1)

	go func() {
		wg.Wait()
		close(done)
	}()

	return done
}

// upload sends one batch and settles its upload slot whatever the outcome.
func (c *Client) upload(ctx context.Context, batch buffer.Batch) {
	attrs := otelmetric.WithAttributes(attribute.String("table", batch.Table))
	start := c.clock.Now()

	c.metrics.UploadsInFlight.Add(ctx, 1, attrs)
	c.metrics.BatchSize.Record(ctx, int64(len(batch.Payloads)), attrs)
	defer func() {
		c.metrics.UploadsInFlight.Add(ctx, -1, attrs)
		c.endUpload(batch.Table)
	}()

	c.logger.Debug("flushing to table",
		"table", batch.Table,
		"event_count", len(batch.Payloads),
	)

	var status int
	var err error
	var pc panics.Catcher
	pc.Try(func() {
		status, err = c.transport.Send(ctx, batch.Table, batch.Payloads)
	})
	if r := pc.Recovered(); r != nil {
		status = -1
		err = fmt.Errorf("%w: %v", errTransportPanic, r.Value)
	}

	latency := c.clock.Since(start)
	c.metrics.UploadLatency.Record(ctx, float64(latency.Milliseconds()), attrs)

	if err != nil {
		c.metrics.UploadFailures.Add(ctx, 1, attrs)
		c.logger.Warn("flushing to table failed, batch dropped",
			"table", batch.Table,
			"event_count", len(batch.Payloads),
			"status", status,
			"error", err,
		)
		return
	}

	c.logger.Info("flushing to table ended",
		"table", batch.Table,
		"event_count", len(batch.Payloads),
		"status", status,
		"latency", latency,
	)
}

func (c *Client) endUpload(table string) {
	if err := c.uploads.End(); err != nil {
		c.logger.Error("upload accounting out of balance", "table", table, "error", err)
	}
}
