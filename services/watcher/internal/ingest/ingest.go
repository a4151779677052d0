// Package ingest batches sensor messages into deduplicated record inserts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/facilityops/sensor-dashboard/services/watcher/internal/models"
	"github.com/facilityops/sensor-dashboard/services/watcher/internal/utils"
)

// Sink is where accepted records are written; db.Writer implements it.
type Sink interface {
	UpsertDevices(ctx context.Context, devices []models.DeviceRow) error
	FetchLastRecords(ctx context.Context, keys []models.SeriesKey) (map[models.SeriesKey]models.LastRecord, error)
	InsertRecords(ctx context.Context, rows []models.RecordRow) error
}

// Options tunes batching and deduplication.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	MinInterval   time.Duration
	// DryRun logs accepted records instead of writing them. Sink may be nil.
	DryRun bool
}

// Stats counts messages through the ingester.
type Stats struct {
	Received   atomic.Int64
	Invalid    atomic.Int64
	Duplicates atomic.Int64
	Inserted   atomic.Int64
	// Dropped counts rows that arrived after Run returned.
	Dropped    atomic.Int64
}

// Ingester turns MQTT messages into record rows and flushes them in batches.
type Ingester struct {
	sink   Sink
	opts   Options
	logger *slog.Logger
	in     chan models.RecordRow
	done   chan struct{}

	// last is owned by the flushing goroutine.
	last map[models.SeriesKey]models.LastRecord

	Stats Stats
}

// New builds an ingester. A nil logger means slog.Default().
func New(sink Sink, opts Options, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &Ingester{
		sink:   sink,
		opts:   opts,
		logger: logger,
		in:     make(chan models.RecordRow, opts.BatchSize*4),
		done:   make(chan struct{}),
		last:   make(map[models.SeriesKey]models.LastRecord),
	}
}

// Handle parses one message and queues it. Invalid envelopes are logged and
// dropped. It blocks while the queue is full, and drops the row once Run has
// returned.
func (ing *Ingester) Handle(topic string, payload []byte, receivedAt time.Time) {
	ing.Stats.Received.Add(1)
	row, err := utils.ParseEnvelope(topic, payload, receivedAt)
	if err != nil {
		ing.Stats.Invalid.Add(1)
		ing.logger.Warn("dropping sensor message", "topic", topic, "error", err)
		return
	}
	select {
	case ing.in <- row:
	case <-ing.done:
		ing.Stats.Dropped.Add(1)
	}
}

// Run flushes queued rows every BatchSize rows or FlushInterval, whichever
// comes first, until ctx is done. Pending rows are flushed before returning.
// Run must be called at most once.
func (ing *Ingester) Run(ctx context.Context) error {
	defer close(ing.done)

	interval := ing.opts.FlushInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pending := make([]models.RecordRow, 0, ing.opts.BatchSize)
	flush := func(ctx context.Context) error {
		if len(pending) == 0 {
			return nil
		}
		_, err := ing.Flush(ctx, pending)
		pending = pending[:0]
		return err
	}

	for {
		select {
		case row := <-ing.in:
			pending = append(pending, row)
			if len(pending) >= ing.opts.BatchSize {
				if err := flush(ctx); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			for drained := false; !drained; {
				select {
				case row := <-ing.in:
					pending = append(pending, row)
				default:
					drained = true
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := flush(shutdownCtx); err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}

// Flush deduplicates rows against the last known record of each series and
// writes the remainder. It returns the number of rows written.
func (ing *Ingester) Flush(ctx context.Context, rows []models.RecordRow) (int, error) {
	if err := ing.loadLast(ctx, rows); err != nil {
		return 0, err
	}

	accepted := utils.FilterNewRecords(rows, ing.last, ing.opts.MinInterval)
	ing.Stats.Duplicates.Add(int64(len(rows) - len(accepted)))

	if len(accepted) == 0 {
		ing.logger.Debug("no new sensor records to insert", "candidates", len(rows))
		return 0, nil
	}

	if ing.opts.DryRun {
		for _, r := range accepted {
			ing.logger.Info("dry-run: would insert",
				"device_id", r.DeviceID,
				"sensor_type", r.SensorType,
				"ts", r.TS.Format(time.RFC3339Nano),
				"payload", r.RawPayload)
		}
		return 0, nil
	}

	if err := ing.sink.UpsertDevices(ctx, utils.BuildDeviceRows(accepted)); err != nil {
		return 0, fmt.Errorf("upsert devices: %w", err)
	}
	if err := ing.sink.InsertRecords(ctx, accepted); err != nil {
		return 0, fmt.Errorf("insert records: %w", err)
	}

	ing.Stats.Inserted.Add(int64(len(accepted)))
	ing.logger.Info("inserted sensor records", "count", len(accepted), "duplicates", len(rows)-len(accepted))
	return len(accepted), nil
}

// loadLast fetches the stored last record of series seen for the first time.
func (ing *Ingester) loadLast(ctx context.Context, rows []models.RecordRow) error {
	if ing.sink == nil {
		if ing.opts.DryRun {
			return nil
		}
		return errors.New("ingest: no sink configured")
	}

	var missing []models.SeriesKey
	for _, k := range utils.SeriesKeys(rows) {
		if _, ok := ing.last[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	found, err := ing.sink.FetchLastRecords(ctx, missing)
	if err != nil {
		return fmt.Errorf("fetch last records: %w", err)
	}
	for k, v := range found {
		ing.last[k] = v
	}
	return nil
}
