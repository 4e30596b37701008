package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkettle/metricsink/internal/metric"
)

// writeTimeout bounds how long one payload may spend in sink writes.
const writeTimeout = 30 * time.Second

// Writer is the sink interface the dispatcher delivers batches to.
// *sink.Target satisfies it.
type Writer interface {
	Name() string
	Write(ctx context.Context, batch metric.Batch, rates []float64) error
}

// Mirror receives a best-effort copy of every normalised sample.
// *influxdb.Client satisfies it.
type Mirror interface {
	WriteSample(host, plugin, pluginInstance, typ, typeInstance, source string, rate float64, ts time.Time)
}

// RateSource converts a batch's raw values into instantaneous rates.
// *rates.Tracker satisfies it.
type RateSource interface {
	Rates(batch metric.Batch) []float64
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is set.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher decodes inbound payloads and fans each batch out to every
// configured sink target, with optional time-series mirroring.
//
// Thread Safety:
//   - HandleMessage is safe for concurrent use; the paho library invokes
//     handlers from multiple goroutines.
type Dispatcher struct {
	targets []Writer
	rates   RateSource
	mirror  Mirror

	logger   Logger
	loggerMu sync.RWMutex

	// Counters, accessed atomically.
	batchesWritten uint64
	batchesFailed  uint64
	decodeErrors   uint64
}

// NewDispatcher creates a dispatcher delivering to the given targets.
//
// mirror may be nil, in which case no time-series copy is written.
func NewDispatcher(targets []Writer, rates RateSource, mirror Mirror) *Dispatcher {
	return &Dispatcher{
		targets: targets,
		rates:   rates,
		mirror:  mirror,
		logger:  noopLogger{},
	}
}

// SetLogger replaces the dispatcher's logger. Pass nil to silence it.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.loggerMu.Lock()
	defer d.loggerMu.Unlock()
	if logger == nil {
		d.logger = noopLogger{}
		return
	}
	d.logger = logger
}

func (d *Dispatcher) getLogger() Logger {
	d.loggerMu.RLock()
	defer d.loggerMu.RUnlock()
	return d.logger
}

// HandleMessage processes one inbound MQTT payload.
//
// The signature matches the MQTT client's MessageHandler, so it can be
// passed directly to Subscribe. A decode failure rejects the payload and
// is returned for the transport layer to log. Sink write failures are
// logged per target and never fail the message: redelivery would not fix
// a down database, and the remaining targets already have the data.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) error {
	batches, err := DecodeBatches(payload)
	if err != nil {
		atomic.AddUint64(&d.decodeErrors, 1)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	logger := d.getLogger()
	for _, batch := range batches {
		normalised := d.rates.Rates(batch)

		failed := false
		for _, target := range d.targets {
			if err := target.Write(ctx, batch, normalised); err != nil {
				failed = true
				logger.Error("sink write failed",
					"target", target.Name(),
					"series", batch.SeriesKey(),
					"error", err,
				)
			}
		}
		if failed {
			atomic.AddUint64(&d.batchesFailed, 1)
		} else {
			atomic.AddUint64(&d.batchesWritten, 1)
		}

		d.mirrorBatch(batch, normalised)
	}

	return nil
}

// mirrorBatch copies each normalised sample to the time-series mirror.
func (d *Dispatcher) mirrorBatch(batch metric.Batch, normalised []float64) {
	if d.mirror == nil {
		return
	}
	for i, src := range batch.Sources {
		d.mirror.WriteSample(
			batch.Host,
			batch.Plugin,
			batch.PluginInstance,
			batch.Type,
			batch.TypeInstance,
			src.Name,
			normalised[i],
			batch.Time,
		)
	}
}

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	// BatchesWritten counts batches accepted by every target.
	BatchesWritten uint64

	// BatchesFailed counts batches rejected by at least one target.
	BatchesFailed uint64

	// DecodeErrors counts payloads that failed to decode.
	DecodeErrors uint64
}

// Stats returns current dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		BatchesWritten: atomic.LoadUint64(&d.batchesWritten),
		BatchesFailed:  atomic.LoadUint64(&d.batchesFailed),
		DecodeErrors:   atomic.LoadUint64(&d.decodeErrors),
	}
}
