// Package rates turns raw counter readings into instantaneous per-second
// values. The SQL sink only consumes the output; all previous-value state
// lives here.
//
// Gauges pass through unchanged. Counters and derives need the previous
// observation of the same series, so the first sample of such a source
// yields NaN (stored downstream as NULL). State is keyed by the batch-level
// series identity and, like the identifier cache, is never evicted.
package rates

import (
	"math"
	"sync"
	"time"

	"github.com/mkettle/metricsink/internal/metric"
)

// Counter wrap boundaries. A counter that appears to decrease is assumed
// to have wrapped at whichever width fits the previous value.
const (
	wrap32 = float64(1 << 32)
	wrap64 = float64(1<<63) * 2 // 2^64; exceeds the uint64 range of exact floats
)

// series holds the last observation of one metric series.
type series struct {
	time time.Time
	raw  []float64
}

// Tracker computes instantaneous rates from consecutive raw observations.
//
// All methods are safe for concurrent use from multiple goroutines.
type Tracker struct {
	mu     sync.Mutex
	series map[string]*series
}

// NewTracker creates an empty rate tracker.
func NewTracker() *Tracker {
	return &Tracker{
		series: make(map[string]*series),
	}
}

// Rates returns one instantaneous value per data source in batch order.
//
// NaN marks a source whose rate is unknowable: the first observation of a
// counter, derive or absolute source, or a non-positive elapsed time since
// the previous observation. Callers store NaN as NULL rather than dropping
// the sample.
func (tr *Tracker) Rates(batch metric.Batch) []float64 {
	key := batch.SeriesKey()
	out := make([]float64, len(batch.Sources))

	tr.mu.Lock()
	defer tr.mu.Unlock()

	prev := tr.series[key]
	if prev != nil && len(prev.raw) != len(batch.Sources) {
		// Source list changed shape; previous state is unusable.
		prev = nil
	}

	var dt float64
	if prev != nil {
		dt = batch.Time.Sub(prev.time).Seconds()
	}

	for i, src := range batch.Sources {
		switch src.Kind {
		case metric.Gauge:
			out[i] = src.Raw
		case metric.Counter:
			if prev == nil || dt <= 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = counterDiff(prev.raw[i], src.Raw) / dt
		case metric.Derive:
			if prev == nil || dt <= 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = (src.Raw - prev.raw[i]) / dt
		case metric.Absolute:
			if prev == nil || dt <= 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = src.Raw / dt
		default:
			out[i] = math.NaN()
		}
	}

	// Record the observation unless time went backwards, in which case
	// the stored state stays authoritative for the next batch.
	if prev == nil || dt > 0 {
		raw := make([]float64, len(batch.Sources))
		for i, src := range batch.Sources {
			raw[i] = src.Raw
		}
		tr.series[key] = &series{time: batch.Time, raw: raw}
	}

	return out
}

// SeriesCount returns the number of tracked series.
func (tr *Tracker) SeriesCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.series)
}

// counterDiff computes the increase of a monotonic counter, accounting for
// wraparound at 32 or 64 bits depending on the previous value's width.
func counterDiff(old, new float64) float64 {
	if new >= old {
		return new - old
	}
	if old < wrap32 {
		return (wrap32 - old) + new
	}
	return (wrap64 - old) + new
}
