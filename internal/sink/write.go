package sink

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mkettle/metricsink/internal/metric"
)

// timestampLayout is the calendar form bound to the data-insert statement:
// local time at second granularity, understood by MySQL DATETIME columns.
const timestampLayout = "2006-01-02 15:04:05"

// Write persists one batch: one data row per data source, all sharing the
// batch timestamp. rates carries the pre-normalized instantaneous value for
// each source, in order; NaN stores as SQL NULL.
//
// The connection lock is held for the whole batch. Connection and timestamp
// failures abort the batch before any row is written. A source whose
// identity cannot be resolved is skipped and logged; an execution failure
// on the data insert stops the loop and surfaces to the caller, leaving the
// remaining sources unwritten. Callers get batch-level success or failure,
// not per-source status.
func (t *Target) Write(ctx context.Context, batch metric.Batch, rates []float64) error {
	if len(rates) != len(batch.Sources) {
		return fmt.Errorf("%w: %d rates for %d sources",
			ErrSourceMismatch, len(rates), len(batch.Sources))
	}

	t.connMu.Lock()
	defer t.connMu.Unlock()

	if err := t.connectLocked(ctx); err != nil {
		return err
	}

	ts, err := calendarTime(batch.Time)
	if err != nil {
		return err
	}

	for i := range batch.Sources {
		identity := batch.Identity(i)

		id, err := t.resolve(ctx, identity)
		if err != nil {
			t.logger.Warn("skipping data source",
				"target", t.cfg.Name,
				"identity", identity.Key(),
				"error", err,
			)
			continue
		}

		if _, err := t.stmtData.ExecContext(ctx, id, ts, nullableValue(rates[i])); err != nil {
			return fmt.Errorf("%w: sample for %s at %s: %w",
				ErrWriteFailed, identity.Key(), ts, err)
		}
	}

	return nil
}

// calendarTime converts a batch timestamp to local calendar time.
//
// A zero timestamp or a year outside the DATETIME range aborts the entire
// batch; per-source timestamp handling is deliberately not supported.
func calendarTime(ts time.Time) (string, error) {
	if ts.IsZero() {
		return "", fmt.Errorf("%w: zero timestamp", ErrInvalidTimestamp)
	}

	local := ts.Local()
	if year := local.Year(); year < 1 || year > 9999 {
		return "", fmt.Errorf("%w: year %d out of range", ErrInvalidTimestamp, year)
	}

	return local.Format(timestampLayout), nil
}

// nullableValue maps NaN rates to SQL NULL; the value column is nullable.
func nullableValue(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
