package rates

import (
	"math"
	"testing"
	"time"

	"github.com/mkettle/metricsink/internal/metric"
)

func batchAt(ts time.Time, kind metric.SourceKind, raw float64) metric.Batch {
	return metric.Batch{
		Host:   "host1",
		Plugin: "test",
		Type:   "test",
		Time:   ts,
		Sources: []metric.Source{
			{Name: "value", Kind: kind, Raw: raw},
		},
	}
}

func TestRates_GaugePassthrough(t *testing.T) {
	tr := NewTracker()
	got := tr.Rates(batchAt(time.Now(), metric.Gauge, 21.5))
	if got[0] != 21.5 {
		t.Errorf("gauge rate = %v, want 21.5", got[0])
	}
}

func TestRates_CounterDelta(t *testing.T) {
	tr := NewTracker()
	base := time.Now()

	first := tr.Rates(batchAt(base, metric.Counter, 1000))
	if !math.IsNaN(first[0]) {
		t.Errorf("first counter rate = %v, want NaN", first[0])
	}

	second := tr.Rates(batchAt(base.Add(10*time.Second), metric.Counter, 1500))
	if second[0] != 50 {
		t.Errorf("counter rate = %v, want 50", second[0])
	}
}

func TestRates_CounterWrap32(t *testing.T) {
	tr := NewTracker()
	base := time.Now()

	tr.Rates(batchAt(base, metric.Counter, math.MaxUint32-99))
	got := tr.Rates(batchAt(base.Add(10*time.Second), metric.Counter, 100))

	// (2^32 - (2^32-100)) + 100 = 200 over 10 seconds.
	if got[0] != 20 {
		t.Errorf("wrapped counter rate = %v, want 20", got[0])
	}
}

func TestRates_DeriveMayDecrease(t *testing.T) {
	tr := NewTracker()
	base := time.Now()

	tr.Rates(batchAt(base, metric.Derive, 1000))
	got := tr.Rates(batchAt(base.Add(10*time.Second), metric.Derive, 900))
	if got[0] != -10 {
		t.Errorf("derive rate = %v, want -10", got[0])
	}
}

func TestRates_Absolute(t *testing.T) {
	tr := NewTracker()
	base := time.Now()

	first := tr.Rates(batchAt(base, metric.Absolute, 300))
	if !math.IsNaN(first[0]) {
		t.Errorf("first absolute rate = %v, want NaN", first[0])
	}

	got := tr.Rates(batchAt(base.Add(10*time.Second), metric.Absolute, 300))
	if got[0] != 30 {
		t.Errorf("absolute rate = %v, want 30", got[0])
	}
}

func TestRates_TimeGoingBackwards(t *testing.T) {
	tr := NewTracker()
	base := time.Now()

	tr.Rates(batchAt(base, metric.Counter, 1000))
	got := tr.Rates(batchAt(base.Add(-5*time.Second), metric.Counter, 1100))
	if !math.IsNaN(got[0]) {
		t.Errorf("backwards-time rate = %v, want NaN", got[0])
	}

	// The original observation must still be authoritative.
	got = tr.Rates(batchAt(base.Add(10*time.Second), metric.Counter, 1500))
	if got[0] != 50 {
		t.Errorf("rate after backwards sample = %v, want 50", got[0])
	}
}

func TestRates_IndependentSeries(t *testing.T) {
	tr := NewTracker()
	base := time.Now()

	a := batchAt(base, metric.Counter, 100)
	b := batchAt(base, metric.Counter, 100)
	b.Host = "host2"

	tr.Rates(a)
	tr.Rates(b)

	if got := tr.SeriesCount(); got != 2 {
		t.Errorf("SeriesCount() = %d, want 2", got)
	}

	a.Time = base.Add(10 * time.Second)
	a.Sources[0].Raw = 200
	got := tr.Rates(a)
	if got[0] != 10 {
		t.Errorf("rate = %v, want 10", got[0])
	}
}

func TestRates_SourceShapeChange(t *testing.T) {
	tr := NewTracker()
	base := time.Now()

	tr.Rates(batchAt(base, metric.Counter, 100))

	changed := metric.Batch{
		Host:   "host1",
		Plugin: "test",
		Type:   "test",
		Time:   base.Add(10 * time.Second),
		Sources: []metric.Source{
			{Name: "rx", Kind: metric.Counter, Raw: 200},
			{Name: "tx", Kind: metric.Counter, Raw: 300},
		},
	}
	got := tr.Rates(changed)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Errorf("rate[%d] = %v after shape change, want NaN", i, v)
		}
	}
}
