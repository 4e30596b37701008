package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mkettle/metricsink/internal/metric"
	"github.com/mkettle/metricsink/internal/rates"
)

// fakeWriter records delivered batches and optionally fails.
type fakeWriter struct {
	name    string
	failErr error

	mu      sync.Mutex
	batches []metric.Batch
	rates   [][]float64
}

func (w *fakeWriter) Name() string { return w.name }

func (w *fakeWriter) Write(_ context.Context, batch metric.Batch, normalised []float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failErr != nil {
		return w.failErr
	}
	w.batches = append(w.batches, batch)
	w.rates = append(w.rates, normalised)
	return nil
}

func (w *fakeWriter) delivered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.batches)
}

// fakeMirror records mirrored samples.
type fakeMirror struct {
	mu      sync.Mutex
	samples []string
}

func (m *fakeMirror) WriteSample(host, plugin, pluginInstance, typ, typeInstance, source string, rate float64, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, host+"/"+plugin+"/"+source)
}

func (m *fakeMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

func gaugePayload(host string, value float64) []byte {
	return []byte(fmt.Sprintf(`[{
		"values": [%s],
		"dstypes": ["gauge"],
		"dsnames": ["value"],
		"time": 1767172013,
		"interval": 10,
		"host": %q,
		"plugin": "cpu",
		"plugin_instance": "0",
		"type": "cpu",
		"type_instance": "idle"
	}]`, strconv.FormatFloat(value, 'f', -1, 64), host))
}

func TestDispatcher_DeliversToAllTargets(t *testing.T) {
	a := &fakeWriter{name: "a"}
	b := &fakeWriter{name: "b"}
	d := NewDispatcher([]Writer{a, b}, rates.NewTracker(), nil)

	err := d.HandleMessage("metrics/samples", gaugePayload("web01", 94.2))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if a.delivered() != 1 || b.delivered() != 1 {
		t.Errorf("delivered = %d, %d, want 1, 1", a.delivered(), b.delivered())
	}

	stats := d.Stats()
	if stats.BatchesWritten != 1 {
		t.Errorf("BatchesWritten = %d, want 1", stats.BatchesWritten)
	}
	if stats.BatchesFailed != 0 {
		t.Errorf("BatchesFailed = %d, want 0", stats.BatchesFailed)
	}
}

func TestDispatcher_GaugeRatePassthrough(t *testing.T) {
	a := &fakeWriter{name: "a"}
	d := NewDispatcher([]Writer{a}, rates.NewTracker(), nil)

	if err := d.HandleMessage("metrics/samples", gaugePayload("web01", 94.2)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.rates) != 1 || len(a.rates[0]) != 1 {
		t.Fatalf("rates shape = %v, want one batch with one rate", a.rates)
	}
	if a.rates[0][0] != 94.2 {
		t.Errorf("gauge rate = %v, want 94.2", a.rates[0][0])
	}
}

func TestDispatcher_OneFailingTargetDoesNotBlockOthers(t *testing.T) {
	bad := &fakeWriter{name: "bad", failErr: errors.New("database gone")}
	good := &fakeWriter{name: "good"}
	d := NewDispatcher([]Writer{bad, good}, rates.NewTracker(), nil)

	// Write failures are swallowed; redelivery would not fix a down database.
	err := d.HandleMessage("metrics/samples", gaugePayload("web01", 1))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if good.delivered() != 1 {
		t.Errorf("good target delivered = %d, want 1", good.delivered())
	}

	stats := d.Stats()
	if stats.BatchesFailed != 1 {
		t.Errorf("BatchesFailed = %d, want 1", stats.BatchesFailed)
	}
	if stats.BatchesWritten != 0 {
		t.Errorf("BatchesWritten = %d, want 0", stats.BatchesWritten)
	}
}

func TestDispatcher_DecodeFailureReturned(t *testing.T) {
	a := &fakeWriter{name: "a"}
	d := NewDispatcher([]Writer{a}, rates.NewTracker(), nil)

	err := d.HandleMessage("metrics/samples", []byte("not json"))
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("HandleMessage() error = %v, want ErrDecodeFailed", err)
	}

	if a.delivered() != 0 {
		t.Errorf("delivered = %d, want 0 after decode failure", a.delivered())
	}

	if d.Stats().DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", d.Stats().DecodeErrors)
	}
}

func TestDispatcher_MirrorsEverySample(t *testing.T) {
	a := &fakeWriter{name: "a"}
	mirror := &fakeMirror{}
	d := NewDispatcher([]Writer{a}, rates.NewTracker(), mirror)

	payload := []byte(`[{
		"values": [10, 20],
		"dstypes": ["gauge", "gauge"],
		"dsnames": ["read", "write"],
		"time": 1767172013,
		"interval": 10,
		"host": "web01",
		"plugin": "disk",
		"plugin_instance": "sda",
		"type": "disk_octets"
	}]`)

	if err := d.HandleMessage("metrics/samples", payload); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if mirror.count() != 2 {
		t.Errorf("mirrored samples = %d, want 2", mirror.count())
	}

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if mirror.samples[0] != "web01/disk/read" || mirror.samples[1] != "web01/disk/write" {
		t.Errorf("mirrored = %v, want web01/disk/read, web01/disk/write", mirror.samples)
	}
}

func TestDispatcher_MirrorEvenWhenTargetFails(t *testing.T) {
	bad := &fakeWriter{name: "bad", failErr: errors.New("database gone")}
	mirror := &fakeMirror{}
	d := NewDispatcher([]Writer{bad}, rates.NewTracker(), mirror)

	if err := d.HandleMessage("metrics/samples", gaugePayload("web01", 1)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if mirror.count() != 1 {
		t.Errorf("mirrored samples = %d, want 1", mirror.count())
	}
}

func TestDispatcher_CounterRateAcrossMessages(t *testing.T) {
	a := &fakeWriter{name: "a"}
	tracker := rates.NewTracker()
	d := NewDispatcher([]Writer{a}, tracker, nil)

	counterPayload := func(epoch int64, value uint64) []byte {
		return []byte(fmt.Sprintf(`[{
			"values": [%d],
			"dstypes": ["counter"],
			"dsnames": ["value"],
			"time": %d,
			"interval": 10,
			"host": "web01",
			"plugin": "interface",
			"plugin_instance": "eth0",
			"type": "if_octets"
		}]`, value, epoch))
	}

	if err := d.HandleMessage("metrics/samples", counterPayload(1767172000, 1000)); err != nil {
		t.Fatalf("HandleMessage() first error = %v", err)
	}
	if err := d.HandleMessage("metrics/samples", counterPayload(1767172010, 1500)); err != nil {
		t.Fatalf("HandleMessage() second error = %v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.rates) != 2 {
		t.Fatalf("delivered batches = %d, want 2", len(a.rates))
	}

	// First sample has no predecessor, so its rate is undefined.
	if !isNaN(a.rates[0][0]) {
		t.Errorf("first counter rate = %v, want NaN", a.rates[0][0])
	}

	// 500 increments over 10 seconds.
	if a.rates[1][0] != 50 {
		t.Errorf("second counter rate = %v, want 50", a.rates[1][0])
	}
}

func isNaN(v float64) bool {
	return v != v
}
