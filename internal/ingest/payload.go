package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mkettle/metricsink/internal/metric"
)

// Decode errors.
var (
	// ErrEmptyPayload indicates a payload with no value lists.
	ErrEmptyPayload = errors.New("ingest: payload contains no value lists")

	// ErrDecodeFailed indicates the payload is not valid JSON or does not
	// match the expected value list shape.
	ErrDecodeFailed = errors.New("ingest: payload decode failed")

	// ErrSourceShape indicates values, dstypes and dsnames disagree in length.
	ErrSourceShape = errors.New("ingest: values, dstypes and dsnames must have equal length")
)

// valueList is the wire shape of one sample group.
//
// Example:
//
//	{"values":[197141504,175136768],
//	 "dstypes":["counter","counter"],
//	 "dsnames":["read","write"],
//	 "time":1251533299.265,
//	 "interval":10,
//	 "host":"leeloo",
//	 "plugin":"disk",
//	 "plugin_instance":"sda",
//	 "type":"disk_octets",
//	 "type_instance":""}
type valueList struct {
	Values         []float64 `json:"values"`
	DSTypes        []string  `json:"dstypes"`
	DSNames        []string  `json:"dsnames"`
	Time           float64   `json:"time"`
	Interval       float64   `json:"interval"`
	Host           string    `json:"host"`
	Plugin         string    `json:"plugin"`
	PluginInstance string    `json:"plugin_instance"`
	Type           string    `json:"type"`
	TypeInstance   string    `json:"type_instance"`
}

// DecodeBatches parses a JSON payload of value lists into batches.
//
// The whole payload is rejected on the first malformed value list: a
// shape mismatch or unknown data source type means the collector and
// sink disagree about the format, and partial acceptance would hide it.
func DecodeBatches(payload []byte) ([]metric.Batch, error) {
	var lists []valueList
	if err := json.Unmarshal(payload, &lists); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if len(lists) == 0 {
		return nil, ErrEmptyPayload
	}

	batches := make([]metric.Batch, 0, len(lists))
	for i, vl := range lists {
		batch, err := vl.toBatch()
		if err != nil {
			return nil, fmt.Errorf("value list %d: %w", i, err)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// toBatch converts one wire value list into a batch.
func (vl valueList) toBatch() (metric.Batch, error) {
	n := len(vl.Values)
	if n == 0 {
		return metric.Batch{}, fmt.Errorf("%w: no values", ErrDecodeFailed)
	}
	if len(vl.DSTypes) != n || len(vl.DSNames) != n {
		return metric.Batch{}, fmt.Errorf("%w: %d values, %d dstypes, %d dsnames",
			ErrSourceShape, n, len(vl.DSTypes), len(vl.DSNames))
	}

	sources := make([]metric.Source, n)
	for i := 0; i < n; i++ {
		kind, err := metric.ParseSourceKind(vl.DSTypes[i])
		if err != nil {
			return metric.Batch{}, err
		}
		sources[i] = metric.Source{
			Name: vl.DSNames[i],
			Kind: kind,
			Raw:  vl.Values[i],
		}
	}

	return metric.Batch{
		Host:           vl.Host,
		Plugin:         vl.Plugin,
		PluginInstance: vl.PluginInstance,
		Type:           vl.Type,
		TypeInstance:   vl.TypeInstance,
		Time:           epochToTime(vl.Time),
		Interval:       time.Duration(vl.Interval * float64(time.Second)),
		Sources:        sources,
	}, nil
}

// epochToTime converts fractional epoch seconds to a time.Time.
// A zero or negative epoch yields the zero time, which the write path
// rejects as an invalid timestamp.
func epochToTime(epoch float64) time.Time {
	if epoch <= 0 || math.IsNaN(epoch) {
		return time.Time{}
	}
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
