package metric

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxFieldLen is the maximum length in bytes of any identity field.
// This matches the column width of the identifier table; longer values
// are rejected rather than silently truncated.
const MaxFieldLen = 64

// KeySeparator joins identity fields into a cache key. Validation rejects
// it inside field values, so serialized keys are unambiguous.
const KeySeparator = "/"

// Validation errors.
var (
	// ErrFieldTooLong indicates an identity field exceeds MaxFieldLen bytes.
	ErrFieldTooLong = errors.New("metric: field exceeds maximum length")

	// ErrFieldInvalid indicates an identity field contains the key separator.
	ErrFieldInvalid = errors.New("metric: field contains reserved separator")

	// ErrFieldMissing indicates a required identity field is empty.
	ErrFieldMissing = errors.New("metric: required field is empty")

	// ErrUnknownSourceKind indicates an unrecognised data source type string.
	ErrUnknownSourceKind = errors.New("metric: unknown data source kind")
)

// SourceKind describes how a data source's raw value is interpreted.
type SourceKind string

// SourceKind constants.
const (
	// Gauge values are instantaneous readings used as-is.
	Gauge SourceKind = "GAUGE"

	// Counter values increase monotonically and wrap at 32 or 64 bits.
	Counter SourceKind = "COUNTER"

	// Derive values are signed counters that may decrease.
	Derive SourceKind = "DERIVE"

	// Absolute values reset to zero after every read.
	Absolute SourceKind = "ABSOLUTE"
)

// ParseSourceKind converts a case-insensitive type string into a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToUpper(s) {
	case "GAUGE":
		return Gauge, nil
	case "COUNTER":
		return Counter, nil
	case "DERIVE":
		return Derive, nil
	case "ABSOLUTE":
		return Absolute, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSourceKind, s)
	}
}

// String returns the canonical upper-case representation. This is the text
// stored in the identifier table's data_source_type column.
func (k SourceKind) String() string {
	return string(k)
}

// Identity is the seven-field composite key naming one metric time series
// plus its measurement kind. The store enforces uniqueness on the first six
// fields; SourceKind is descriptive metadata stored alongside.
type Identity struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
	SourceName     string
	SourceKind     SourceKind
}

// Key serializes the identity into a deterministic cache key.
//
// The layout mirrors the plugin/type path notation used in batch logging:
// host/plugin-instance/type-instance/source. Validate guarantees no field
// contains the separator, so distinct identities never collide.
func (id Identity) Key() string {
	var b strings.Builder
	b.Grow(len(id.Host) + len(id.Plugin) + len(id.PluginInstance) +
		len(id.Type) + len(id.TypeInstance) + len(id.SourceName) + 8)

	b.WriteString(id.Host)
	b.WriteString(KeySeparator)
	b.WriteString(id.Plugin)
	if id.PluginInstance != "" {
		b.WriteString("-")
		b.WriteString(id.PluginInstance)
	}
	b.WriteString(KeySeparator)
	b.WriteString(id.Type)
	if id.TypeInstance != "" {
		b.WriteString("-")
		b.WriteString(id.TypeInstance)
	}
	b.WriteString(KeySeparator)
	b.WriteString(id.SourceName)

	return b.String()
}

// Validate checks field presence, length bounds and separator safety.
//
// Host, Plugin, Type and SourceName are required; the instance fields may
// be empty. Over-long fields are rejected, not truncated, so the store
// never sees a silently altered identity.
func (id Identity) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"host", id.Host},
		{"plugin", id.Plugin},
		{"type", id.Type},
		{"data_source_name", id.SourceName},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrFieldMissing, f.name)
		}
	}

	all := []struct {
		name  string
		value string
	}{
		{"host", id.Host},
		{"plugin", id.Plugin},
		{"plugin_instance", id.PluginInstance},
		{"type", id.Type},
		{"type_instance", id.TypeInstance},
		{"data_source_name", id.SourceName},
	}
	for _, f := range all {
		if len(f.value) > MaxFieldLen {
			return fmt.Errorf("%w: %s is %d bytes (max %d)",
				ErrFieldTooLong, f.name, len(f.value), MaxFieldLen)
		}
		if strings.Contains(f.value, KeySeparator) {
			return fmt.Errorf("%w: %s %q", ErrFieldInvalid, f.name, f.value)
		}
	}

	if _, err := ParseSourceKind(string(id.SourceKind)); err != nil {
		return err
	}

	return nil
}

// Source is one data source within a batch: a named raw reading and its kind.
type Source struct {
	Name string
	Kind SourceKind

	// Raw is the uninterpreted value as read from the collector. Rate
	// normalization turns it into an instantaneous value before writes.
	Raw float64
}

// Batch is one timestamped group of data-source samples sharing the same
// host, plugin, plugin instance, type and type instance.
type Batch struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string

	// Time is when the samples were taken, at second granularity.
	Time time.Time

	// Interval is the collection period. Informational; rate tracking
	// uses the actual elapsed time between observed samples.
	Interval time.Duration

	Sources []Source
}

// Identity assembles the full seven-field identity for data source i.
// The index must be in range; callers iterate over Sources.
func (b Batch) Identity(i int) Identity {
	return Identity{
		Host:           b.Host,
		Plugin:         b.Plugin,
		PluginInstance: b.PluginInstance,
		Type:           b.Type,
		TypeInstance:   b.TypeInstance,
		SourceName:     b.Sources[i].Name,
		SourceKind:     b.Sources[i].Kind,
	}
}

// SeriesKey serializes the batch-level identity (without a data source).
// The rate tracker uses it to group previous-value state per series.
func (b Batch) SeriesKey() string {
	var b2 strings.Builder
	b2.WriteString(b.Host)
	b2.WriteString(KeySeparator)
	b2.WriteString(b.Plugin)
	if b.PluginInstance != "" {
		b2.WriteString("-")
		b2.WriteString(b.PluginInstance)
	}
	b2.WriteString(KeySeparator)
	b2.WriteString(b.Type)
	if b.TypeInstance != "" {
		b2.WriteString("-")
		b2.WriteString(b.TypeInstance)
	}
	return b2.String()
}
