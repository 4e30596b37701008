package sink

import "errors"

// Sentinel errors for sink operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, sink.ErrConnectionFailed) {
//	    // Target unreachable; batch was not written
//	}
var (
	// ErrConnectionFailed indicates connecting to the store or preparing
	// its statements failed. The target is left fully disconnected.
	ErrConnectionFailed = errors.New("sink: connection failed")

	// ErrInvalidTimestamp indicates a batch timestamp could not be
	// converted to calendar time. The whole batch is aborted.
	ErrInvalidTimestamp = errors.New("sink: invalid timestamp")

	// ErrWriteFailed indicates executing the data-insert statement failed.
	// Remaining data sources in the batch are not attempted.
	ErrWriteFailed = errors.New("sink: write failed")

	// ErrIdentifierCardinality indicates the identifier select returned
	// more than one row, or the identifier insert affected a row count
	// other than one. Either way the uniqueness invariant is in doubt and
	// resolution aborts rather than guessing.
	ErrIdentifierCardinality = errors.New("sink: identifier cardinality violation")

	// ErrNullIdentifierID indicates the identifier select returned a NULL
	// id. Unreachable with the expected schema (id is NOT NULL), but
	// checked so a broken schema fails loudly instead of writing garbage.
	ErrNullIdentifierID = errors.New("sink: identifier id is null")

	// ErrSourceMismatch indicates the rate slice length does not match the
	// batch's data source count.
	ErrSourceMismatch = errors.New("sink: rate count does not match data sources")
)
