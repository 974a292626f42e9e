package domain

import "errors"

// Error kinds for the collection pipeline. Callers classify failures with
// errors.Is rather than string inspection.
var (
	// ErrTransport marks a network or HTTP-level failure reaching the
	// provider. Isolated to the smallest enclosing unit and never retried.
	ErrTransport = errors.New("provider transport error")

	// ErrProviderStatus marks a well-formed response whose status field
	// signals a provider-side rejection or no data. Treated as an empty
	// result, not an error, at call sites.
	ErrProviderStatus = errors.New("provider returned failure status")

	// ErrBadRecord marks a single record that fails normalization, e.g. a
	// missing coordinate pair or a non-numeric temperature. The record is
	// dropped; its siblings continue.
	ErrBadRecord = errors.New("malformed record")

	// ErrPersistence marks a store write failure other than the benign
	// duplicate-key case.
	ErrPersistence = errors.New("persistence error")
)
