package bulk

import (
	"fmt"

	"github.com/catalogsync/backend/internal/domain/shared"
)

// ErrClaimLost is returned by progress writes made under a claim that has
// since been reclaimed or finalized
var ErrClaimLost = shared.NewDomainError("CLAIM_LOST", "Batch is no longer held by this claim")

// DecodeError means the payload is not a readable spreadsheet or has no data rows.
// It fails the whole batch.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode spreadsheet: %s: %v", e.Reason, e.Err)
	}
	return "decode spreadsheet: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ConfigurationError means remote credentials are missing or invalid.
// It fails the whole batch before any remote call.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "remote catalog not configured: " + e.Reason
}

// NormalizationError means a product group cannot become a valid product
type NormalizationError struct {
	Handle string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Handle == "" {
		return "normalize product: " + e.Reason
	}
	return fmt.Sprintf("normalize product %q: %s", e.Handle, e.Reason)
}

// PersistenceError wraps a failed local write
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
