// Package errors provides structured error handling with error codes for
// the AAA delegation engine.
//
// Every failure the engine reports carries a typed ErrorCode so the
// transport layer can translate it into a user-facing response without
// string matching. Batch operations attach these errors per item; single
// operations fail the whole call.
//
// # Basic Usage
//
//	import "github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
//
//	// Create a coded error
//	err := errors.New(errors.ErrCodeSelfDelegation, "cannot delegate to self")
//
//	// Wrap a store error
//	err := errors.Wrap(dbErr, errors.ErrCodeStoreTimeout, "delegation lookup timed out")
//
//	// Inspect
//	if errors.IsCode(err, errors.ErrCodeConflict) { ... }
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
//
// # Retryability
//
// Only ErrCodeStoreTimeout is retryable; use IsRetryable to decide.
// Identity lookup failures are caller-visible but terminal for that
// input, as are all delegation and policy denials.
package errors
