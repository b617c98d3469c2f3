package reconcile

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/dbdesc/internal/orm/catalog"
)

// Error kinds. Every error returned by a run matches exactly one of them with
// errors.Is; the concrete types carry the details.
var (
	// ErrScan is matched by *ScanError
	ErrScan = errors.New("model scan failed")
	// ErrResolution is matched by *ResolutionError
	ErrResolution = errors.New("name resolution failed")
	// ErrCatalogIO is matched by *CatalogIOError
	ErrCatalogIO = errors.New("catalog I/O failed")
)

// ScanError reports a model that could not be introspected
type ScanError struct {
	Err error
}

// Error implements the error interface
func (e *ScanError) Error() string {
	return fmt.Sprintf("%v: %v", ErrScan, e.Err)
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error { return e.Err }

// Is matches ErrScan
func (e *ScanError) Is(target error) bool { return target == ErrScan }

// ResolutionError reports an entity with no derivable table or column name
type ResolutionError struct {
	Entity string
	Err    error
}

// Error implements the error interface
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%v for %s: %v", ErrResolution, e.Entity, e.Err)
}

// Unwrap returns the underlying error
func (e *ResolutionError) Unwrap() error { return e.Err }

// Is matches ErrResolution
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// CatalogIOError reports a database failure during the run
type CatalogIOError struct {
	// Op is the step that failed: connect, begin, prepare, read, add, update or commit
	Op string
	// Key is the catalog entry involved, nil for connection-level steps
	Key *catalog.Key
	// Code is the vendor error code, when the driver provides one
	Code string
	Err  error
}

func newCatalogIOError(op string, key *catalog.Key, err error) *CatalogIOError {
	return &CatalogIOError{Op: op, Key: key, Code: catalog.ErrorCode(err), Err: err}
}

// Error implements the error interface
func (e *CatalogIOError) Error() string {
	msg := fmt.Sprintf("%v during %s", ErrCatalogIO, e.Op)
	if e.Key != nil {
		msg += " of " + e.Key.String()
	}
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *CatalogIOError) Unwrap() error { return e.Err }

// Is matches ErrCatalogIO
func (e *CatalogIOError) Is(target error) bool { return target == ErrCatalogIO }
