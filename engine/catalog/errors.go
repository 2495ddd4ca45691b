package catalog

import (
	"errors"
	"fmt"
)

// ErrCatalogLoad is matched by every error returned from Load and the
// snapshot decoders. The process must not serve without a catalog.
var ErrCatalogLoad = errors.New("catalog load failed")

// LoadError describes why a snapshot was rejected.
type LoadError struct {
	Index  int // record position in the snapshot, -1 for document-level problems
	Field  string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Index < 0 {
		return fmt.Sprintf("catalog: %s", msg)
	}
	if e.Field == "" {
		return fmt.Sprintf("catalog: record %d: %s", e.Index, msg)
	}
	return fmt.Sprintf("catalog: record %d: %s: %s", e.Index, e.Field, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes every LoadError match ErrCatalogLoad.
func (e *LoadError) Is(target error) bool { return target == ErrCatalogLoad }

func docError(reason string, err error) *LoadError {
	return &LoadError{Index: -1, Reason: reason, Err: err}
}

func fieldError(i int, field, reason string) *LoadError {
	return &LoadError{Index: i, Field: field, Reason: reason}
}
