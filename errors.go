package mockdir

import (
	"errors"
	"io/fs"
)

// Error kinds surfaced by the fault-injection layer. Injected failures
// are wrapped in *fs.PathError before they reach the caller, so by type
// they are indistinguishable from genuine backend I/O failures; tests
// that need to tell them apart use errors.Is against these sentinels.
var (
	// ErrInjectedIO is a synthetic I/O failure injected by policy.
	ErrInjectedIO = errors.New("mockdir: injected I/O error")

	// ErrResourceBusy simulates platforms that refuse to delete a file
	// with open handles.
	ErrResourceBusy = errors.New("mockdir: resource busy")

	// ErrDuplicateWrite simulates detection of a double-commit: creating
	// a file whose content was already finalized.
	ErrDuplicateWrite = errors.New("mockdir: duplicate write of finalized file")

	// ErrClosedDirectory is returned by any operation attempted after
	// the wrapper was closed.
	ErrClosedDirectory = errors.New("mockdir: directory already closed")
)

// pathErr gives an injected failure the same shape a real backend
// failure has.
func pathErr(op, name string, kind error) error {
	return &fs.PathError{Op: op, Path: name, Err: kind}
}
