package mockdir

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/aalhour/mockdir/dirstore"
	"github.com/aalhour/mockdir/internal/logging"
)

// FaultInjectingDirectory decorates a backend directory with
// policy-driven fault injection. It exclusively owns the backend handle
// and is responsible for closing it.
//
// Beyond injection it tracks three pieces of state for post-run audits:
// outstanding lock acquisitions (with the call site that took each lock),
// open file handles (for delete protection), and the outcome of Close.
//
// State machine: Open → Closed(success) | Closed(error); no transition
// leaves Closed. Every operation except Close and the diagnostic queries
// fails with ErrClosedDirectory once the wrapper is closed.
type FaultInjectingDirectory struct {
	backend       dirstore.Directory
	policy        *FaultPolicy
	logger        logging.Logger
	captureStacks bool

	// closeMu serializes Close end to end, so a concurrent second
	// Close waits for the first to record its outcome instead of
	// returning nil while the backend close is still in flight.
	closeMu sync.Mutex

	mu        sync.Mutex
	openLocks map[string]string   // lock name -> acquisition call site
	openFiles map[string]int      // file name -> open handle count
	finalized map[string]struct{} // names whose content was finalized
	closed    bool
	closeErr  error
}

func newFaultInjectingDirectory(backend dirstore.Directory, policy *FaultPolicy, logger logging.Logger, captureStacks bool) *FaultInjectingDirectory {
	return &FaultInjectingDirectory{
		backend:       backend,
		policy:        policy,
		logger:        logger,
		captureStacks: captureStacks,
		openLocks:     make(map[string]string),
		openFiles:     make(map[string]int),
		finalized:     make(map[string]struct{}),
	}
}

// Policy returns the shared fault policy.
func (d *FaultInjectingDirectory) Policy() *FaultPolicy { return d.policy }

func (d *FaultInjectingDirectory) checkOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosedDirectory
	}
	return nil
}

// trackHandle adjusts the open-handle count for a file name.
func (d *FaultInjectingDirectory) trackHandle(name string, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.openFiles[name] + delta
	if n <= 0 {
		delete(d.openFiles, name)
		return
	}
	d.openFiles[name] = n
}

// capture produces the diagnostic token stored per acquired lock. By
// default it is the acquiring call site; with stack capture enabled it
// is the full goroutine stack.
func (d *FaultInjectingDirectory) capture() string {
	if d.captureStacks {
		return string(debug.Stack())
	}
	// Two frames up: capture -> MakeLock -> caller.
	if _, file, line, ok := runtime.Caller(2); ok {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return "unknown call site"
}

// steadyFault applies the steady-state failure and throttle decisions
// for a read/write operation on an already-open resource.
func (d *FaultInjectingDirectory) steadyFault(op, name string) error {
	if d.policy.shouldFail() {
		return pathErr(op, name, ErrInjectedIO)
	}
	if delay := d.policy.throttleDelay(); delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

// Open opens an existing file for reading. The elevated
// ExceptionRateOnOpen applies here; reads on the returned handle use the
// steady-state rate.
func (d *FaultInjectingDirectory) Open(name string) (dirstore.FileReader, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if d.policy.shouldFailOpen() {
		return nil, pathErr("open", name, ErrInjectedIO)
	}
	r, err := d.backend.Open(name)
	if err != nil {
		return nil, err
	}
	d.trackHandle(name, +1)
	return &faultReader{dir: d, name: name, base: r}, nil
}

// Create creates a new writable file. Re-creating a name whose content
// was already finalized fails with ErrDuplicateWrite when the policy's
// double-write prevention is on; the elevated ExceptionRateOnOpen
// applies after that check so deterministic guards never consume
// randomness.
func (d *FaultInjectingDirectory) Create(name string) (dirstore.FileWriter, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if d.policy.PreventDoubleWrite() {
		d.mu.Lock()
		_, dup := d.finalized[name]
		d.mu.Unlock()
		if dup {
			return nil, pathErr("create", name, ErrDuplicateWrite)
		}
	}
	if d.policy.shouldFailOpen() {
		return nil, pathErr("create", name, ErrInjectedIO)
	}
	w, err := d.backend.Create(name)
	if err != nil {
		return nil, err
	}
	d.trackHandle(name, +1)
	return &faultWriter{dir: d, name: name, base: w}, nil
}

// Remove deletes a file. With open-file protection on, deleting a name
// with tracked open handles fails with ErrResourceBusy instead of
// delegating.
func (d *FaultInjectingDirectory) Remove(name string) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if d.policy.ProtectOpenFileOnDelete() {
		d.mu.Lock()
		busy := d.openFiles[name] > 0
		d.mu.Unlock()
		if busy {
			return pathErr("remove", name, ErrResourceBusy)
		}
	}
	if err := d.backend.Remove(name); err != nil {
		return err
	}
	// A deleted name may be created again without tripping
	// double-write detection.
	d.mu.Lock()
	delete(d.finalized, name)
	d.mu.Unlock()
	return nil
}

// ListAll lists the names of all files in the directory.
func (d *FaultInjectingDirectory) ListAll() ([]string, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	return d.backend.ListAll()
}

// Exists reports whether the named file exists. Always false once the
// wrapper is closed.
func (d *FaultInjectingDirectory) Exists(name string) bool {
	if err := d.checkOpen(); err != nil {
		return false
	}
	return d.backend.Exists(name)
}

// MakeLock delegates lock acquisition and, on success, records the
// acquiring call site keyed by name for leak tracking. Denials
// ((nil, nil) from the backend) are never recorded.
//
// The mutex spans the closed check, the delegation, and the map update
// so concurrent acquisitions of the same name cannot interleave.
func (d *FaultInjectingDirectory) MakeLock(name string) (dirstore.Lock, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosedDirectory
	}
	l, err := d.backend.MakeLock(name)
	if err != nil || l == nil {
		return l, err
	}
	d.openLocks[name] = d.capture()
	return l, nil
}

// ClearLock delegates the release and removes the leak-tracking entry
// for name in a cleanup step that runs whether or not the backend
// release succeeded, so a failed release cannot permanently mask the
// tracker.
func (d *FaultInjectingDirectory) ClearLock(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosedDirectory
	}
	defer delete(d.openLocks, name)
	return d.backend.ClearLock(name)
}

// Crash delegates crash simulation to the backend when the policy
// enables it, and is a no-op otherwise — a suite can disable chaotic
// corruption while keeping exception and throttle injection.
func (d *FaultInjectingDirectory) Crash() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if !d.policy.CrashEnabled() {
		return nil
	}
	return d.backend.Crash()
}

// Close reports every still-held lock (a leak in the code under test),
// then closes the backend exactly once. A backend close failure is
// recorded for later audit and returned. Close is idempotent at the
// bookkeeping level: subsequent and concurrent calls return the first
// call's recorded outcome without touching the backend again.
func (d *FaultInjectingDirectory) Close() error {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()

	d.mu.Lock()
	if d.closed {
		err := d.closeErr
		d.mu.Unlock()
		return err
	}
	d.closed = true
	leaked := make([]string, 0, len(d.openLocks))
	for name := range d.openLocks {
		leaked = append(leaked, name)
	}
	sort.Strings(leaked)
	captures := make([]string, len(leaked))
	for i, name := range leaked {
		captures[i] = d.openLocks[name]
	}
	d.mu.Unlock()

	for i, name := range leaked {
		d.logger.Warnf("lock %q still held at close, acquired at %s", name, captures[i])
	}

	err := d.backend.Close()
	if err != nil {
		d.logger.Errorf("backend close failed: %v", err)
		d.mu.Lock()
		d.closeErr = err
		d.mu.Unlock()
		return err
	}
	return nil
}

// SuccessfullyClosed reports whether the wrapper is closed and the
// backend close succeeded. Usable after Close (diagnostic query).
// Waits out an in-flight Close so the answer reflects its outcome.
func (d *FaultInjectingDirectory) SuccessfullyClosed() bool {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed && d.closeErr == nil
}

// CloseException returns the recorded backend close error, or nil.
// Usable after Close (diagnostic query). Waits out an in-flight Close
// so the answer reflects its outcome.
func (d *FaultInjectingDirectory) CloseException() error {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeErr
}

// OpenLocks returns the sorted names of locks acquired and not yet
// released. Usable after Close (diagnostic query).
func (d *FaultInjectingDirectory) OpenLocks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.openLocks))
	for name := range d.openLocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// faultReader applies steady-state injection and throttling to every
// read on an open handle.
type faultReader struct {
	dir  *FaultInjectingDirectory
	name string
	base dirstore.FileReader

	closeOnce sync.Once
	closeErr  error
}

func (r *faultReader) Read(p []byte) (int, error) {
	if err := r.dir.steadyFault("read", r.name); err != nil {
		return 0, err
	}
	return r.base.Read(p)
}

func (r *faultReader) ReadAt(p []byte, off int64) (int, error) {
	if err := r.dir.steadyFault("read", r.name); err != nil {
		return 0, err
	}
	return r.base.ReadAt(p, off)
}

func (r *faultReader) Size() int64 { return r.base.Size() }

func (r *faultReader) Close() error {
	r.closeOnce.Do(func() {
		r.dir.trackHandle(r.name, -1)
		r.closeErr = r.base.Close()
	})
	return r.closeErr
}

// faultWriter applies steady-state injection and throttling to every
// write and sync on an open handle; a successful Close finalizes the
// name for double-write detection.
type faultWriter struct {
	dir  *FaultInjectingDirectory
	name string
	base dirstore.FileWriter

	closeOnce sync.Once
	closeErr  error
}

func (w *faultWriter) Write(p []byte) (int, error) {
	if err := w.dir.steadyFault("write", w.name); err != nil {
		return 0, err
	}
	return w.base.Write(p)
}

func (w *faultWriter) Sync() error {
	if err := w.dir.steadyFault("sync", w.name); err != nil {
		return err
	}
	return w.base.Sync()
}

func (w *faultWriter) Close() error {
	w.closeOnce.Do(func() {
		w.dir.trackHandle(w.name, -1)
		w.closeErr = w.base.Close()
		if w.closeErr == nil {
			w.dir.mu.Lock()
			w.dir.finalized[w.name] = struct{}{}
			w.dir.mu.Unlock()
		}
	})
	return w.closeErr
}
