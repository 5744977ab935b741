package mockdir

import "sync"

// WrapperRegistry is a process-wide set of live FaultInjectingDirectory
// instances, keyed by identity. Wrappers are inserted on construction
// and never removed automatically — membership persists after close so
// teardown code can audit leaked locks and failed closes across a whole
// test run. Clear empties the set between independent runs.
type WrapperRegistry struct {
	mu       sync.Mutex
	wrappers map[*FaultInjectingDirectory]struct{}
}

// Registry is the process-wide registry populated by DirectoryFactory.
var Registry = NewWrapperRegistry()

// NewWrapperRegistry creates an empty registry.
func NewWrapperRegistry() *WrapperRegistry {
	return &WrapperRegistry{wrappers: make(map[*FaultInjectingDirectory]struct{})}
}

// Register adds a wrapper. Registering the same wrapper twice is a no-op.
func (r *WrapperRegistry) Register(w *FaultInjectingDirectory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrappers[w] = struct{}{}
}

// All returns a snapshot of the registered wrappers.
func (r *WrapperRegistry) All() []*FaultInjectingDirectory {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*FaultInjectingDirectory, 0, len(r.wrappers))
	for w := range r.wrappers {
		out = append(out, w)
	}
	return out
}

// Len returns the number of registered wrappers.
func (r *WrapperRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wrappers)
}

// Clear empties the registry. Called by the harness between independent
// test runs to prevent unbounded growth.
func (r *WrapperRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrappers = make(map[*FaultInjectingDirectory]struct{})
}
