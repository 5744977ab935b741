/*
Package mockdir provides a fault-injecting decorator for storage
directories, used to validate the resilience of indexing and storage
layers under simulated I/O failure, throttling, crash, and resource-leak
conditions.

A FaultInjectingDirectory wraps any dirstore.Directory and, on every
delegated operation, consults an immutable seeded FaultPolicy to decide
whether to fail, throttle, or proceed. All fault decisions are driven by
a single seeded random source, so an entire failure scenario is
reproducible from one seed.

# Usage

Test harnesses construct one DirectoryFactory per shard-like unit of
work, wrap their backend directories through it, run the code under
test, and then audit the process-wide Registry for leaked locks and
failed closes:

	factory := mockdir.NewDirectoryFactory("shard-0", settings, logger, seed)
	dir := factory.Wrap(backend)
	// ... exercise the code under test against dir ...
	for _, w := range mockdir.Registry.All() {
		if !w.SuccessfullyClosed() {
			t.Errorf("wrapper not closed cleanly: %v", w.CloseException())
		}
	}

# Concurrency

A FaultInjectingDirectory is safe for concurrent use by multiple
goroutines. The shared random source is thread-safe but not
linearizable; under contention the draw order is unspecified, though
any single-threaded operation sequence is fully deterministic for a
fixed seed.

Reference: Lucene MockDirectoryWrapper (org.apache.lucene.store) and
RocksDB utilities/fault_injection_fs.cc, which pioneered this style of
storage fault injection.
*/
package mockdir
