// Fault-injection stress harness for mockdir.
//
// The harness wraps a randomly selected backend directory in a
// FaultInjectingDirectory, hammers it from concurrent workers with
// random opens, creates, reads, writes, deletes, and lock cycles, and
// then audits the wrapper registry: every wrapper must close cleanly
// and hold no leaked locks. Injected faults are expected and counted;
// anything else fails the run and produces an artifact bundle for
// replay.
//
// Usage: go run ./cmd/faultharness [flags]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aalhour/mockdir"
	"github.com/aalhour/mockdir/dirstore"
	"github.com/aalhour/mockdir/internal/harness"
	"github.com/aalhour/mockdir/internal/logging"
)

var (
	duration     = flag.Duration("duration", 10*time.Second, "Run duration")
	numWorkers   = flag.Int("workers", 8, "Number of concurrent workers")
	numFiles     = flag.Int("files", 64, "Size of the file name space")
	seed         = flag.Int64("seed", 0, "Random seed (0 for time-based)")
	shardID      = flag.String("shard", "shard-0", "Shard identifier for policy construction")
	root         = flag.String("root", "", "Backend root path (default: temp directory)")
	artifactDir  = flag.String("artifacts", "", "Artifact output directory on failure (default: temp directory)")
	exceptionPct = flag.Float64("exception-rate", 0.01, "Steady-state injection probability")
	openPct      = flag.Float64("exception-rate-on-open", 0.02, "Open-time injection probability")
	throttle     = flag.String("throttle", "", "Throttle mode override (never, sometimes, always)")
	crash        = flag.Bool("crash", true, "Enable crash simulation mid-run")
	verbose      = flag.Bool("v", false, "Verbose output")
)

// counters aggregated across workers.
var (
	opCount       atomic.Int64
	injectedCount atomic.Int64
	busyCount     atomic.Int64
	dupCount      atomic.Int64
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("PASS: %d ops, %d injected, %d busy, %d duplicate-write\n",
		opCount.Load(), injectedCount.Load(), busyCount.Load(), dupCount.Load())
}

func run() error {
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	fmt.Printf("faultharness: seed=%d shard=%s workers=%d duration=%s\n",
		*seed, *shardID, *numWorkers, *duration)

	level := logging.LevelWarn
	if *verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewLogger(os.Stderr, level, "harness")

	settings := mockdir.Settings{
		mockdir.SettingExceptionRate:       strconv.FormatFloat(*exceptionPct, 'f', -1, 64),
		mockdir.SettingExceptionRateOnOpen: strconv.FormatFloat(*openPct, 'f', -1, 64),
		mockdir.SettingCrashEnabled:        strconv.FormatBool(*crash),
	}
	if *throttle != "" {
		settings[mockdir.SettingThrottle] = *throttle
	}

	bundle, err := harness.NewArtifactBundle(*artifactDir, "faultharness", *seed)
	if err != nil {
		return err
	}
	bundle.SetFlags(map[string]any{
		"duration": duration.String(),
		"workers":  *numWorkers,
		"files":    *numFiles,
		"shard":    *shardID,
		"settings": settings,
	})

	backendRoot := *root
	if backendRoot == "" {
		backendRoot, err = os.MkdirTemp("", "faultharness-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(backendRoot)
	}

	mockdir.Registry.Clear()
	factory := mockdir.NewDirectoryFactory(*shardID, settings, logger, *seed)
	backend, err := factory.NewBackend(backendRoot)
	if err != nil {
		return err
	}
	dir := factory.Wrap(backend)

	start := time.Now()
	runErr := stress(dir)

	if closeErr := dir.Close(); closeErr != nil && runErr == nil {
		runErr = fmt.Errorf("close: %w", closeErr)
	}
	if auditErr := audit(bundle); auditErr != nil && runErr == nil {
		runErr = auditErr
	}

	elapsed := time.Since(start)
	if runErr != nil {
		if err := bundle.RecordFailure(runErr, elapsed, backend); err != nil {
			logger.Errorf("artifact collection failed: %v", err)
		}
		return fmt.Errorf("%w (artifacts in %s)", runErr, bundle.RunDir)
	}
	return bundle.RecordSuccess(elapsed)
}

// stress runs concurrent random operations against the wrapper until the
// deadline, treating policy-injected faults as expected outcomes.
func stress(dir *mockdir.FaultInjectingDirectory) error {
	deadline := time.Now().Add(*duration)
	errCh := make(chan error, *numWorkers)
	var wg sync.WaitGroup

	for w := 0; w < *numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			// Per-worker op scheduling rand, decorrelated from the
			// policy's decision source.
			rng := rand.New(rand.NewSource(*seed + int64(workerID) + 1))
			for time.Now().Before(deadline) {
				if err := randomOp(dir, rng); err != nil {
					errCh <- fmt.Errorf("worker %d: %w", workerID, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// randomOp performs one random operation, classifying simulated faults
// as expected. Genuine not-exist errors are expected too: deletes race
// with opens by design.
func randomOp(dir *mockdir.FaultInjectingDirectory, rng *rand.Rand) error {
	opCount.Add(1)
	name := fmt.Sprintf("f%04d", rng.Intn(*numFiles))

	var err error
	switch rng.Intn(10) {
	case 0, 1, 2: // create + write + close
		var w dirstore.FileWriter
		if w, err = dir.Create(name); err == nil {
			if _, err = w.Write([]byte("payload for " + name)); err == nil && rng.Intn(2) == 0 {
				err = w.Sync()
			}
			if closeErr := w.Close(); err == nil {
				err = closeErr
			}
		}
	case 3, 4, 5: // open + read + close
		var r dirstore.FileReader
		if r, err = dir.Open(name); err == nil {
			buf := make([]byte, 16)
			if _, readErr := r.Read(buf); readErr != nil && !errors.Is(readErr, fs.ErrClosed) {
				err = readErr
			}
			if closeErr := r.Close(); err == nil {
				err = closeErr
			}
		}
	case 6: // delete
		err = dir.Remove(name)
	case 7: // list
		_, err = dir.ListAll()
	case 8: // lock cycle
		var l dirstore.Lock
		lockName := fmt.Sprintf("lock-%d", rng.Intn(4))
		if l, err = dir.MakeLock(lockName); err == nil && l != nil {
			err = dir.ClearLock(lockName)
		}
	case 9: // crash, rarely
		if rng.Intn(50) == 0 {
			err = dir.Crash()
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, mockdir.ErrInjectedIO):
		injectedCount.Add(1)
		return nil
	case errors.Is(err, mockdir.ErrResourceBusy):
		busyCount.Add(1)
		return nil
	case errors.Is(err, mockdir.ErrDuplicateWrite):
		dupCount.Add(1)
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return err
	}
}

// audit verifies every registered wrapper closed cleanly with no leaked
// locks, recording violations in the bundle's leak report.
func audit(bundle *harness.ArtifactBundle) error {
	var bad int
	for _, w := range mockdir.Registry.All() {
		if !w.SuccessfullyClosed() {
			bundle.AddLeak("wrapper not successfully closed: %v", w.CloseException())
			bad++
		}
		for _, name := range w.OpenLocks() {
			bundle.AddLeak("leaked lock: %s", name)
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("registry audit: %d violation(s)", bad)
	}
	return nil
}
