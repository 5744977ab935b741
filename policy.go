package mockdir

import (
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
)

// ThrottleMode controls artificial delay injection on read/write
// operations.
type ThrottleMode int

const (
	// ThrottleNever disables throttling.
	ThrottleNever ThrottleMode = iota
	// ThrottleSometimes throttles a randomly chosen subset of operations.
	ThrottleSometimes
	// ThrottleAlways throttles every eligible operation.
	ThrottleAlways
)

// String returns the settings-file spelling of the mode.
func (m ThrottleMode) String() string {
	switch m {
	case ThrottleNever:
		return "never"
	case ThrottleSometimes:
		return "sometimes"
	case ThrottleAlways:
		return "always"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseThrottleMode parses a throttle mode as it appears in settings.
func ParseThrottleMode(s string) (ThrottleMode, error) {
	switch s {
	case "never":
		return ThrottleNever, nil
	case "sometimes":
		return ThrottleSometimes, nil
	case "always":
		return ThrottleAlways, nil
	default:
		return ThrottleNever, fmt.Errorf("mockdir: unknown throttle mode %q", s)
	}
}

const (
	// defaultSometimesOdds: under ThrottleSometimes, one in this many
	// eligible operations is delayed.
	defaultSometimesOdds = 10

	// maxThrottleDelay bounds the artificial delay per throttled
	// operation.
	maxThrottleDelay = 2 * time.Millisecond

	// shardDrawSpace bounds the shard-dependent construction draw.
	shardDrawSpace = 1021
)

// FaultPolicy is the immutable, seeded configuration that drives every
// fault decision. One policy is built per shard-like unit of work and
// shared (read-only, along with its random source) by every wrapper the
// owning factory produces.
//
// Defaults (any can be overridden through Settings):
//   - exception rates: 0.0 (no injection)
//   - prevent double write: true
//   - protect open file on delete: coin flip drawn from the seeded
//     source, so leak-detection sensitivity varies across runs yet is
//     reproducible for a fixed seed
//   - throttle: sometimes with probability 0.1, otherwise never
//   - crash enabled: true
type FaultPolicy struct {
	exceptionRate           float64
	exceptionRateOnOpen     float64
	throttle                ThrottleMode
	preventDoubleWrite      bool
	protectOpenFileOnDelete bool
	crashEnabled            bool

	rng DecisionSource
}

// NewFaultPolicy builds a policy for the given shard from settings and a
// seed. Construction never fails: every input has a safe default and
// malformed values fall back to it.
//
// All default draws are taken unconditionally and in a fixed order, so
// the decision stream a wrapper sees downstream depends only on the seed
// and the shard identifier, never on which overrides happen to be set.
func NewFaultPolicy(shardID string, settings Settings, seed int64) *FaultPolicy {
	// Mix the shard identifier into the master seed so directories for
	// different shards in the same run receive decorrelated fault
	// sequences. A bounded draw alone would not decorrelate: it advances
	// the generator state identically regardless of bound.
	rng := NewDecisionSource(seed ^ int64(xxh3.HashString(shardID)))
	return newFaultPolicy(shardID, settings, rng)
}

// NewFaultPolicyWithSource is NewFaultPolicy with a caller-supplied
// source, for tests that script the draws.
func NewFaultPolicyWithSource(shardID string, settings Settings, rng DecisionSource) *FaultPolicy {
	return newFaultPolicy(shardID, settings, rng)
}

func newFaultPolicy(shardID string, settings Settings, rng DecisionSource) *FaultPolicy {
	p := &FaultPolicy{rng: rng}

	p.exceptionRate = settings.GetFloat(SettingExceptionRate, 0.0)
	p.exceptionRateOnOpen = settings.GetFloat(SettingExceptionRateOnOpen, 0.0)
	p.preventDoubleWrite = settings.GetBool(SettingPreventDoubleWrite, true)
	p.protectOpenFileOnDelete = settings.GetBool(SettingNoDeleteOpenFile, rng.Float64() < 0.5)

	// One construction-time draw whose bound depends on the shard
	// identifier, mirroring the per-shard advance of the policy's
	// lineage.
	rng.Intn(int(xxh3.HashString(shardID)%shardDrawSpace) + 1)

	throttleDefault := ThrottleNever
	if rng.Float64() < 0.1 {
		throttleDefault = ThrottleSometimes
	}
	p.throttle = throttleDefault
	if settings.Has(SettingThrottle) {
		if m, err := ParseThrottleMode(settings.GetString(SettingThrottle, "")); err == nil {
			p.throttle = m
		}
	}

	p.crashEnabled = settings.GetBool(SettingCrashEnabled, true)
	return p
}

// ExceptionRate returns the steady-state injection probability.
func (p *FaultPolicy) ExceptionRate() float64 { return p.exceptionRate }

// ExceptionRateOnOpen returns the injection probability for operations
// that first establish access to a resource.
func (p *FaultPolicy) ExceptionRateOnOpen() float64 { return p.exceptionRateOnOpen }

// Throttle returns the configured throttle mode.
func (p *FaultPolicy) Throttle() ThrottleMode { return p.throttle }

// PreventDoubleWrite reports whether duplicate-write detection is on.
func (p *FaultPolicy) PreventDoubleWrite() bool { return p.preventDoubleWrite }

// ProtectOpenFileOnDelete reports whether deleting a file with open
// handles is refused.
func (p *FaultPolicy) ProtectOpenFileOnDelete() bool { return p.protectOpenFileOnDelete }

// CrashEnabled reports whether Crash delegates to the backend.
func (p *FaultPolicy) CrashEnabled() bool { return p.crashEnabled }

// Source returns the shared decision source. Exposed for the backend
// selector, which reuses the policy's randomness.
func (p *FaultPolicy) Source() DecisionSource { return p.rng }

// shouldFailOpen draws the elevated open-failure decision.
func (p *FaultPolicy) shouldFailOpen() bool {
	return p.rng.Float64() < p.exceptionRateOnOpen
}

// shouldFail draws the steady-state failure decision.
func (p *FaultPolicy) shouldFail() bool {
	return p.rng.Float64() < p.exceptionRate
}

// throttleDelay returns the bounded delay to apply before the current
// operation, or zero when it is not throttled.
func (p *FaultPolicy) throttleDelay() time.Duration {
	switch p.throttle {
	case ThrottleAlways:
	case ThrottleSometimes:
		if p.rng.Intn(defaultSometimesOdds) != 0 {
			return 0
		}
	default:
		return 0
	}
	// Strictly positive so a throttled operation is always observably
	// delayed, still bounded by maxThrottleDelay.
	return time.Duration(p.rng.Intn(int(maxThrottleDelay))) + 1
}
