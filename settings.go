package mockdir

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Setting keys understood by NewFaultPolicy and the backend selector.
// All are optional; defaults are documented on FaultPolicy.
const (
	// SettingExceptionRate is the steady-state injection probability for
	// read/write operations on open resources (float in [0,1]).
	SettingExceptionRate = "store.mock.exception_rate"

	// SettingExceptionRateOnOpen is the injection probability for
	// operations that first establish access to a resource (float in [0,1]).
	SettingExceptionRateOnOpen = "store.mock.exception_rate_on_open"

	// SettingThrottle selects the throttle mode: never, sometimes, always.
	SettingThrottle = "store.mock.throttle"

	// SettingPreventDoubleWrite toggles duplicate-write detection (bool).
	SettingPreventDoubleWrite = "store.mock.prevent_double_write"

	// SettingNoDeleteOpenFile toggles open-file-on-delete protection (bool).
	SettingNoDeleteOpenFile = "store.mock.no_delete_open_file"

	// SettingCrashEnabled toggles crash simulation delegation (bool).
	SettingCrashEnabled = "store.mock.crash_enabled"

	// SettingCompression selects the codec for in-memory backends
	// (none, snappy, lz4, zstd).
	SettingCompression = "store.mock.compression"
)

// Settings is a flat set of named configuration overrides. A missing key
// means "use the default"; every getter takes the default to fall back to.
type Settings map[string]string

// Has reports whether the key is explicitly set.
func (s Settings) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// GetString returns the value for key, or def when unset.
func (s Settings) GetString(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// GetFloat returns the float value for key, or def when unset or malformed.
func (s Settings) GetFloat(key string, def float64) float64 {
	v, ok := s[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool returns the bool value for key, or def when unset or malformed.
func (s Settings) GetBool(key string, def bool) bool {
	v, ok := s[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// ParseSettings reads key=value lines from r. Blank lines and lines
// starting with '#' are skipped.
func ParseSettings(r io.Reader) (Settings, error) {
	s := make(Settings)
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("mockdir: settings line %d: expected key=value, got %q", lineno, line)
		}
		s[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
