package mockdir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSettings_Getters(t *testing.T) {
	s := Settings{
		"f":   "0.5",
		"b":   "true",
		"str": "hello",
		"bad": "not-a-number",
	}

	if got := s.GetFloat("f", 0); got != 0.5 {
		t.Errorf("GetFloat(f) = %v, want 0.5", got)
	}
	if got := s.GetFloat("missing", 0.9); got != 0.9 {
		t.Errorf("GetFloat(missing) = %v, want default 0.9", got)
	}
	if got := s.GetFloat("bad", 0.7); got != 0.7 {
		t.Errorf("GetFloat(bad) = %v, want default 0.7", got)
	}
	if !s.GetBool("b", false) {
		t.Error("GetBool(b) should be true")
	}
	if !s.GetBool("missing", true) {
		t.Error("GetBool(missing) should fall back to default")
	}
	if got := s.GetString("str", ""); got != "hello" {
		t.Errorf("GetString(str) = %q", got)
	}
	if !s.Has("f") || s.Has("missing") {
		t.Error("Has misreports key presence")
	}
}

func TestParseSettings(t *testing.T) {
	input := `
# fault injection knobs
store.mock.exception_rate = 0.1
store.mock.throttle=always

store.mock.crash_enabled = false
`
	got, err := ParseSettings(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSettings failed: %v", err)
	}
	want := Settings{
		"store.mock.exception_rate": "0.1",
		"store.mock.throttle":       "always",
		"store.mock.crash_enabled":  "false",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSettings_Malformed(t *testing.T) {
	if _, err := ParseSettings(strings.NewReader("no equals sign here")); err == nil {
		t.Error("ParseSettings should reject lines without '='")
	}
}
