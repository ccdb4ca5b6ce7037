package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	Info("hidden")
	Debug("hidden too")
	Warn("shown", "k", "v")
	Error("failed", errors.New("boom"), "id", "cal 1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info/debug to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown k=v") {
		t.Fatalf("missing warn line in %q", out)
	}
	if !strings.Contains(out, `[ERROR] failed err=boom id="cal 1"`) {
		t.Fatalf("missing error line in %q", out)
	}
}

func TestFormatKVsIgnoresOddAndNonStringKeys(t *testing.T) {
	got := formatKVs("a", 1, 2, "b", "dangling")
	if got != " a=1" {
		t.Fatalf("formatKVs = %q", got)
	}
}
