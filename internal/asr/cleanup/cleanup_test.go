package cleanup_test

import (
	"testing"

	"github.com/rt-stt/rt-stt/internal/asr/cleanup"
)

func TestFilter_StripsKnownHallucination(t *testing.T) {
	t.Parallel()
	f := cleanup.New()

	got := f.Clean("  Thanks for watching  ")
	if got != "" {
		t.Errorf("expected hallucinated phrase to be stripped, got %q", got)
	}
}

func TestFilter_LeavesRealSpeechUntouched(t *testing.T) {
	t.Parallel()
	f := cleanup.New()

	got := f.Clean("turn left at the next junction")
	if got != "turn left at the next junction" {
		t.Errorf("got %q", got)
	}
}

func TestFilter_CollapsesRepeatedTokenRuns(t *testing.T) {
	t.Parallel()
	f := cleanup.New()

	got := f.Clean("the the the quick brown fox")
	if got != "the quick brown fox" {
		t.Errorf("got %q", got)
	}
}

func TestFilter_PreservesShortNaturalRepeats(t *testing.T) {
	t.Parallel()
	f := cleanup.New()

	got := f.Clean("no no stop")
	if got != "no no stop" {
		t.Errorf("expected a 2-word repeat to survive unchanged, got %q", got)
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	t.Parallel()
	f := cleanup.New()

	if got := f.Clean("   "); got != "" {
		t.Errorf("expected empty string for blank input, got %q", got)
	}
}
