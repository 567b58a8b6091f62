package asr_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rt-stt/rt-stt/internal/asr"
	"github.com/rt-stt/rt-stt/internal/asr/mock"
	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

type fakeSource struct {
	utterances []sttypes.Utterance
	idx        int
}

func (s *fakeSource) Pop(_ context.Context) (sttypes.Utterance, bool) {
	if s.idx >= len(s.utterances) {
		return sttypes.Utterance{}, false
	}
	u := s.utterances[s.idx]
	s.idx++
	return u, true
}

type fakePublisher struct {
	results []sttypes.TranscriptionResult
}

func (p *fakePublisher) Publish(r sttypes.TranscriptionResult) {
	p.results = append(p.results, r)
}

func TestWorker_SkipsPublishWhenCleanedTextIsEmpty(t *testing.T) {
	t.Parallel()

	engine := &mock.Engine{
		Result: sttypes.TranscriptionResult{Text: "  thank you for watching  "},
	}
	source := &fakeSource{utterances: []sttypes.Utterance{
		{Samples: make([]float32, 1600), SampleRate: 16000, End: 100 * time.Millisecond},
	}}
	pub := &fakePublisher{}

	w, err := asr.NewWorker(asr.Config{Engine: engine, Source: source, Publisher: pub})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if len(pub.results) != 0 {
		t.Fatalf("expected no published result for an all-hallucination utterance, got %d", len(pub.results))
	}
	if len(engine.TranscribeCalls) != 1 {
		t.Errorf("expected 1 transcribe call, got %d", len(engine.TranscribeCalls))
	}
}

func TestWorker_ProcessesUtteranceAndPublishesCleanedText(t *testing.T) {
	t.Parallel()

	engine := &mock.Engine{
		Result: sttypes.TranscriptionResult{Text: "  hello there, how can I help  "},
	}
	source := &fakeSource{utterances: []sttypes.Utterance{
		{Samples: make([]float32, 1600), SampleRate: 16000, End: 100 * time.Millisecond},
	}}
	pub := &fakePublisher{}

	w, err := asr.NewWorker(asr.Config{Engine: engine, Source: source, Publisher: pub})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if len(pub.results) != 1 {
		t.Fatalf("expected 1 published result, got %d", len(pub.results))
	}
	if pub.results[0].Text != "hello there, how can I help" {
		t.Errorf("expected trimmed non-hallucinated text to survive cleanup, got %q", pub.results[0].Text)
	}
	if len(engine.TranscribeCalls) != 1 {
		t.Errorf("expected 1 transcribe call, got %d", len(engine.TranscribeCalls))
	}
}

func TestWorker_OpenCircuitSkipsEngine(t *testing.T) {
	t.Parallel()

	engine := &mock.Engine{TranscribeErr: errors.New("boom")}
	utterances := make([]sttypes.Utterance, 6)
	for i := range utterances {
		utterances[i] = sttypes.Utterance{Samples: make([]float32, 160), SampleRate: 16000}
	}
	source := &fakeSource{utterances: utterances}
	pub := &fakePublisher{}

	w, err := asr.NewWorker(asr.Config{
		Engine: engine, Source: source, Publisher: pub,
		MaxFailures: 2, ResetTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	// After 2 failures the breaker opens; remaining calls are rejected
	// without reaching the engine.
	if len(engine.TranscribeCalls) != 2 {
		t.Errorf("expected engine to be called exactly 2 times before the circuit opened, got %d", len(engine.TranscribeCalls))
	}

	snap := w.Stats()
	if snap.CircuitOpens == 0 {
		t.Error("expected at least one recorded circuit-open rejection")
	}
	if len(pub.results) != 0 {
		t.Errorf("expected no published results on failure, got %d", len(pub.results))
	}
}

func TestWorker_SetLanguageForwardsToEngine(t *testing.T) {
	t.Parallel()

	engine := &mock.Engine{}
	w, err := asr.NewWorker(asr.Config{
		Engine: engine, Source: &fakeSource{}, Publisher: &fakePublisher{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := w.SetLanguage("de"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engine.LanguageCalls) != 1 || engine.LanguageCalls[0] != "de" {
		t.Errorf("expected engine to receive SetLanguage(\"de\"), got %+v", engine.LanguageCalls)
	}
}
