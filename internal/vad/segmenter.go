package vad

import (
	"fmt"
	"math"
	"time"

	"github.com/rt-stt/rt-stt/internal/config"
	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// state is the Segmenter's internal position in the 4-state speech
// detection machine.
type state int

const (
	stateSilence state = iota
	stateSpeechMaybe
	stateSpeech
	stateSpeechEnding
)

// pcm16Scale rescales normalised [-1.0,1.0] float samples to the 16-bit PCM
// magnitude range the VAD threshold configuration is calibrated against.
const pcm16Scale = 32768.0

// Segmenter implements Detector with a 4-state energy-based state machine:
// Silence -> SpeechMaybe -> Speech -> SpeechEnding -> Silence. An adaptive
// noise floor rescales the fixed thresholds to ambient conditions when
// enabled; a pre-speech ring buffer preserves the audio immediately
// preceding a confirmed speech start so utterances do not begin mid-word.
//
// Not safe for concurrent use; the Audio Source drives one Segmenter from a
// single goroutine.
type Segmenter struct {
	cfg config.VADConfig

	state state
	floor *noiseFloor
	pre   *preBuffer

	confirmMs int
	silenceMs int

	samples    []float32
	sampleRate int
	uttStart   time.Duration
}

// New constructs a Segmenter from cfg. Returns an error if the VAD duration
// parameters are non-positive, since a zero speech_start_ms or
// speech_end_ms would make the state machine oscillate on every frame.
func New(cfg config.VADConfig) (*Segmenter, error) {
	if cfg.SpeechStartMs <= 0 {
		return nil, fmt.Errorf("vad: speech_start_ms must be positive, got %d", cfg.SpeechStartMs)
	}
	if cfg.SpeechEndMs <= 0 {
		return nil, fmt.Errorf("vad: speech_end_ms must be positive, got %d", cfg.SpeechEndMs)
	}

	minFloor := cfg.EnergyThreshold / 2
	return &Segmenter{
		cfg:   cfg,
		state: stateSilence,
		floor: newNoiseFloor(cfg.NoiseFloorAdaptationRate, minFloor),
		pre:   newPreBuffer(cfg.PreSpeechBufferMs, 30),
	}, nil
}

// Process advances the state machine by one frame.
func (s *Segmenter) Process(frame sttypes.Frame) (Event, error) {
	if len(frame.Samples) == 0 {
		return Event{}, nil
	}
	if s.sampleRate == 0 {
		s.sampleRate = frame.SampleRate
	}

	rms := rmsPCM16(frame.Samples)
	startThresh, endThresh := s.thresholds(rms, s.state == stateSilence)
	frameDurMs := frameDurationMs(frame)

	switch s.state {
	case stateSilence:
		s.pre.push(frame)
		if rms >= startThresh {
			return s.beginCandidate(frame, frameDurMs)
		}
		return Event{}, nil

	case stateSpeechMaybe:
		s.samples = append(s.samples, frame.Samples...)
		if rms >= startThresh {
			s.confirmMs += frameDurMs
			if s.confirmMs >= s.cfg.SpeechStartMs {
				s.state = stateSpeech
				return Event{Type: EventSpeechStart}, nil
			}
			return Event{}, nil
		}
		// The candidate never reached confirmation; treat it as a noise
		// burst and fall back to silence.
		s.abandonCandidate(frame)
		return Event{}, nil

	case stateSpeech:
		s.samples = append(s.samples, frame.Samples...)
		if rms < endThresh {
			s.state = stateSpeechEnding
			s.silenceMs = frameDurMs
		}
		return Event{}, nil

	case stateSpeechEnding:
		s.samples = append(s.samples, frame.Samples...)
		if rms >= endThresh {
			s.state = stateSpeech
			s.silenceMs = 0
			return Event{}, nil
		}
		s.silenceMs += frameDurMs
		if s.silenceMs >= s.cfg.SpeechEndMs {
			return s.finalize(frame)
		}
		return Event{}, nil
	}

	return Event{}, nil
}

// thresholds returns the current speech-start and speech-end energy
// thresholds. When adaptive thresholding is enabled they scale with the
// tracked noise floor; otherwise the configured energy_threshold is used
// directly for both. The floor is only updated while inSilence — folding
// speech energy into the percentile window would pull the floor upward and
// desensitize later speech detection.
func (s *Segmenter) thresholds(rms float64, inSilence bool) (start, end float64) {
	if !s.cfg.UseAdaptiveThreshold {
		return s.cfg.EnergyThreshold, s.cfg.EnergyThreshold
	}
	if inSilence {
		s.floor.update(rms)
	}
	floor := s.floor.current
	return floor * s.cfg.SpeechStartThreshold, floor * s.cfg.SpeechEndThreshold
}

// beginCandidate starts a tentative utterance, seeding it with whatever
// audio the pre-speech ring buffer accumulated during silence.
func (s *Segmenter) beginCandidate(frame sttypes.Frame, frameDurMs int) (Event, error) {
	buffered := s.pre.drain()

	var start time.Duration
	if len(buffered) > 0 {
		start = buffered[0].Timestamp
	} else {
		start = frame.Timestamp
	}

	// frame is already the last entry in buffered: it was pushed into the
	// pre-speech ring before this candidate was recognised.
	s.samples = s.samples[:0]
	for _, f := range buffered {
		s.samples = append(s.samples, f.Samples...)
	}

	s.uttStart = start
	s.confirmMs = frameDurMs
	s.state = stateSpeechMaybe
	return Event{}, nil
}

// abandonCandidate discards a tentative utterance that failed to confirm,
// returning to Silence with the triggering frame re-queued as if it were an
// ordinary silent frame.
func (s *Segmenter) abandonCandidate(frame sttypes.Frame) {
	s.samples = s.samples[:0]
	s.confirmMs = 0
	s.state = stateSilence
	s.pre.push(frame)
}

// finalize completes an utterance once trailing silence has confirmed
// speech end. Utterances shorter than min_speech_ms are discarded silently
// rather than reported, since they are more likely a transient than real
// speech.
func (s *Segmenter) finalize(frame sttypes.Frame) (Event, error) {
	end := frame.Timestamp + frameDuration(frame)
	utt := sttypes.Utterance{
		Samples:    s.samples,
		SampleRate: s.sampleRate,
		Start:      s.uttStart,
		End:        end,
	}

	s.state = stateSilence
	s.samples = nil
	s.confirmMs = 0
	s.silenceMs = 0
	s.pre.reset()

	if utt.Duration() < time.Duration(s.cfg.MinSpeechMs)*time.Millisecond {
		return Event{}, nil
	}
	return Event{Type: EventSpeechEnd, Utterance: utt}, nil
}

// Reset clears all state, discarding any in-progress utterance. Used on
// resume so stale pre-pause audio never leaks into a new utterance.
func (s *Segmenter) Reset() {
	s.state = stateSilence
	s.samples = nil
	s.confirmMs = 0
	s.silenceMs = 0
	s.floor.reset()
	s.pre.reset()
}

// rmsPCM16 computes the root-mean-square energy of normalised float32
// samples, rescaled to 16-bit PCM magnitude so it can be compared directly
// against energy_threshold-style configuration values.
func rmsPCM16(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, v := range samples {
		scaled := float64(v) * pcm16Scale
		sumSquares += scaled * scaled
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

func frameDuration(frame sttypes.Frame) time.Duration {
	if frame.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(frame.Samples)) * time.Second / time.Duration(frame.SampleRate)
}

func frameDurationMs(frame sttypes.Frame) int {
	return int(frameDuration(frame) / time.Millisecond)
}
