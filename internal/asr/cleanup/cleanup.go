// Package cleanup post-processes raw ASR worker output: it strips
// whisper.cpp's well-known hallucinated filler phrases (artifacts of
// training on subtitled video, emitted even over silence) and collapses
// runs of an identical repeated token, a separate failure mode where the
// decoder gets stuck restating one word.
package cleanup

import (
	"strings"

	"github.com/rt-stt/rt-stt/internal/transcript/phonetic"
)

// defaultHallucinations lists phrases whisper.cpp is known to emit on
// silent or near-silent audio. Matching is phonetic/fuzzy rather than exact
// so that minor decode variants ("thanks for watching" vs "thank you for
// watching") are still caught.
var defaultHallucinations = []string{
	"thank you for watching",
	"thanks for watching",
	"please subscribe",
	"like and subscribe",
	"subtitles by the amara.org community",
	"bye",
}

// Filter removes hallucinated phrases and repeated-token runs from ASR
// output. Construct it with New; only New installs the default phrase list.
type Filter struct {
	matcher   *phonetic.Matcher
	phrases   []string
	threshold float64
}

// Option configures a Filter.
type Option func(*Filter)

// WithPhrases replaces the default hallucination phrase list.
func WithPhrases(phrases []string) Option {
	return func(f *Filter) { f.phrases = phrases }
}

// New returns a Filter using the default hallucination phrase list unless
// overridden via WithPhrases.
func New(opts ...Option) *Filter {
	f := &Filter{
		phrases:   defaultHallucinations,
		threshold: 0.92,
	}
	f.matcher = phonetic.New(phonetic.WithFuzzyThreshold(f.threshold))
	for _, o := range opts {
		o(f)
	}
	return f
}

// Clean applies hallucination removal and repeated-token collapsing to
// text, returning the cleaned result. An all-hallucination input returns an
// empty string.
func (f *Filter) Clean(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	if f.isHallucination(trimmed) {
		return ""
	}
	return collapseRepeats(trimmed)
}

// isHallucination reports whether trimmed matches a known hallucinated
// phrase closely enough, phonetically or by Jaro-Winkler similarity, to be
// discarded outright. The text and each phrase are compared whole, with
// spaces removed, so a single shared word is not enough to match.
func (f *Filter) isHallucination(trimmed string) bool {
	joined := strings.Join(strings.Fields(trimmed), "")
	for _, p := range f.phrases {
		if _, _, matched := f.matcher.Match(joined, []string{strings.ReplaceAll(p, " ", "")}); matched {
			return true
		}
	}
	return false
}

// collapseRepeats reduces any run of 3 or more consecutive identical tokens
// (case-insensitive) to a single occurrence. Shorter repeats are left
// alone since natural speech legitimately repeats a word once or twice
// ("no, no, stop").
func collapseRepeats(text string) string {
	tokens := strings.Fields(text)
	if len(tokens) < 3 {
		return text
	}

	out := make([]string, 0, len(tokens))
	runStart := 0
	for i := 1; i <= len(tokens); i++ {
		if i < len(tokens) && strings.EqualFold(tokens[i], tokens[runStart]) {
			continue
		}
		runLen := i - runStart
		if runLen >= 3 {
			out = append(out, tokens[runStart])
		} else {
			out = append(out, tokens[runStart:i]...)
		}
		runStart = i
	}
	return strings.Join(out, " ")
}
