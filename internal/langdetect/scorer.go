// Package langdetect picks the most likely language of a text from a
// statistical classifier's ranked candidates.
package langdetect

import (
	"math"
	"strings"
)

// UnknownCode is reported when the classifier cannot decide.
const UnknownCode = "un"

// Result is the outcome of one detection call.
type Result struct {
	LanguageCode      string
	IsReliable        bool
	ConfidencePercent int
}

// Candidate is one ranked language with its confidence in percent.
type Candidate struct {
	Code    string
	Percent int
}

// Summary is the classifier output for a text.
type Summary struct {
	Top      [3]Candidate
	Reliable bool
}

// Hints biases classification.
type Hints struct {
	// Language is a code returned by Classifier.Lookup, or UnknownCode.
	Language string
}

// Classifier is the statistical language identifier behind a Scorer.
type Classifier interface {
	// Lookup resolves a language name or code into the classifier's code.
	Lookup(name string) (string, bool)
	// Summarize ranks the three most likely languages of text.
	Summarize(text string, hints Hints) Summary
}

// Scorer turns classifier summaries into detection results.
type Scorer struct {
	classifier Classifier
}

// NewScorer wraps classifier.
func NewScorer(classifier Classifier) *Scorer {
	return &Scorer{classifier: classifier}
}

// Detect reports the top candidate for text. An empty or unresolvable hint
// means no hint. The candidate is returned verbatim, including UnknownCode.
func (s *Scorer) Detect(text, hint string) Result {
	hints := Hints{Language: UnknownCode}
	if h := strings.TrimSpace(hint); h != "" {
		if code, ok := s.classifier.Lookup(h); ok {
			hints.Language = code
		}
	}

	summary := s.classifier.Summarize(text, hints)
	top := summary.Top[0]
	code := top.Code
	if code == "" {
		code = UnknownCode
	}
	return Result{
		LanguageCode:      code,
		IsReliable:        summary.Reliable,
		ConfidencePercent: clampPercent(top.Percent),
	}
}

func clampPercent(p int) int {
	return max(0, min(100, p))
}

func toPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return clampPercent(int(math.Round(v * 100)))
}
