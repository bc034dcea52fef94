package langdetect

import (
	"sort"
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/nupi-ai/plugin-translate-local/internal/languages"
)

const (
	defaultHintPrior     = 0.15
	defaultMinConfidence = 0.5
	defaultMinMargin     = 0.1
)

// LinguaClassifier implements Classifier with lingua-go.
type LinguaClassifier struct {
	detector  lingua.LanguageDetector
	byCode    map[string]lingua.Language
	byName    map[string]lingua.Language
	hintPrior float64
	minTop    float64
	minMargin float64
}

var _ Classifier = (*LinguaClassifier)(nil)

// LinguaOption tunes a LinguaClassifier.
type LinguaOption func(*LinguaClassifier)

// WithHintPrior sets the confidence added to a hinted language before
// renormalization.
func WithHintPrior(p float64) LinguaOption {
	return func(c *LinguaClassifier) { c.hintPrior = p }
}

// WithReliability sets the minimum top confidence and the minimum margin over
// the runner-up for a reliable result.
func WithReliability(minTop, minMargin float64) LinguaOption {
	return func(c *LinguaClassifier) {
		c.minTop = minTop
		c.minMargin = minMargin
	}
}

// SupportedLinguaLanguages maps the offline language table onto lingua.
func SupportedLinguaLanguages() []lingua.Language {
	wanted := make(map[string]bool)
	for _, code := range languages.Codes() {
		wanted[code] = true
	}
	var out []lingua.Language
	for _, lang := range lingua.AllLanguages() {
		if wanted[isoCode(lang)] {
			out = append(out, lang)
		}
	}
	return out
}

// NewLinguaClassifier builds a detector over langs, or over the supported
// language table when langs is empty.
func NewLinguaClassifier(langs []lingua.Language, opts ...LinguaOption) *LinguaClassifier {
	if len(langs) == 0 {
		langs = SupportedLinguaLanguages()
	}
	c := &LinguaClassifier{
		detector:  lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
		byCode:    make(map[string]lingua.Language, len(langs)),
		byName:    make(map[string]lingua.Language, len(langs)),
		hintPrior: defaultHintPrior,
		minTop:    defaultMinConfidence,
		minMargin: defaultMinMargin,
	}
	for _, lang := range langs {
		c.byCode[isoCode(lang)] = lang
		c.byName[strings.ToLower(lang.String())] = lang
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup accepts an ISO 639-1 code or an English language name.
func (c *LinguaClassifier) Lookup(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if lang, ok := c.byCode[key]; ok {
		return isoCode(lang), true
	}
	if lang, ok := c.byName[key]; ok {
		return isoCode(lang), true
	}
	return UnknownCode, false
}

type scored struct {
	code  string
	value float64
}

// Summarize implements Classifier.
func (c *LinguaClassifier) Summarize(text string, hints Hints) Summary {
	values := c.detector.ComputeLanguageConfidenceValues(text)
	ranked := make([]scored, 0, len(values))
	total := 0.0
	for _, v := range values {
		ranked = append(ranked, scored{code: isoCode(v.Language()), value: v.Value()})
		total += v.Value()
	}

	if total > 0 && hints.Language != "" && hints.Language != UnknownCode && c.hintPrior > 0 {
		total = 0
		for i := range ranked {
			if ranked[i].code == hints.Language {
				ranked[i].value += c.hintPrior
			}
			total += ranked[i].value
		}
		for i := range ranked {
			ranked[i].value /= total
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].value > ranked[j].value })

	var summary Summary
	for i := range summary.Top {
		summary.Top[i] = Candidate{Code: UnknownCode}
		if i < len(ranked) && ranked[i].value > 0 {
			summary.Top[i] = Candidate{Code: ranked[i].code, Percent: toPercent(ranked[i].value)}
		}
	}
	if len(ranked) > 0 && ranked[0].value > 0 {
		second := 0.0
		if len(ranked) > 1 {
			second = ranked[1].value
		}
		summary.Reliable = ranked[0].value >= c.minTop && ranked[0].value-second >= c.minMargin
	}
	return summary
}

func isoCode(lang lingua.Language) string {
	if lang == lingua.Unknown {
		return UnknownCode
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
