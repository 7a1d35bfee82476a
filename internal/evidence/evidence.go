// Package evidence turns heterogeneous raw adapter findings into canonical,
// deduplicated Evidence records.
package evidence

import (
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"exposurescan/internal/source"
	"exposurescan/internal/taxonomy"
)

// Evidence is one normalized finding linking an ingredient, a source, and a
// confidence. Immutable once created; a scan holds at most one Evidence per
// (ingredient, source) pair.
type Evidence struct {
	IngredientKey string                   `json:"ingredient_key"`
	Source        taxonomy.DetectionSource `json:"source"`
	Confidence    float64                  `json:"confidence"`
	Detail        string                   `json:"detail"`
	ObservedAt    time.Time                `json:"observed_at"`
}

// Key identifies the (ingredient, source) pair an Evidence belongs to.
type Key struct {
	IngredientKey string
	Source        taxonomy.DetectionSource
}

// KeyOf returns the pair key for an Evidence.
func KeyOf(e Evidence) Key {
	return Key{IngredientKey: e.IngredientKey, Source: e.Source}
}

// Normalizer validates raw findings and produces canonical Evidence.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer constructs a normalizer. logger may be nil.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize converts one adapter result for one (subject, ingredient,
// source) triple into zero or one Evidence. Multiple raw findings collapse
// to the single highest-confidence one (ties by most recent ObservedAt).
//
// A finding whose source is not declared for the ingredient indicates an
// adapter wired to ingredients it must never serve; it is logged and
// dropped, never surfaced to the caller.
func (n *Normalizer) Normalize(subject source.Subject, ing taxonomy.Ingredient, src taxonomy.DetectionSource, findings []source.Finding) *Evidence {
	if len(findings) == 0 {
		return nil
	}
	if !ing.DeclaresSource(src) {
		n.logger.Error("dropping evidence from undeclared source",
			"ingredient", ing.Key,
			"source", src,
			"declared", ing.Sources,
		)
		return nil
	}

	best := findings[0]
	for _, f := range findings[1:] {
		if f.Confidence > best.Confidence ||
			(f.Confidence == best.Confidence && f.ObservedAt.After(best.ObservedAt)) {
			best = f
		}
	}

	observed := best.ObservedAt
	if observed.IsZero() {
		observed = time.Now().UTC()
	}

	return &Evidence{
		IngredientKey: ing.Key,
		Source:        src,
		Confidence:    clamp01(best.Confidence),
		Detail:        redact(best.Detail, subject),
		ObservedAt:    observed,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// redact masks every raw subject identifier embedded in a detail payload.
// The first two runes stay visible so a human can still recognize which
// identifier matched. Detail is untrusted adapter output: the single
// forward pass keeps byte offsets anchored to the original string (Unicode
// lowering can change byte lengths) and never rescans emitted masks, so
// identifiers whose mask contains them cannot loop.
func redact(detail string, subject source.Subject) string {
	ids := subject.Normalized()
	if len(ids) == 0 {
		return detail
	}

	var b strings.Builder
	for i := 0; i < len(detail); {
		width := 0
		for _, id := range ids {
			if n, ok := matchFold(detail[i:], id); ok {
				b.WriteString(mask(id))
				width = n
				break
			}
		}
		if width == 0 {
			_, width = utf8.DecodeRuneInString(detail[i:])
			b.WriteString(detail[i : i+width])
		}
		i += width
	}
	return b.String()
}

func mask(id string) string {
	runes := []rune(id)
	if len(runes) <= 2 {
		return "***"
	}
	return string(runes[:2]) + "***"
}

// matchFold reports whether s starts with id under simple case folding,
// and how many bytes of s the match spans. Identifiers are already
// lower-cased; s is arbitrary text.
func matchFold(s, id string) (int, bool) {
	n := 0
	for _, want := range id {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return 0, false
		}
		if r != want && unicode.ToLower(r) != want {
			return 0, false
		}
		n += size
	}
	return n, true
}
