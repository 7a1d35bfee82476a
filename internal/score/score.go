// Package score computes category subscores and the overall Digital
// Vulnerability Score from gathered evidence. It is pure domain logic:
// no I/O, no side effects, deterministic for a given input.
package score

import (
	"sort"
	"time"

	"exposurescan/internal/evidence"
	"exposurescan/internal/report"
	"exposurescan/internal/taxonomy"
)

// Policy carries the weighting scheme. The business weighting is not carved
// in stone, so deployments can override both tables; DefaultPolicy supplies
// the shipped defaults.
type Policy struct {
	// SourceReliability weighs evidence by channel: breach-database hits
	// are ground truth, web and social inference is probabilistic.
	SourceReliability map[taxonomy.DetectionSource]float64

	// CategorySeverity weighs category subscores in the overall DVS.
	// Categories absent from the map weigh defaultSeverity.
	CategorySeverity map[string]float64
}

const defaultSeverity = 1.0

// DefaultPolicy returns the shipped weighting scheme.
func DefaultPolicy() Policy {
	return Policy{
		SourceReliability: map[taxonomy.DetectionSource]float64{
			taxonomy.SourceBreach:       1.0,
			taxonomy.SourceDarkWeb:      0.9,
			taxonomy.SourceWebSearch:    0.7,
			taxonomy.SourceSocialSearch: 0.6,
		},
		CategorySeverity: map[string]float64{
			taxonomy.CategoryFinancial:    1.5,
			taxonomy.CategoryIdentity:     1.4,
			taxonomy.CategoryProfessional: 1.1,
		},
	}
}

func (p Policy) reliability(src taxonomy.DetectionSource) float64 {
	if w, ok := p.SourceReliability[src]; ok {
		return w
	}
	return defaultSeverity
}

func (p Policy) severity(categoryKey string) float64 {
	if w, ok := p.CategorySeverity[categoryKey]; ok {
		return w
	}
	return defaultSeverity
}

// FailureMap records which (ingredient, source) work items failed, by
// failure kind, as collected by the scheduler.
type FailureMap map[evidence.Key]string

// Input is everything one scoring pass needs.
type Input struct {
	Snapshot    *taxonomy.Snapshot
	Categories  []taxonomy.Category // categories actually scanned
	Evidence    *evidence.Set
	Failures    FailureMap
	Fingerprint string
	ReportID    string
	GeneratedAt time.Time
}

// Build rolls the gathered evidence up into an ExposureReport.
//
// Per ingredient, a match is at least one Evidence record; its contribution
// is confidence × source reliability, capped at 1. Category status:
// EXPOSED on any match; UNKNOWN when nothing matched and no source
// returned a confirmed clean result; CLEAR otherwise. UNKNOWN categories
// are excluded from the DVS weighted mean rather than counted as zero, so
// source outages never lower a subject's apparent exposure.
func Build(p Policy, in Input) *report.ExposureReport {
	out := &report.ExposureReport{
		ID:                 in.ReportID,
		SubjectFingerprint: in.Fingerprint,
		TaxonomyVersion:    in.Snapshot.Version(),
		GeneratedAt:        in.GeneratedAt,
		Categories:         make([]report.CategoryResult, 0, len(in.Categories)),
	}

	var weightedSum, severitySum float64

	for _, cat := range in.Categories {
		result := buildCategory(p, cat, in.Evidence, in.Failures)
		out.Categories = append(out.Categories, result)

		if result.Status == report.StatusUnknown {
			continue
		}
		sev := p.severity(cat.Key)
		weightedSum += sev * result.Subscore
		severitySum += sev
	}

	if severitySum > 0 {
		out.DVS = clamp(weightedSum/severitySum, 0, 100)
	}
	return out
}

func buildCategory(p Policy, cat taxonomy.Category, set *evidence.Set, failures FailureMap) report.CategoryResult {
	result := report.CategoryResult{
		CategoryKey:  cat.Key,
		CategoryName: cat.Name,
		Ingredients:  make([]report.IngredientResult, 0, len(cat.Ingredients)),
	}

	var (
		contributions float64
		matched       bool
		anyClean      bool
	)

	for _, ing := range cat.Ingredients {
		ev := set.ForIngredient(ing.Key)
		ir := report.IngredientResult{
			Key:          ing.Key,
			Name:         ing.Name,
			PossibleScam: ing.PossibleScam,
			Evidence:     ev,
		}

		for _, src := range ing.Sources {
			key := evidence.Key{IngredientKey: ing.Key, Source: src}
			if kind, failed := failures[key]; failed {
				result.Failures = append(result.Failures, report.SourceFailure{
					IngredientKey: ing.Key,
					Source:        src,
					Kind:          kind,
				})
				continue
			}
			if _, hasEvidence := set.Get(key); !hasEvidence {
				anyClean = true
			}
		}

		if len(ev) > 0 {
			matched = true
			ir.Contribution = contribution(p, ev)
			contributions += ir.Contribution
		}
		result.Ingredients = append(result.Ingredients, ir)
	}

	sortFailures(result.Failures)

	switch {
	case matched:
		result.Status = report.StatusExposed
	case anyClean:
		result.Status = report.StatusClear
	default:
		result.Status = report.StatusUnknown
	}

	if result.Status != report.StatusUnknown && len(cat.Ingredients) > 0 {
		result.Subscore = clamp(100*contributions/float64(len(cat.Ingredients)), 0, 100)
	}
	return result
}

// contribution takes the strongest weighted evidence for the ingredient.
func contribution(p Policy, ev []evidence.Evidence) float64 {
	var best float64
	for _, e := range ev {
		weighted := e.Confidence * p.reliability(e.Source)
		if weighted > best {
			best = weighted
		}
	}
	return clamp(best, 0, 1)
}

func sortFailures(failures []report.SourceFailure) {
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].IngredientKey != failures[j].IngredientKey {
			return failures[i].IngredientKey < failures[j].IngredientKey
		}
		return failures[i].Source < failures[j].Source
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
