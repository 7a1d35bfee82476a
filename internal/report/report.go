// Package report defines the structured output of one scan and its
// append-only history stores.
package report

import (
	"context"
	"errors"
	"time"

	"exposurescan/internal/evidence"
	"exposurescan/internal/taxonomy"
)

// CategoryStatus is the tri-state outcome of one category.
type CategoryStatus string

const (
	// StatusClear means every declared source returned a confirmed clean
	// result for every ingredient.
	StatusClear CategoryStatus = "CLEAR"

	// StatusExposed means at least one ingredient matched.
	StatusExposed CategoryStatus = "EXPOSED"

	// StatusUnknown means no evidence was obtained either way: every
	// applicable source failed or timed out. Absence of evidence is not
	// evidence of absence, so this is never reported as CLEAR.
	StatusUnknown CategoryStatus = "UNKNOWN"
)

// SourceFailure records one failed (ingredient, source) work item.
type SourceFailure struct {
	IngredientKey string                   `json:"ingredient_key"`
	Source        taxonomy.DetectionSource `json:"source"`
	Kind          string                   `json:"kind"`
}

// IngredientResult is one matched or checked ingredient with its evidence.
type IngredientResult struct {
	Key          string              `json:"key"`
	Name         string              `json:"name"`
	PossibleScam string              `json:"possible_scam"`
	Contribution float64             `json:"contribution"`
	Evidence     []evidence.Evidence `json:"evidence,omitempty"`
}

// CategoryResult is one category's rollup inside a report.
type CategoryResult struct {
	CategoryKey  string             `json:"category_key"`
	CategoryName string             `json:"category_name"`
	Status       CategoryStatus     `json:"status"`
	Subscore     float64            `json:"subscore"`
	Ingredients  []IngredientResult `json:"ingredients"`
	Failures     []SourceFailure    `json:"failures,omitempty"`
}

// ExposureReport is the final output of one scan. Created fresh per scan
// and never mutated after construction. SubjectFingerprint is a
// deterministic hash of the normalized identifiers; raw identifiers never
// appear in a report.
type ExposureReport struct {
	ID                 string           `json:"id"`
	SubjectFingerprint string           `json:"subject_fingerprint"`
	TaxonomyVersion    int              `json:"taxonomy_version"`
	Categories         []CategoryResult `json:"categories"`
	DVS                float64          `json:"dvs"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// ErrNotFound keeps store-specific 404s consistent across implementations.
var ErrNotFound = errors.New("report not found")

// Store is the append-only persistence sink for completed reports.
type Store interface {
	Save(ctx context.Context, r *ExposureReport) error
	Find(ctx context.Context, id string) (*ExposureReport, error)
	ListBySubject(ctx context.Context, fingerprint string) ([]*ExposureReport, error)
}
