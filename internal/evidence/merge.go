package evidence

import "sort"

// Set holds the deduplicated evidence of one scan, at most one record per
// (ingredient, source) pair.
type Set struct {
	byKey map[Key]Evidence
}

// NewSet returns an empty evidence set.
func NewSet() *Set {
	return &Set{byKey: make(map[Key]Evidence)}
}

// Merge folds one Evidence into the set. When the pair already has a
// record, the higher confidence wins; equal confidences are broken by the
// more recent ObservedAt. Merging is idempotent and order-insensitive.
func (s *Set) Merge(e Evidence) {
	key := KeyOf(e)
	existing, ok := s.byKey[key]
	if !ok || supersedes(e, existing) {
		s.byKey[key] = e
	}
}

func supersedes(candidate, existing Evidence) bool {
	if candidate.Confidence != existing.Confidence {
		return candidate.Confidence > existing.Confidence
	}
	return candidate.ObservedAt.After(existing.ObservedAt)
}

// Get returns the evidence for a pair, if present.
func (s *Set) Get(key Key) (Evidence, bool) {
	e, ok := s.byKey[key]
	return e, ok
}

// ForIngredient returns all evidence for one ingredient, ordered by source
// so output is stable.
func (s *Set) ForIngredient(ingredientKey string) []Evidence {
	var out []Evidence
	for key, e := range s.byKey {
		if key.IngredientKey == ingredientKey {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Len returns the number of deduplicated records.
func (s *Set) Len() int { return len(s.byKey) }

// All returns every record ordered by (ingredient, source).
func (s *Set) All() []Evidence {
	out := make([]Evidence, 0, len(s.byKey))
	for _, e := range s.byKey {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IngredientKey != out[j].IngredientKey {
			return out[i].IngredientKey < out[j].IngredientKey
		}
		return out[i].Source < out[j].Source
	})
	return out
}
