package taxonomy

import (
	"fmt"
	"sort"
)

// DetectionSource identifies a kind of intelligence channel an ingredient
// can be checked against. The enumeration is closed; adapters are registered
// per source.
type DetectionSource string

const (
	SourceWebSearch    DetectionSource = "WEB_SEARCH"
	SourceDarkWeb      DetectionSource = "DARK_WEB"
	SourceBreach       DetectionSource = "BREACH"
	SourceSocialSearch DetectionSource = "SOCIAL_SEARCH"
)

// AllSources lists every detection source in a stable order.
var AllSources = []DetectionSource{
	SourceWebSearch,
	SourceDarkWeb,
	SourceBreach,
	SourceSocialSearch,
}

// Valid reports whether s is a member of the closed enumeration.
func (s DetectionSource) Valid() bool {
	switch s {
	case SourceWebSearch, SourceDarkWeb, SourceBreach, SourceSocialSearch:
		return true
	}
	return false
}

func (s DetectionSource) String() string { return string(s) }

// Ingredient is one checkable data-exposure item. It belongs to exactly one
// category and is only ever queried against its declared sources.
type Ingredient struct {
	Key          string
	Name         string
	PossibleScam string
	CategoryKey  string
	Sources      []DetectionSource
}

// DeclaresSource reports whether src is one of the ingredient's declared
// detection sources.
func (i Ingredient) DeclaresSource(src DetectionSource) bool {
	for _, s := range i.Sources {
		if s == src {
			return true
		}
	}
	return false
}

// Category groups ingredients into one threat area. Ingredients keep their
// insertion order.
type Category struct {
	Key         string
	Name        string
	Ingredients []Ingredient
}

// Snapshot is an immutable view of the full taxonomy. A scan holds one
// snapshot for its whole duration; administrative edits produce a new
// snapshot via a Builder rather than mutating a live one.
type Snapshot struct {
	version     int
	categories  []Category
	byKey       map[string]Ingredient
	categoryIdx map[string]int
}

// Version returns the snapshot's build counter.
func (s *Snapshot) Version() int { return s.version }

// Categories returns all categories in insertion order. Callers must not
// mutate the returned slice.
func (s *Snapshot) Categories() []Category { return s.categories }

// IngredientsFor returns the ingredients of one category in insertion order.
// The second return is false when the category key is unknown.
func (s *Snapshot) IngredientsFor(categoryKey string) ([]Ingredient, bool) {
	idx, ok := s.categoryIdx[categoryKey]
	if !ok {
		return nil, false
	}
	return s.categories[idx].Ingredients, true
}

// IngredientByKey looks up a single ingredient by its globally unique key.
func (s *Snapshot) IngredientByKey(key string) (Ingredient, bool) {
	ing, ok := s.byKey[key]
	return ing, ok
}

// Builder assembles taxonomy snapshots. Upserts are idempotent by key:
// re-seeding the same data produces an equivalent snapshot instead of
// duplicates.
type Builder struct {
	version    int
	order      []string
	categories map[string]*builderCategory
}

type builderCategory struct {
	name  string
	order []string
	items map[string]Ingredient
}

// NewBuilder returns an empty taxonomy builder.
func NewBuilder() *Builder {
	return &Builder{categories: make(map[string]*builderCategory)}
}

// UpsertCategory creates the category or renames it if the key exists.
func (b *Builder) UpsertCategory(key, name string) {
	if c, ok := b.categories[key]; ok {
		c.name = name
		return
	}
	b.order = append(b.order, key)
	b.categories[key] = &builderCategory{
		name:  name,
		items: make(map[string]Ingredient),
	}
}

// UpsertIngredient creates or replaces an ingredient inside its category.
// The category must already exist, and sources must be non-empty members of
// the enumeration. Moving an ingredient between categories is not supported;
// the key stays with its first owner.
func (b *Builder) UpsertIngredient(categoryKey string, ing Ingredient) error {
	c, ok := b.categories[categoryKey]
	if !ok {
		return fmt.Errorf("upsert ingredient %q: unknown category %q", ing.Key, categoryKey)
	}
	if ing.Key == "" {
		return fmt.Errorf("upsert ingredient in %q: empty key", categoryKey)
	}
	if len(ing.Sources) == 0 {
		return fmt.Errorf("upsert ingredient %q: no detection sources declared", ing.Key)
	}
	for _, src := range ing.Sources {
		if !src.Valid() {
			return fmt.Errorf("upsert ingredient %q: invalid detection source %q", ing.Key, src)
		}
	}
	if owner, exists := b.ownerOf(ing.Key); exists && owner != categoryKey {
		return fmt.Errorf("upsert ingredient %q: already owned by category %q", ing.Key, owner)
	}
	ing.CategoryKey = categoryKey
	if _, exists := c.items[ing.Key]; !exists {
		c.order = append(c.order, ing.Key)
	}
	c.items[ing.Key] = ing
	return nil
}

// DeleteCategory removes a category and cascades to its ingredients. Unknown
// keys are a no-op.
func (b *Builder) DeleteCategory(key string) {
	if _, ok := b.categories[key]; !ok {
		return
	}
	delete(b.categories, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Builder) ownerOf(ingredientKey string) (string, bool) {
	for key, c := range b.categories {
		if _, ok := c.items[ingredientKey]; ok {
			return key, true
		}
	}
	return "", false
}

// Build produces an immutable snapshot of the current builder state. The
// builder stays usable; later upserts never affect snapshots already built.
func (b *Builder) Build() *Snapshot {
	b.version++
	snap := &Snapshot{
		version:     b.version,
		categories:  make([]Category, 0, len(b.order)),
		byKey:       make(map[string]Ingredient),
		categoryIdx: make(map[string]int),
	}
	for _, key := range b.order {
		c := b.categories[key]
		cat := Category{
			Key:         key,
			Name:        c.name,
			Ingredients: make([]Ingredient, 0, len(c.order)),
		}
		for _, ingKey := range c.order {
			ing := c.items[ingKey]
			ing.Sources = append([]DetectionSource(nil), ing.Sources...)
			cat.Ingredients = append(cat.Ingredients, ing)
			snap.byKey[ingKey] = ing
		}
		snap.categoryIdx[key] = len(snap.categories)
		snap.categories = append(snap.categories, cat)
	}
	return snap
}

// CategoryKeys returns the snapshot's category keys sorted alphabetically,
// for logging and diagnostics.
func (s *Snapshot) CategoryKeys() []string {
	keys := make([]string, 0, len(s.categories))
	for _, c := range s.categories {
		keys = append(keys, c.Key)
	}
	sort.Strings(keys)
	return keys
}
