package scan

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exposurescan/internal/report"
	"exposurescan/internal/scan/cache"
	"exposurescan/internal/score"
	"exposurescan/internal/source"
	"exposurescan/internal/source/adapters"
	"exposurescan/internal/taxonomy"
)

func testSnapshot(t *testing.T) *taxonomy.Snapshot {
	t.Helper()
	b := taxonomy.NewBuilder()
	b.UpsertCategory("IDENTITY", "Identity")
	require.NoError(t, b.UpsertIngredient("IDENTITY", taxonomy.Ingredient{
		Key:     "email_id",
		Name:    "Email address",
		Sources: []taxonomy.DetectionSource{taxonomy.SourceBreach, taxonomy.SourceWebSearch},
	}))
	b.UpsertCategory("PROFESSIONAL", "Professional")
	require.NoError(t, b.UpsertIngredient("PROFESSIONAL", taxonomy.Ingredient{
		Key:     "resume",
		Name:    "Public resume",
		Sources: []taxonomy.DetectionSource{taxonomy.SourceWebSearch},
	}))
	require.NoError(t, b.UpsertIngredient("PROFESSIONAL", taxonomy.Ingredient{
		Key:     "linkedin_id",
		Name:    "LinkedIn profile",
		Sources: []taxonomy.DetectionSource{taxonomy.SourceWebSearch},
	}))
	return b.Build()
}

func testRegistry(t *testing.T, adapterList ...source.Adapter) *source.Registry {
	t.Helper()
	r := source.NewRegistry()
	for _, a := range adapterList {
		require.NoError(t, r.Register(a))
	}
	return r
}

func newTestEngine(t *testing.T, snap *taxonomy.Snapshot, reg *source.Registry, c cache.Store) *Engine {
	t.Helper()
	e := New(snap, reg, c, score.DefaultPolicy(), slog.Default(), nil)
	seq := 0
	e.newID = func() string {
		seq++
		return "report-" + string(rune('a'+seq))
	}
	return e
}

func subjectFixture() source.Subject {
	return source.Subject{Identifiers: []string{"jane@example.com"}}
}

func categoryByKey(t *testing.T, r *report.ExposureReport, key string) report.CategoryResult {
	t.Helper()
	for _, c := range r.Categories {
		if c.CategoryKey == key {
			return c
		}
	}
	t.Fatalf("category %s not in report", key)
	return report.CategoryResult{}
}

func TestScanRejectsEmptySubject(t *testing.T) {
	e := newTestEngine(t, testSnapshot(t), testRegistry(t), nil)

	_, err := e.Scan(context.Background(), source.Subject{Identifiers: []string{"  "}}, Config{})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestScanRejectsNegativeConfig(t *testing.T) {
	e := newTestEngine(t, testSnapshot(t), testRegistry(t), nil)

	_, err := e.Scan(context.Background(), subjectFixture(), Config{PerSourceTimeout: -time.Second})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "must not be negative")
}

func TestScanZeroConfigUsesDefaults(t *testing.T) {
	reg := testRegistry(t,
		&adapters.Stub{Src: taxonomy.SourceBreach},
		&adapters.Stub{Src: taxonomy.SourceWebSearch},
	)
	e := newTestEngine(t, testSnapshot(t), reg, nil)

	// An explicit zero is legal and means "use the default", not an error.
	rep, err := e.Scan(context.Background(), subjectFixture(), Config{
		PerSourceTimeout: 0,
		ScanDeadline:     0,
		MaxParallelism:   0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Categories)
}

func TestScanAllClear(t *testing.T) {
	reg := testRegistry(t,
		&adapters.Stub{Src: taxonomy.SourceBreach},
		&adapters.Stub{Src: taxonomy.SourceWebSearch},
	)
	e := newTestEngine(t, testSnapshot(t), reg, nil)

	rep, err := e.Scan(context.Background(), subjectFixture(), Config{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, rep.DVS)
	for _, c := range rep.Categories {
		assert.Equal(t, report.StatusClear, c.Status, "category %s", c.CategoryKey)
		assert.Empty(t, c.Failures)
	}
}

func TestScanBreachMatchWithWebFailure(t *testing.T) {
	breach := &adapters.Stub{
		Src: taxonomy.SourceBreach,
		Findings: map[string][]source.Finding{
			"email_id": {{Confidence: 1.0, Detail: "breach corpus hit"}},
		},
	}
	web := &adapters.Stub{
		Src: taxonomy.SourceWebSearch,
		Err: source.NewAdapterError(source.KindUpstreamError, taxonomy.SourceWebSearch, "search backend 500", nil),
	}
	e := newTestEngine(t, testSnapshot(t), testRegistry(t, breach, web), nil)

	rep, err := e.Scan(context.Background(), subjectFixture(), Config{})
	require.NoError(t, err)

	identity := categoryByKey(t, rep, "IDENTITY")
	assert.Equal(t, report.StatusExposed, identity.Status)
	require.Len(t, identity.Ingredients, 1)
	assert.Equal(t, 1.0, identity.Ingredients[0].Contribution)
	require.Len(t, identity.Failures, 1)
	assert.Equal(t, string(source.KindUpstreamError), identity.Failures[0].Kind)

	// Both professional ingredients query only the broken web source.
	professional := categoryByKey(t, rep, "PROFESSIONAL")
	assert.Equal(t, report.StatusUnknown, professional.Status)

	assert.Greater(t, rep.DVS, 0.0)
}

func TestScanCacheShortCircuitsAdapter(t *testing.T) {
	breach := &adapters.Stub{
		Src: taxonomy.SourceBreach,
		Findings: map[string][]source.Finding{
			"email_id": {{Confidence: 0.9, Detail: "breach corpus hit"}},
		},
	}
	web := &adapters.Stub{Src: taxonomy.SourceWebSearch}
	e := newTestEngine(t, testSnapshot(t), testRegistry(t, breach, web), cache.NewInMemory(5*time.Minute))

	first, err := e.Scan(context.Background(), subjectFixture(), Config{})
	require.NoError(t, err)
	require.Equal(t, int64(1), breach.Calls())

	second, err := e.Scan(context.Background(), subjectFixture(), Config{})
	require.NoError(t, err)

	// The breach hit was served from cache; clean results are not cached
	// and get re-queried.
	assert.Equal(t, int64(1), breach.Calls())
	assert.Equal(t, int64(6), web.Calls(), "three clean web items per scan")

	assert.Equal(t, first.DVS, second.DVS)
	assert.Equal(t, first.SubjectFingerprint, second.SubjectFingerprint)
}

func TestScanDeadlineReturnsPartialReport(t *testing.T) {
	breach := &adapters.Stub{
		Src: taxonomy.SourceBreach,
		Findings: map[string][]source.Finding{
			"email_id": {{Confidence: 1.0, Detail: "breach corpus hit"}},
		},
	}
	slowWeb := &adapters.Stub{
		Src:     taxonomy.SourceWebSearch,
		Latency: 2 * time.Second,
	}
	e := newTestEngine(t, testSnapshot(t), testRegistry(t, breach, slowWeb), nil)

	start := time.Now()
	rep, err := e.Scan(context.Background(), subjectFixture(), Config{
		PerSourceTimeout: 5 * time.Second,
		ScanDeadline:     150 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "report delivery must not block past the deadline")

	// The breach item completed; the three slow web items were abandoned.
	identity := categoryByKey(t, rep, "IDENTITY")
	assert.Equal(t, report.StatusExposed, identity.Status)
	require.Len(t, identity.Failures, 1)
	assert.Equal(t, string(source.KindTimeout), identity.Failures[0].Kind)

	professional := categoryByKey(t, rep, "PROFESSIONAL")
	assert.Equal(t, report.StatusUnknown, professional.Status)
	assert.Len(t, professional.Failures, 2)
}

func TestScanPerSourceTimeout(t *testing.T) {
	slow := &adapters.Stub{
		Src:     taxonomy.SourceWebSearch,
		Latency: time.Second,
	}
	breach := &adapters.Stub{Src: taxonomy.SourceBreach}
	e := newTestEngine(t, testSnapshot(t), testRegistry(t, breach, slow), nil)

	rep, err := e.Scan(context.Background(), subjectFixture(), Config{
		PerSourceTimeout: 50 * time.Millisecond,
		ScanDeadline:     5 * time.Second,
	})
	require.NoError(t, err)

	identity := categoryByKey(t, rep, "IDENTITY")
	require.Len(t, identity.Failures, 1)
	assert.Equal(t, string(source.KindTimeout), identity.Failures[0].Kind)
}

func TestScanUnknownCategorySkipped(t *testing.T) {
	reg := testRegistry(t,
		&adapters.Stub{Src: taxonomy.SourceBreach},
		&adapters.Stub{Src: taxonomy.SourceWebSearch},
	)
	e := newTestEngine(t, testSnapshot(t), reg, nil)

	rep, err := e.Scan(context.Background(), subjectFixture(), Config{
		Categories: []string{"IDENTITY", "NO_SUCH_CATEGORY"},
	})
	require.NoError(t, err)

	require.Len(t, rep.Categories, 1)
	assert.Equal(t, "IDENTITY", rep.Categories[0].CategoryKey)
}

func TestScanMissingAdapterIsSourceFailure(t *testing.T) {
	// Only breach is registered; every web item fails without aborting.
	reg := testRegistry(t, &adapters.Stub{Src: taxonomy.SourceBreach})
	e := newTestEngine(t, testSnapshot(t), reg, nil)

	rep, err := e.Scan(context.Background(), subjectFixture(), Config{})
	require.NoError(t, err)

	identity := categoryByKey(t, rep, "IDENTITY")
	assert.Equal(t, report.StatusClear, identity.Status)
	require.Len(t, identity.Failures, 1)

	professional := categoryByKey(t, rep, "PROFESSIONAL")
	assert.Equal(t, report.StatusUnknown, professional.Status)
}

func TestScanInvalidInputRecorded(t *testing.T) {
	breach := &adapters.Stub{Src: taxonomy.SourceBreach}
	web := &adapters.Stub{
		Src: taxonomy.SourceWebSearch,
		Err: source.NewAdapterError(source.KindInvalidInput, taxonomy.SourceWebSearch, "unsupported identifier", nil),
	}
	e := newTestEngine(t, testSnapshot(t), testRegistry(t, breach, web), nil)

	rep, err := e.Scan(context.Background(), subjectFixture(), Config{})
	require.NoError(t, err)

	identity := categoryByKey(t, rep, "IDENTITY")
	require.Len(t, identity.Failures, 1)
	assert.Equal(t, string(source.KindInvalidInput), identity.Failures[0].Kind)
}

func TestScanDeterministicGivenSameAdapterOutput(t *testing.T) {
	observed := time.Unix(1700000000, 0).UTC()
	mk := func() *source.Registry {
		return testRegistry(t,
			&adapters.Stub{
				Src: taxonomy.SourceBreach,
				Findings: map[string][]source.Finding{
					"email_id": {{Confidence: 0.8, Detail: "breach corpus hit", ObservedAt: observed}},
				},
			},
			&adapters.Stub{
				Src: taxonomy.SourceWebSearch,
				Findings: map[string][]source.Finding{
					"resume": {{Confidence: 0.6, Detail: "public resume found", ObservedAt: observed}},
				},
			},
		)
	}

	first, err := newTestEngine(t, testSnapshot(t), mk(), nil).Scan(context.Background(), subjectFixture(), Config{})
	require.NoError(t, err)
	second, err := newTestEngine(t, testSnapshot(t), mk(), nil).Scan(context.Background(), subjectFixture(), Config{})
	require.NoError(t, err)

	assert.Equal(t, first.DVS, second.DVS)
	assert.Equal(t, first.SubjectFingerprint, second.SubjectFingerprint)
	assert.Equal(t, first.Categories, second.Categories)
}
