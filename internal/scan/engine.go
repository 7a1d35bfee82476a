// Package scan implements the aggregation scheduler: it fans per-ingredient
// source queries out across a bounded worker pool, tolerates partial source
// failure, and rolls the surviving evidence up into an exposure report.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"exposurescan/internal/evidence"
	"exposurescan/internal/report"
	"exposurescan/internal/scan/cache"
	"exposurescan/internal/scan/metrics"
	"exposurescan/internal/score"
	"exposurescan/internal/source"
	"exposurescan/internal/taxonomy"
)

// Default bounds applied when a scan config leaves them zero.
const (
	DefaultPerSourceTimeout = 3 * time.Second
	DefaultScanDeadline     = 15 * time.Second
	DefaultMaxParallelism   = 8
)

// Config controls one scan invocation. Zero values fall back to defaults;
// Categories empty means all categories.
type Config struct {
	Categories       []string
	PerSourceTimeout time.Duration
	ScanDeadline     time.Duration
	MaxParallelism   int
}

func (c Config) withDefaults() Config {
	if c.PerSourceTimeout == 0 {
		c.PerSourceTimeout = DefaultPerSourceTimeout
	}
	if c.ScanDeadline == 0 {
		c.ScanDeadline = DefaultScanDeadline
	}
	if c.MaxParallelism == 0 {
		c.MaxParallelism = DefaultMaxParallelism
	}
	return c
}

func (c Config) validate() error {
	if c.PerSourceTimeout < 0 {
		return &ConfigError{Reason: "per-source timeout must not be negative"}
	}
	if c.ScanDeadline < 0 {
		return &ConfigError{Reason: "scan deadline must not be negative"}
	}
	if c.MaxParallelism < 0 {
		return &ConfigError{Reason: "max parallelism must not be negative"}
	}
	return nil
}

// ConfigError is the only user-visible scan failure: a malformed subject or
// configuration. Partial source failure never surfaces as an error.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid scan request: %s", e.Reason)
}

// Engine runs scans against one taxonomy snapshot.
type Engine struct {
	snapshot *taxonomy.Snapshot
	adapters *source.Registry
	cache    cache.Store
	norm     *evidence.Normalizer
	policy   score.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// New constructs a scan engine. cacheStore may be nil to disable caching;
// m may be nil to disable metrics.
func New(snapshot *taxonomy.Snapshot, adapters *source.Registry, cacheStore cache.Store, policy score.Policy, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		snapshot: snapshot,
		adapters: adapters,
		cache:    cacheStore,
		norm:     evidence.NewNormalizer(logger),
		policy:   policy,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type workItem struct {
	ingredient taxonomy.Ingredient
	src        taxonomy.DetectionSource
}

func (it workItem) key() evidence.Key {
	return evidence.Key{IngredientKey: it.ingredient.Key, Source: it.src}
}

type itemResult struct {
	index     int
	ev        *evidence.Evidence
	failure   source.ErrorKind // empty when the item succeeded
	fromCache bool
}

// Scan runs one full aggregation pass and returns the exposure report. The
// call blocks until every work item resolved or the scan deadline fired;
// items still pending at the deadline are recorded as failures and the
// partial report is returned, never discarded.
func (e *Engine) Scan(ctx context.Context, subject source.Subject, cfg Config) (*report.ExposureReport, error) {
	start := e.now()

	if subject.Empty() {
		return nil, &ConfigError{Reason: "subject has no identifiers"}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	categories := e.resolveCategories(ctx, cfg.Categories)
	items := resolveItems(categories)
	fingerprint := Fingerprint(subject)

	scanCtx, cancel := context.WithTimeout(ctx, cfg.ScanDeadline)
	defer cancel()

	results := make(chan itemResult, len(items))
	g, workCtx := errgroup.WithContext(scanCtx)
	g.SetLimit(cfg.MaxParallelism)

	go func() {
		for i, it := range items {
			g.Go(func() error {
				results <- e.runItem(workCtx, subject, fingerprint, it, i, cfg.PerSourceTimeout)
				return nil
			})
		}
	}()

	set := evidence.NewSet()
	failures := make(score.FailureMap)
	resolved := make([]bool, len(items))

	apply := func(res itemResult) {
		resolved[res.index] = true
		if res.ev != nil {
			set.Merge(*res.ev)
		}
		if res.failure != "" {
			failures[items[res.index].key()] = string(res.failure)
		}
	}

	done := 0
collect:
	for done < len(items) {
		select {
		case res := <-results:
			apply(res)
			done++
		case <-scanCtx.Done():
			break collect
		}
	}

	// Deadline path: pick up results that raced the deadline, then abandon
	// the rest as timeouts. In-flight workers wind down on their own; their
	// late results are discarded.
drain:
	for done < len(items) {
		select {
		case res := <-results:
			apply(res)
			done++
		default:
			break drain
		}
	}
	for i, it := range items {
		if !resolved[i] {
			failures[it.key()] = string(source.KindTimeout)
			e.metrics.IncrementItem(string(it.src), "abandoned")
		}
	}

	rep := score.Build(e.policy, score.Input{
		Snapshot:    e.snapshot,
		Categories:  categories,
		Evidence:    set,
		Failures:    failures,
		Fingerprint: fingerprint,
		ReportID:    e.newID(),
		GeneratedAt: e.now().UTC(),
	})

	duration := e.now().Sub(start)
	e.metrics.ObserveScan(duration)
	e.logger.InfoContext(ctx, "scan completed",
		"fingerprint", fingerprint,
		"report_id", rep.ID,
		"items", len(items),
		"evidence", set.Len(),
		"failures", len(failures),
		"dvs", rep.DVS,
		"duration_ms", duration.Milliseconds(),
	)
	return rep, nil
}

// resolveCategories maps requested keys onto the snapshot, keeping snapshot
// order for deterministic reports. Unknown keys are skipped with a warning,
// never fatal. An empty request means every category.
func (e *Engine) resolveCategories(ctx context.Context, requested []string) []taxonomy.Category {
	all := e.snapshot.Categories()
	if len(requested) == 0 {
		return all
	}

	want := make(map[string]bool, len(requested))
	for _, key := range requested {
		want[key] = true
	}

	out := make([]taxonomy.Category, 0, len(requested))
	for _, cat := range all {
		if want[cat.Key] {
			out = append(out, cat)
			delete(want, cat.Key)
		}
	}
	for key := range want {
		e.logger.WarnContext(ctx, "skipping unknown category", "category", key)
	}
	return out
}

// resolveItems expands categories into independent (ingredient, source)
// work items: an ingredient with N declared sources yields N items, all
// issued concurrently.
func resolveItems(categories []taxonomy.Category) []workItem {
	var items []workItem
	for _, cat := range categories {
		for _, ing := range cat.Ingredients {
			for _, src := range ing.Sources {
				items = append(items, workItem{ingredient: ing, src: src})
			}
		}
	}
	return items
}

func (e *Engine) runItem(ctx context.Context, subject source.Subject, fingerprint string, it workItem, index int, timeout time.Duration) itemResult {
	res := itemResult{index: index}

	if ctx.Err() != nil {
		res.failure = source.KindTimeout
		return res
	}

	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, fingerprint, it.ingredient.Key, it.src); err == nil {
			e.metrics.IncrementItem(string(it.src), "cache_hit")
			res.ev = cached
			res.fromCache = true
			return res
		}
	}

	adapter, ok := e.adapters.For(it.src)
	if !ok {
		e.logger.WarnContext(ctx, "no adapter registered for source",
			"source", it.src,
			"ingredient", it.ingredient.Key,
		)
		res.failure = source.KindUpstreamError
		e.metrics.IncrementItem(string(it.src), "failure")
		return res
	}

	qctx, cancelQuery := context.WithTimeout(ctx, timeout)
	defer cancelQuery()

	queryStart := time.Now()
	findings, err := adapter.Query(qctx, subject, it.ingredient)
	e.metrics.ObserveAdapterLatency(string(it.src), time.Since(queryStart))

	if err != nil {
		res.failure = source.KindOf(err)
		e.metrics.IncrementItem(string(it.src), "failure")
		e.logger.WarnContext(ctx, "source query failed",
			"source", it.src,
			"ingredient", it.ingredient.Key,
			"kind", res.failure,
			"error", err,
		)
		return res
	}

	ev := e.norm.Normalize(subject, it.ingredient, it.src, findings)
	if ev == nil {
		// Confirmed clean: a real answer, distinct from failure.
		e.metrics.IncrementItem(string(it.src), "clean")
		return res
	}

	e.metrics.IncrementItem(string(it.src), "match")
	if e.cache != nil {
		if err := e.cache.Put(ctx, fingerprint, *ev); err != nil {
			e.logger.WarnContext(ctx, "cache write failed",
				"source", it.src,
				"ingredient", it.ingredient.Key,
				"error", err,
			)
		}
	}
	res.ev = ev
	return res
}
