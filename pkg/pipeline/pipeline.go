package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"site-ingest/pkg/domain"
	"site-ingest/pkg/metrics"
	"site-ingest/pkg/reconcile"
)

// ErrConfiguration marks faults that keep a run from starting at all. It is the
// only error Run returns.
var ErrConfiguration = errors.New("pipeline configuration fault")

// SourceFetcher retrieves raw markup. An empty result means the source could not be
// fetched and is skipped for this run.
type SourceFetcher interface {
	Fetch(ctx context.Context, url string) string
}

// RecordExtractor turns one source's markup into content records.
type RecordExtractor interface {
	Extract(src domain.Source, markup string, scrapedAt time.Time) ([]domain.ContentRecord, error)
}

// RecordReconciler applies the insert/update/no-op decision for one record.
type RecordReconciler interface {
	Reconcile(ctx context.Context, record domain.ContentRecord) (reconcile.Outcome, error)
}

// Config wires the pipeline dependencies.
type Config struct {
	Sources    []domain.Source
	Fetcher    SourceFetcher
	Extractor  RecordExtractor
	Reconciler RecordReconciler

	// Workers bounds how many sources are processed at once. Zero means one.
	Workers int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Pipeline drives every configured source through fetch, extract and reconcile.
// Sources are independent; a failing source or record never fails the run.
type Pipeline struct {
	sources    []domain.Source
	fetcher    SourceFetcher
	extractor  RecordExtractor
	reconciler RecordReconciler
	workers    int
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func New(cfg Config) (*Pipeline, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "no sources configured")
	}
	if cfg.Fetcher == nil {
		return nil, errors.Wrap(ErrConfiguration, "fetcher is required")
	}
	if cfg.Extractor == nil {
		return nil, errors.Wrap(ErrConfiguration, "extractor is required")
	}
	if cfg.Reconciler == nil {
		return nil, errors.Wrap(ErrConfiguration, "reconciler is required")
	}

	p := &Pipeline{
		sources:    cfg.Sources,
		fetcher:    cfg.Fetcher,
		extractor:  cfg.Extractor,
		reconciler: cfg.Reconciler,
		workers:    cfg.Workers,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
	}
	if p.workers <= 0 {
		p.workers = 1
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	return p, nil
}

// Summary is the result of one run, in the shape the invocation endpoint returns.
type Summary struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ItemsProcessed int    `json:"itemsProcessed"`
	Inserted       int    `json:"inserted"`
	Updated        int    `json:"updated"`
	Unchanged      int    `json:"unchanged"`
	Failed         int    `json:"failed"`
	SourcesFailed  int    `json:"sourcesFailed"`
}

func (s *Summary) add(r sourceResult) {
	s.Inserted += r.inserted
	s.Updated += r.updated
	s.Unchanged += r.unchanged
	s.Failed += r.failed
	if r.fetchFailed {
		s.SourcesFailed++
	}
}

// Run executes one bounded pass over all sources and always returns a summary.
// Partial failures only lower ItemsProcessed.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := p.now()
	p.logger.Info("pipeline: run started", zap.Int("sources", len(p.sources)), zap.Int("workers", p.workers))

	var (
		mu      sync.Mutex
		summary Summary
	)

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for _, src := range p.sources {
		g.Go(func() error {
			result := p.processSource(ctx, src)
			mu.Lock()
			summary.add(result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.ItemsProcessed = summary.Inserted + summary.Updated + summary.Unchanged
	summary.Success = true
	summary.Message = fmt.Sprintf("Successfully scraped and stored %d items", summary.ItemsProcessed)

	finished := p.now()
	p.metrics.RunFinished(started, finished)
	p.logger.Info("pipeline: run finished",
		zap.Int("items_processed", summary.ItemsProcessed),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("failed", summary.Failed),
		zap.Int("sources_failed", summary.SourcesFailed),
		zap.Duration("duration", finished.Sub(started)))

	return summary, nil
}
