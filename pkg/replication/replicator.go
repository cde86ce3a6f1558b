// Package replication copies stored content between backends, e.g. from a Mongo
// deployment into the Supabase tables.
package replication

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"site-ingest/pkg/db"
	"site-ingest/pkg/domain"
)

const (
	DefaultBatchSize = 100
	DefaultWorkers   = 5
	DefaultLimit     = 10000
)

// Config wires the replication dependencies.
type Config struct {
	Source db.RecentReader
	Target db.ContentStore

	// Limit caps how many of the most recently scraped records are copied.
	Limit     int
	BatchSize int
	Workers   int
	Logger    *zap.Logger
}

// Result counts what one replication pass did.
type Result struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
}

// Replicator copies content records from one store to another.
//
// Records whose identity key already exists in the target are skipped, never
// overwritten. Ids are carried over so change events stay attributable.
type Replicator struct {
	source    db.RecentReader
	target    db.ContentStore
	limit     int
	batchSize int
	workers   int
	logger    *zap.Logger
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, errors.New("source store is required")
	}
	if cfg.Target == nil {
		return nil, errors.New("target store is required")
	}

	r := &Replicator{
		source:    cfg.Source,
		target:    cfg.Target,
		limit:     cfg.Limit,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		logger:    cfg.Logger,
	}
	if r.limit <= 0 {
		r.limit = DefaultLimit
	}
	if r.batchSize <= 0 {
		r.batchSize = DefaultBatchSize
	}
	if r.workers <= 0 {
		r.workers = DefaultWorkers
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r, nil
}

// Replicate ensures the target schema, then copies every source record in
// parallel batches. The first batch error stops the pass.
func (r *Replicator) Replicate(ctx context.Context) (Result, error) {
	if err := r.target.EnsureSchema(ctx); err != nil {
		return Result{}, errors.Wrap(err, "prepare target schema")
	}

	records, err := r.source.Recent(ctx, r.limit)
	if err != nil {
		return Result{}, errors.Wrap(err, "read source content")
	}
	r.logger.Info("replication: loaded source records", zap.Int("records", len(records)))

	var (
		mu     sync.Mutex
		result Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for start := 0; start < len(records); start += r.batchSize {
		end := min(start+r.batchSize, len(records))
		batch := records[start:end]
		g.Go(func() error {
			inserted, err := r.copyBatch(gctx, batch)
			if err != nil {
				return errors.Wrapf(err, "batch [%d:%d]", start, end)
			}
			mu.Lock()
			result.Processed += len(batch)
			result.Inserted += inserted
			result.Skipped += len(batch) - inserted
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	r.logger.Info("replication: complete",
		zap.Int("processed", result.Processed),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (r *Replicator) copyBatch(ctx context.Context, batch []domain.ContentRecord) (int, error) {
	inserted := 0
	for _, record := range batch {
		existing, err := r.target.FindByKey(ctx, record.Key())
		if err != nil {
			return inserted, err
		}
		if existing != nil {
			continue
		}

		if _, err := r.target.Insert(ctx, record); err != nil {
			// Another writer got there first.
			if errors.Is(err, db.ErrDuplicateIdentity) {
				continue
			}
			return inserted, err
		}
		inserted++
	}
	r.logger.Debug("replication: batch copied", zap.Int("records", len(batch)), zap.Int("inserted", inserted))
	return inserted, nil
}
