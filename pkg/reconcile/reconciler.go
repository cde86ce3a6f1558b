package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"site-ingest/pkg/db"
	"site-ingest/pkg/domain"
)

// Outcome is the decision taken for one extracted record.
type Outcome string

const (
	Inserted  Outcome = "inserted"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
	Failed    Outcome = "failed"
)

// Reconciler compares freshly extracted records with stored state and applies
// an insert, an update or nothing.
type Reconciler struct {
	store  db.Store
	logger *zap.Logger
	now    func() time.Time
	locks  *keyLock
}

type Option func(*Reconciler)

// WithClock overrides the time source used for lastScrapedAt and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func New(store db.Store, logger *zap.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		locks:  newKeyLock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile applies the decision for one record. Lookup and write for the same
// identity key never interleave. On error the outcome is Failed and nothing
// was written for the record.
//
// A change log failure after a successful write is logged and does not fail
// the record; the content write stands.
func (r *Reconciler) Reconcile(ctx context.Context, record domain.ContentRecord) (Outcome, error) {
	key := record.Key()
	unlock := r.locks.Lock(key)
	defer unlock()

	log := r.logger.With(zap.String("source_url", key.SourceURL), zap.String("title", key.Title))

	stored, err := r.store.FindByKey(ctx, key)
	if err != nil {
		return Failed, errors.Wrap(err, "lookup")
	}

	now := r.now()

	if stored == nil {
		record.ID = ""
		record.LastScrapedAt = now
		id, err := r.store.Insert(ctx, record)
		if err != nil {
			return Failed, errors.Wrap(err, "insert")
		}
		log.Info("reconciler: inserted record", zap.String("id", id), zap.String("content_type", string(record.ContentType)))

		event := domain.NewContentEvent(id, record.Content)
		event.CreatedAt = now
		r.logChange(ctx, log, event)
		return Inserted, nil
	}

	if stored.Content == record.Content {
		log.Debug("reconciler: content unchanged", zap.String("id", stored.ID))
		return Unchanged, nil
	}

	err = r.store.Update(ctx, stored.ID, domain.ContentUpdate{
		Content:       record.Content,
		Metadata:      record.Metadata,
		LastScrapedAt: now,
	})
	if err != nil {
		return Failed, errors.Wrap(err, "update")
	}
	log.Info("reconciler: updated record", zap.String("id", stored.ID),
		zap.Int("previous_length", len(stored.Content)), zap.Int("new_length", len(record.Content)))

	event := domain.UpdatedContentEvent(stored.ID, stored.Content, record.Content)
	event.CreatedAt = now
	r.logChange(ctx, log, event)
	return Updated, nil
}

func (r *Reconciler) logChange(ctx context.Context, log *zap.Logger, event domain.ChangeEvent) {
	if err := r.store.LogChange(ctx, event); err != nil {
		log.Error("reconciler: change log append failed after content write",
			zap.String("content_id", event.ContentID),
			zap.String("change_type", string(event.ChangeType)),
			zap.Error(err))
	}
}
