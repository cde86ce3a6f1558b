package pipeline

import (
	"context"

	"go.uber.org/zap"

	"site-ingest/pkg/domain"
	"site-ingest/pkg/reconcile"
)

type sourceResult struct {
	inserted, updated, unchanged, failed int
	fetchFailed                          bool
}

// processSource fetches, extracts and reconciles a single source. Records of one
// source are reconciled in extraction order.
func (p *Pipeline) processSource(ctx context.Context, src domain.Source) sourceResult {
	var result sourceResult
	log := p.logger.With(zap.String("url", src.URL), zap.String("source_type", src.Type))

	markup := p.fetcher.Fetch(ctx, src.URL)
	if markup == "" {
		result.fetchFailed = true
		p.metrics.FetchFailed(src.Type)
		log.Warn("pipeline: no content fetched, source skipped")
		return result
	}

	records, err := p.extractor.Extract(src, markup, p.now())
	if err != nil {
		log.Error("pipeline: extraction failed, source skipped", zap.Error(err))
		return result
	}
	log.Debug("pipeline: extracted records", zap.Int("records", len(records)))

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			log.Warn("pipeline: run cancelled", zap.Error(err))
			return result
		}

		outcome, err := p.reconciler.Reconcile(ctx, record)
		if err != nil {
			log.Error("pipeline: record not stored",
				zap.String("title", record.Title), zap.Error(err))
		}
		p.metrics.RecordOutcome(string(outcome))

		switch outcome {
		case reconcile.Inserted:
			result.inserted++
		case reconcile.Updated:
			result.updated++
		case reconcile.Unchanged:
			result.unchanged++
		default:
			result.failed++
		}
	}
	return result
}
