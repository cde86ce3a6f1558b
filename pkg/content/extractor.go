package content

import (
	"time"

	"site-ingest/pkg/domain"
)

// Strategy turns one source's raw markup into zero or more content records.
type Strategy interface {
	Extract(src domain.Source, markup string, scrapedAt time.Time) ([]domain.ContentRecord, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(src domain.Source, markup string, scrapedAt time.Time) ([]domain.ContentRecord, error)

func (f StrategyFunc) Extract(src domain.Source, markup string, scrapedAt time.Time) ([]domain.ContentRecord, error) {
	return f(src, markup, scrapedAt)
}

// Source types with dedicated strategies.
const (
	SourceHomepage = "homepage"
	SourceContact  = "contact"
	SourceFeed     = "feed"
)

// Registry dispatches on a source's declared type. Types without a registered
// strategy use the fallback, which by default is the generic page strategy.
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewRegistry returns a registry with the built-in strategies for site.
func NewRegistry(site string) *Registry {
	r := &Registry{
		strategies: make(map[string]Strategy),
		fallback:   &GenericStrategy{Site: site},
	}
	r.Register(SourceHomepage, &HomepageStrategy{Site: site, Matchers: DefaultAnnouncementMatchers()})
	r.Register(SourceContact, &ContactStrategy{Info: DefaultContactInfo()})
	r.Register(SourceFeed, &FeedStrategy{})
	return r
}

// Register sets the strategy for a source type, replacing any existing one.
func (r *Registry) Register(sourceType string, s Strategy) {
	r.strategies[sourceType] = s
}

// SetFallback replaces the strategy used for unregistered types.
func (r *Registry) SetFallback(s Strategy) {
	r.fallback = s
}

// Extract runs the strategy for src. Empty markup means the fetch failed and
// yields no records, whatever the source type.
func (r *Registry) Extract(src domain.Source, markup string, scrapedAt time.Time) ([]domain.ContentRecord, error) {
	if markup == "" {
		return nil, nil
	}
	s, ok := r.strategies[src.Type]
	if !ok {
		s = r.fallback
	}
	return s.Extract(src, markup, scrapedAt)
}
