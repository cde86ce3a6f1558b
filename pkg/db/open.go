package db

import (
	"context"

	"github.com/pkg/errors"

	"site-ingest/pkg/config"
)

// CloseFunc releases whatever OpenStore connected.
type CloseFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// OpenStore connects the backend selected by cfg. The Supabase backend uses a
// direct Postgres connection when one can be established and the REST API otherwise.
func OpenStore(ctx context.Context, cfg *config.StoreConfig) (ContentStore, CloseFunc, error) {
	if cfg == nil {
		return nil, nil, errors.New("store config is required")
	}

	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), noopClose, nil

	case config.BackendPostgres:
		if cfg.Postgres == nil {
			return nil, nil, errors.New("store.postgres is required")
		}
		client := NewPostgresClient(*cfg.Postgres)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return NewSQLStore(client), func(context.Context) error { return client.Close() }, nil

	case config.BackendSupabase:
		if cfg.Supabase == nil {
			return nil, nil, errors.New("store.supabase is required")
		}
		client := NewSupabaseClient(*cfg.Supabase, cfg.Postgres)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		closer := func(context.Context) error { return client.Close() }
		if client.HasDirectDB() {
			return NewSQLStore(client), closer, nil
		}
		return NewRESTStore(client.SDK()), closer, nil

	case config.BackendMongo:
		if cfg.Mongo == nil {
			return nil, nil, errors.New("store.mongo is required")
		}
		store, err := NewMongoStore(cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, nil, errors.Wrap(err, "connect mongo")
		}
		return store, store.Close, nil
	}

	return nil, nil, errors.Errorf("store backend %q is not supported", cfg.Backend)
}
