package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"site-ingest/pkg/config"
	"site-ingest/pkg/domain"
)

// exerciseStore runs the Store contract against a migrated, possibly shared
// backend. Every record uses a fresh source URL so reruns do not collide.
func exerciseStore(t *testing.T, store ContentStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))

	rec := sampleRecord("Training session on", "A")
	rec.SourceURL = "https://shu.edu.pk/" + uuid.NewString()
	rec.LastScrapedAt = time.Now().UTC().Truncate(time.Millisecond)

	found, err := store.FindByKey(ctx, rec.Key())
	require.NoError(t, err)
	assert.Nil(t, found)

	id, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, store.LogChange(ctx, domain.NewContentEvent(id, rec.Content)))

	_, err = store.Insert(ctx, rec)
	assert.True(t, errors.Is(err, ErrDuplicateIdentity), "second insert: %v", err)

	later := rec.LastScrapedAt.Add(time.Minute)
	require.NoError(t, store.Update(ctx, id, domain.ContentUpdate{
		Content:       "B",
		Metadata:      map[string]any{"page_title": "SHU"},
		LastScrapedAt: later,
	}))
	require.NoError(t, store.LogChange(ctx, domain.UpdatedContentEvent(id, "A", "B")))

	found, err = store.FindByKey(ctx, rec.Key())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "B", found.Content)
	assert.Equal(t, "SHU", found.Metadata["page_title"])
	assert.True(t, later.Equal(found.LastScrapedAt))

	err = store.Update(ctx, uuid.NewString(), domain.ContentUpdate{Content: "x", LastScrapedAt: later})
	assert.True(t, errors.Is(err, ErrNotFound), "update missing: %v", err)

	recent, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestMemoryStore_Contract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLStore_Integration(t *testing.T) {
	dsn := os.Getenv("INGEST_TEST_DATABASE_URL")
	if testing.Short() || dsn == "" {
		t.Skip("set INGEST_TEST_DATABASE_URL to run against Postgres")
	}

	store, closeFn, err := OpenStore(context.Background(), &config.StoreConfig{
		Backend:  config.BackendPostgres,
		Postgres: &config.PostgresConfig{DSN: dsn, MaxOpenConns: 2},
	})
	require.NoError(t, err)
	defer closeFn(context.Background())

	exerciseStore(t, store)
}

func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("INGEST_TEST_MONGO_URI")
	if testing.Short() || uri == "" {
		t.Skip("set INGEST_TEST_MONGO_URI to run against MongoDB")
	}

	store, closeFn, err := OpenStore(context.Background(), &config.StoreConfig{
		Backend: config.BackendMongo,
		Mongo:   &config.MongoConfig{URI: uri, Database: "site_ingest_test"},
	})
	require.NoError(t, err)
	defer closeFn(context.Background())

	exerciseStore(t, store)

	events, err := mongoEvents(context.Background(), store.(*MongoStore), "missing")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func mongoEvents(ctx context.Context, s *MongoStore, contentID string) ([]domain.ChangeEvent, error) {
	cursor, err := s.notifications.Find(ctx, bson.M{"content_id": contentID})
	if err != nil {
		return nil, err
	}
	var events []domain.ChangeEvent
	err = cursor.All(ctx, &events)
	return events, err
}
