package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"site-ingest/pkg/domain"
)

// MongoStore keeps content and change events in two MongoDB collections named
// after the SQL tables.
type MongoStore struct {
	mongoClient   *mongo.Client
	database      *mongo.Database
	content       *mongo.Collection
	notifications *mongo.Collection
}

// NewMongoStore creates a store for the given database. The driver connects lazily,
// so an error here means the URI or client options are invalid; use Connect to
// check the server is reachable.
func NewMongoStore(connectionString, databaseName string) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "create mongo client")
	}

	database := mongoClient.Database(databaseName)
	return &MongoStore{
		mongoClient:   mongoClient,
		database:      database,
		content:       database.Collection(ContentTable),
		notifications: database.Collection(NotificationTable),
	}, nil
}

// Connect verifies the connection to MongoDB.
func (s *MongoStore) Connect(ctx context.Context) error {
	if s.mongoClient == nil {
		return errors.New("mongo client not initialized")
	}
	return s.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.mongoClient == nil {
		return nil
	}
	return s.mongoClient.Disconnect(ctx)
}

func (s *MongoStore) ready() error {
	if s.content == nil || s.notifications == nil {
		return errors.New("collection not initialized")
	}
	return nil
}

// EnsureSchema creates the unique identity index and the recency index.
func (s *MongoStore) EnsureSchema(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.content.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_url", Value: 1}, {Key: "title", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("source_url_title_unique"),
		},
		{
			Keys:    bson.D{{Key: "last_scraped_at", Value: -1}},
			Options: options.Index().SetName("last_scraped_at_desc"),
		},
	})
	if err != nil {
		return errors.Wrap(err, "create content indexes")
	}
	_, err = s.notifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "content_id", Value: 1}},
		Options: options.Index().SetName("content_id"),
	})
	return errors.Wrap(err, "create notification index")
}

func (s *MongoStore) FindByKey(ctx context.Context, key domain.IdentityKey) (*domain.ContentRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	filter := bson.M{"source_url": key.SourceURL, "title": key.Title}
	cursor, err := s.content.Find(ctx, filter, options.Find().SetLimit(2))
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", key)
	}
	var records []domain.ContentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrapf(err, "decode %s", key)
	}

	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return &records[0], nil
	default:
		return nil, errors.Wrapf(ErrDuplicateIdentity, "find %s", key)
	}
}

func (s *MongoStore) Insert(ctx context.Context, record domain.ContentRecord) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if _, err := s.content.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", errors.Wrapf(ErrDuplicateIdentity, "insert %s", record.Key())
		}
		return "", errors.Wrapf(err, "insert %s", record.Key())
	}
	return record.ID, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, fields domain.ContentUpdate) error {
	if err := s.ready(); err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"content":         fields.Content,
		"metadata":        fields.Metadata,
		"last_scraped_at": fields.LastScrapedAt,
	}}
	res, err := s.content.UpdateByID(ctx, id, update)
	if err != nil {
		return errors.Wrapf(err, "update %s", id)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(ErrNotFound, "update %s", id)
	}
	return nil
}

func (s *MongoStore) LogChange(ctx context.Context, event domain.ChangeEvent) error {
	if err := s.ready(); err != nil {
		return err
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := s.notifications.InsertOne(ctx, event); err != nil {
		return errors.Wrapf(err, "log %s change for %s", event.ChangeType, event.ContentID)
	}
	return nil
}

func (s *MongoStore) Recent(ctx context.Context, limit int) ([]domain.ContentRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "last_scraped_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.content.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "query recent content")
	}
	var records []domain.ContentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrap(err, "decode recent content")
	}
	return records, nil
}
