package db

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	postgrest "github.com/supabase-community/postgrest-go"

	"site-ingest/pkg/domain"
)

// RESTClient is the part of the Supabase SDK the REST store uses. Both
// *supabase.Client and *postgrest.Client satisfy it.
type RESTClient interface {
	From(table string) *postgrest.QueryBuilder
}

// RESTStore keeps content in the same tables as SQLStore, reached through the
// PostgREST API instead of a database connection.
type RESTStore struct {
	client RESTClient
}

func NewRESTStore(client RESTClient) *RESTStore {
	return &RESTStore{client: client}
}

type contentUpdateRow struct {
	Content       string         `json:"content"`
	Metadata      map[string]any `json:"metadata"`
	LastScrapedAt time.Time      `json:"last_scraped_at"`
}

func (s *RESTStore) FindByKey(ctx context.Context, key domain.IdentityKey) (*domain.ContentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []domain.ContentRecord
	_, err := s.client.From(ContentTable).
		Select("*", "", false).
		Eq("source_url", key.SourceURL).
		Eq("title", key.Title).
		Limit(2, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", key)
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, errors.Wrapf(ErrDuplicateIdentity, "find %s", key)
	}
}

func (s *RESTStore) Insert(ctx context.Context, record domain.ContentRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, _, err := s.client.From(ContentTable).
		Insert(record, false, "", "minimal", "").
		Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return "", errors.Wrapf(ErrDuplicateIdentity, "insert %s", record.Key())
		}
		return "", errors.Wrapf(err, "insert %s", record.Key())
	}
	return record.ID, nil
}

func (s *RESTStore) Update(ctx context.Context, id string, fields domain.ContentUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := contentUpdateRow{
		Content:       fields.Content,
		Metadata:      fields.Metadata,
		LastScrapedAt: fields.LastScrapedAt,
	}
	if row.Metadata == nil {
		row.Metadata = map[string]any{}
	}

	var updated []domain.ContentRecord
	_, err := s.client.From(ContentTable).
		Update(row, "representation", "").
		Eq("id", id).
		ExecuteTo(&updated)
	if err != nil {
		return errors.Wrapf(err, "update %s", id)
	}
	if len(updated) == 0 {
		return errors.Wrapf(ErrNotFound, "update %s", id)
	}
	return nil
}

func (s *RESTStore) LogChange(ctx context.Context, event domain.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, _, err := s.client.From(NotificationTable).
		Insert(event, false, "", "minimal", "").
		Execute()
	if err != nil {
		return errors.Wrapf(err, "log %s change for %s", event.ChangeType, event.ContentID)
	}
	return nil
}

func (s *RESTStore) Recent(ctx context.Context, limit int) ([]domain.ContentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, _, err := s.client.From(ContentTable).
		Select("*", "", false).
		Order("last_scraped_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, errors.Wrap(err, "query recent content")
	}

	var rows []domain.ContentRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(err, "decode recent content")
	}
	return rows, nil
}

// EnsureSchema cannot run DDL over REST; it only checks that both tables are
// exposed. Create them with a direct connection (migrate with a database password).
func (s *RESTStore) EnsureSchema(ctx context.Context) error {
	for _, table := range []string{ContentTable, NotificationTable} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := s.client.From(table).Select("id", "", false).Limit(1, "").Execute(); err != nil {
			return errors.Wrapf(err, "table %s is not reachable over REST; run migrate with a database password", table)
		}
	}
	return nil
}

// PostgREST reports database errors as "(<sqlstate>) <message>".
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "("+uniqueViolation+")")
}
