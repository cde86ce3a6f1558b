package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"site-ingest/pkg/domain"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// SQLStore keeps content and change events in Postgres tables.
type SQLStore struct {
	pg DBProvider
}

func NewSQLStore(pg DBProvider) *SQLStore {
	return &SQLStore{pg: pg}
}

func (s *SQLStore) db() (*sql.DB, error) {
	if s.pg == nil || s.pg.DB() == nil {
		return nil, errors.New("postgres DB not connected")
	}
	return s.pg.DB(), nil
}

var schemaStatements = []string{
	`
CREATE TABLE IF NOT EXISTS website_content (
  id UUID PRIMARY KEY,
  source_url TEXT NOT NULL,
  content_type TEXT NOT NULL,
  title TEXT NOT NULL,
  content TEXT NOT NULL DEFAULT '',
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  last_scraped_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (source_url, title)
)`,
	`
CREATE INDEX IF NOT EXISTS website_content_last_scraped_at_idx
  ON website_content (last_scraped_at DESC)`,
	`
CREATE TABLE IF NOT EXISTS content_notifications (
  id UUID PRIMARY KEY,
  content_id UUID NOT NULL REFERENCES website_content (id),
  change_type TEXT NOT NULL CHECK (change_type IN ('new', 'updated')),
  previous_content TEXT,
  new_content TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
}

// EnsureSchema creates the content and notification tables if they are missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}
	return nil
}

const selectContent = `
SELECT id::text, source_url, content_type, title, content, COALESCE(metadata, '{}'::jsonb)::text, last_scraped_at
FROM website_content`

// FindByKey asks for two rows so a broken uniqueness guarantee is visible.
func (s *SQLStore) FindByKey(ctx context.Context, key domain.IdentityKey) (*domain.ContentRecord, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectContent+`
WHERE source_url = $1 AND title = $2
LIMIT 2`, key.SourceURL, key.Title)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", key)
	}
	records, err := scanContentRows(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", key)
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

func (s *SQLStore) Insert(ctx context.Context, record domain.ContentRecord) (string, error) {
	db, err := s.db()
	if err != nil {
		return "", err
	}

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	meta, err := encodeMetadata(record.Metadata)
	if err != nil {
		return "", err
	}

	const q = `
INSERT INTO website_content (id, source_url, content_type, title, content, metadata, last_scraped_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`
	_, err = db.ExecContext(ctx, q, id, record.SourceURL, string(record.ContentType), record.Title,
		record.Content, meta, record.LastScrapedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", errors.Wrapf(ErrDuplicateIdentity, "insert %s", record.Key())
		}
		return "", errors.Wrapf(err, "insert %s", record.Key())
	}
	return id, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, fields domain.ContentUpdate) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	meta, err := encodeMetadata(fields.Metadata)
	if err != nil {
		return err
	}

	const q = `
UPDATE website_content
SET content = $2, metadata = $3::jsonb, last_scraped_at = $4
WHERE id = $1`
	res, err := db.ExecContext(ctx, q, id, fields.Content, meta, fields.LastScrapedAt)
	if err != nil {
		return errors.Wrapf(err, "update %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "update %s", id)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "update %s", id)
	}
	return nil
}

func (s *SQLStore) LogChange(ctx context.Context, event domain.ChangeEvent) error {
	db, err := s.db()
	if err != nil {
		return err
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var previous sql.NullString
	if event.PreviousContent != nil {
		previous = sql.NullString{String: *event.PreviousContent, Valid: true}
	}

	const q = `
INSERT INTO content_notifications (id, content_id, change_type, previous_content, new_content, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := db.ExecContext(ctx, q, id, event.ContentID, string(event.ChangeType), previous,
		event.NewContent, createdAt); err != nil {
		return errors.Wrapf(err, "log %s change for %s", event.ChangeType, event.ContentID)
	}
	return nil
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]domain.ContentRecord, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectContent+`
ORDER BY last_scraped_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query recent content")
	}
	return scanContentRows(rows)
}

func scanContentRows(rows *sql.Rows) ([]domain.ContentRecord, error) {
	defer rows.Close()

	var out []domain.ContentRecord
	for rows.Next() {
		var (
			r           domain.ContentRecord
			contentType string
			meta        string
		)
		if err := rows.Scan(&r.ID, &r.SourceURL, &contentType, &r.Title, &r.Content, &meta, &r.LastScrapedAt); err != nil {
			return nil, errors.Wrap(err, "scan content row")
		}
		r.ContentType = domain.ContentType(contentType)
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, errors.Wrapf(err, "decode metadata of %s", r.ID)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return out, nil
}

func encodeMetadata(meta map[string]any) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", errors.Wrap(err, "encode metadata")
	}
	return string(b), nil
}
