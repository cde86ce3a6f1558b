// Package chatcontext renders recently ingested content as a system-context block
// for the chat assistant.
package chatcontext

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"site-ingest/pkg/content"
	"site-ingest/pkg/db"
)

const (
	// DefaultItems is how many records a block holds when no limit is configured.
	DefaultItems = 10

	// ItemContentLength caps each record's content inside the block, in characters.
	ItemContentLength = 500

	Header = "Recent information from the SHU website:"
)

// Builder reads the most recently scraped records and renders them.
type Builder struct {
	reader db.RecentReader
	items  int
}

// NewBuilder returns a builder for the newest items records. Zero or less means DefaultItems.
func NewBuilder(reader db.RecentReader, items int) *Builder {
	if items <= 0 {
		items = DefaultItems
	}
	return &Builder{reader: reader, items: items}
}

// Build renders one "[type] title: content" line per record, newest first, under
// Header. With nothing ingested yet it returns an empty string.
func (b *Builder) Build(ctx context.Context) (string, error) {
	records, err := b.reader.Recent(ctx, b.items)
	if err != nil {
		return "", errors.Wrap(err, "read recent content")
	}
	if len(records) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(Header)
	for _, r := range records {
		fmt.Fprintf(&sb, "\n[%s] %s: %s", r.ContentType, r.Title, content.Truncate(r.Content, ItemContentLength))
	}
	return sb.String(), nil
}
