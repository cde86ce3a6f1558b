package domain

import "time"

// ContentType tags what kind of page fragment a ContentRecord holds.
type ContentType string

const (
	ContentHomepage     ContentType = "homepage"
	ContentAnnouncement ContentType = "announcement"
	ContentContact      ContentType = "contact"
	ContentPrograms     ContentType = "programs"
	ContentNews         ContentType = "news"
	ContentGeneric      ContentType = "generic"

	// ContentGeneral is the body text of a homepage.
	ContentGeneral ContentType = "general"
)

// ContentRecord is one unit of ingested website knowledge.
//
// SourceURL and Title together form the identity key. Once a record is stored its
// identity key never changes; only Content, Metadata and LastScrapedAt are rewritten.
type ContentRecord struct {
	// ID is assigned by the store on insert. Empty for freshly extracted records.
	ID string `bson:"_id,omitempty" json:"id,omitempty"`

	SourceURL   string      `bson:"source_url" json:"source_url"`
	ContentType ContentType `bson:"content_type" json:"content_type"`
	Title       string      `bson:"title" json:"title"`
	Content     string      `bson:"content" json:"content"`

	// Metadata holds extraction-time facts. Informational only, never part of identity.
	Metadata map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`

	LastScrapedAt time.Time `bson:"last_scraped_at" json:"last_scraped_at"`
}

// Key returns the record's identity key.
func (r ContentRecord) Key() IdentityKey {
	return IdentityKey{SourceURL: r.SourceURL, Title: r.Title}
}

// IdentityKey addresses a stored record for upsert purposes.
type IdentityKey struct {
	SourceURL string
	Title     string
}

func (k IdentityKey) String() string {
	return k.SourceURL + "#" + k.Title
}

// ContentUpdate holds the mutable fields of a stored record.
type ContentUpdate struct {
	Content       string
	Metadata      map[string]any
	LastScrapedAt time.Time
}
