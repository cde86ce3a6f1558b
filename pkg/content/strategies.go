package content

import (
	"encoding/json"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"

	"site-ingest/pkg/domain"
)

// DefaultSite prefixes the titles of page-level records.
const DefaultSite = "SHU"

func pageMetadata(markup string, scrapedAt time.Time) map[string]any {
	meta := map[string]any{"scraped_at": scrapedAt.UTC().Format(time.RFC3339)}
	if title, err := ExtractTitle(markup); err == nil {
		meta["page_title"] = title
	}
	return meta
}

// HomepageStrategy emits one announcement record per matched snippet in the raw
// markup, followed by exactly one general record holding the page text.
type HomepageStrategy struct {
	Site     string
	Matchers []AnnouncementMatcher
}

func (s *HomepageStrategy) Extract(src domain.Source, markup string, scrapedAt time.Time) ([]domain.ContentRecord, error) {
	records := FindAnnouncements(src.URL, markup, s.Matchers)
	records = append(records, domain.ContentRecord{
		SourceURL:   src.URL,
		ContentType: domain.ContentGeneral,
		Title:       s.Site + " Homepage",
		Content:     Truncate(Normalize(markup), MaxContentLength),
		Metadata:    pageMetadata(markup, scrapedAt),
	})
	return records, nil
}

// ContactInfo is the published contact block. Field order is the serialized order.
type ContactInfo struct {
	Address string `json:"address"`
	UAN     string `json:"uan"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// DefaultContactInfo is the quality enhancement cell's contact block.
func DefaultContactInfo() ContactInfo {
	return ContactInfo{
		Address: "NC-24, Deh Dih, Korangi Creek, Karachi",
		UAN:     "021-111 248 338",
		Phone:   "021-35122931-35",
		Email:   "qec@shu.edu.pk",
	}
}

// ContactStrategy ignores the fetched markup and emits the configured contact block.
// The page layout changes often; the facts do not.
type ContactStrategy struct {
	Info ContactInfo
}

func (s *ContactStrategy) Extract(src domain.Source, _ string, _ time.Time) ([]domain.ContentRecord, error) {
	payload, err := json.Marshal(s.Info)
	if err != nil {
		return nil, errors.Wrap(err, "encode contact info")
	}
	return []domain.ContentRecord{{
		SourceURL:   src.URL,
		ContentType: domain.ContentContact,
		Title:       "Contact Information",
		Content:     string(payload),
		Metadata: map[string]any{
			"address": s.Info.Address,
			"uan":     s.Info.UAN,
			"phone":   s.Info.Phone,
			"email":   s.Info.Email,
		},
	}}, nil
}

// GenericStrategy emits one record titled "<Site> <type>" with the page text.
type GenericStrategy struct {
	Site string
}

func (s *GenericStrategy) Extract(src domain.Source, markup string, scrapedAt time.Time) ([]domain.ContentRecord, error) {
	return []domain.ContentRecord{{
		SourceURL:   src.URL,
		ContentType: domain.ContentType(src.Type),
		Title:       s.Site + " " + src.Type,
		Content:     Truncate(Normalize(markup), MaxContentLength),
		Metadata:    pageMetadata(markup, scrapedAt),
	}}, nil
}

// FeedStrategy reads an RSS or Atom document and emits one news record per item.
type FeedStrategy struct{}

func (s *FeedStrategy) Extract(src domain.Source, markup string, scrapedAt time.Time) ([]domain.ContentRecord, error) {
	feed, err := gofeed.NewParser().ParseString(markup)
	if err != nil {
		return nil, errors.Wrap(err, "parse feed")
	}

	records := make([]domain.ContentRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := normalizeWhitespace(item.Title)
		if title == "" {
			title = item.Link
		}
		if title == "" {
			continue
		}

		text := Normalize(item.Description)
		if text == "" {
			text = Normalize(item.Content)
		}
		if text == "" {
			text = title
		}

		records = append(records, domain.ContentRecord{
			SourceURL:   src.URL,
			ContentType: domain.ContentNews,
			Title:       Truncate(title, AnnouncementTitleLength),
			Content:     Truncate(text, MaxContentLength),
			Metadata: map[string]any{
				"link":       item.Link,
				"published":  item.Published,
				"position":   len(records),
				"scraped_at": scrapedAt.UTC().Format(time.RFC3339),
			},
		})
	}
	return records, nil
}
