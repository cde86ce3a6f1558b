package content

import (
	"regexp"
	"sort"

	"site-ingest/pkg/domain"
)

// AnnouncementTitleLength is how many characters of a snippet become its title.
const AnnouncementTitleLength = 100

// AnnouncementBuilder turns one matched snippet into a record.
type AnnouncementBuilder func(sourceURL, snippet string, position int) domain.ContentRecord

// AnnouncementMatcher pairs a phrasing pattern with the builder for its matches.
// A nil Build uses BuildAnnouncement.
type AnnouncementMatcher struct {
	Name    string
	Pattern *regexp.Regexp
	Build   AnnouncementBuilder
}

// DefaultAnnouncementMatchers recognise the phrasings the university homepage uses.
func DefaultAnnouncementMatchers() []AnnouncementMatcher {
	return []AnnouncementMatcher{
		{Name: "admissions", Pattern: regexp.MustCompile(`(?i)Admissions for Spring 2026 are open`)},
		{Name: "student-achievement", Pattern: regexp.MustCompile(`(?i)SHU.*?students.*?secures.*?place`)},
		{Name: "training", Pattern: regexp.MustCompile(`(?i)Training session on`)},
	}
}

// BuildAnnouncement is the default announcement record: keyed by the first
// AnnouncementTitleLength characters of the snippet, positioned in metadata.
func BuildAnnouncement(sourceURL, snippet string, position int) domain.ContentRecord {
	return domain.ContentRecord{
		SourceURL:   sourceURL,
		ContentType: domain.ContentAnnouncement,
		Title:       Truncate(snippet, AnnouncementTitleLength),
		Content:     snippet,
		Metadata:    map[string]any{"position": position},
	}
}

type announcementMatch struct {
	start, end int
	matcher    int
}

// FindAnnouncements runs every matcher over raw markup. Matches are returned in document
// order; a match overlapping an earlier one is dropped, and on equal starts the earlier
// matcher wins. Position is the index within that merged order.
func FindAnnouncements(sourceURL, markup string, matchers []AnnouncementMatcher) []domain.ContentRecord {
	var found []announcementMatch
	for i, m := range matchers {
		if m.Pattern == nil {
			continue
		}
		for _, loc := range m.Pattern.FindAllStringIndex(markup, -1) {
			found = append(found, announcementMatch{start: loc[0], end: loc[1], matcher: i})
		}
	}

	sort.SliceStable(found, func(a, b int) bool {
		if found[a].start != found[b].start {
			return found[a].start < found[b].start
		}
		return found[a].matcher < found[b].matcher
	})

	var records []domain.ContentRecord
	lastEnd := 0
	for _, f := range found {
		if f.start < lastEnd || f.start == f.end {
			continue
		}
		lastEnd = f.end

		build := matchers[f.matcher].Build
		if build == nil {
			build = BuildAnnouncement
		}
		record := build(sourceURL, markup[f.start:f.end], len(records))
		if record.Metadata == nil {
			record.Metadata = map[string]any{}
		}
		record.Metadata["matcher"] = matchers[f.matcher].Name
		records = append(records, record)
	}
	return records
}
