package content

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-ingest/pkg/domain"
)

const homepageURL = "https://shu.edu.pk/"

func TestFindAnnouncements_DefaultPhrasings(t *testing.T) {
	markup := `<div class="ticker">
<span>Training session on Research Ethics</span>
<span>Admissions for Spring 2026 are open!</span>
<span>SHU Pharmacy students Ali and Sara secures first place</span>
</div>`

	records := FindAnnouncements(homepageURL, markup, DefaultAnnouncementMatchers())
	require.Len(t, records, 3)

	assert.Equal(t, "Training session on", records[0].Content)
	assert.Equal(t, "Admissions for Spring 2026 are open", records[1].Content)
	assert.Equal(t, "SHU Pharmacy students Ali and Sara secures first place", records[2].Content)

	for i, r := range records {
		assert.Equal(t, homepageURL, r.SourceURL)
		assert.Equal(t, domain.ContentAnnouncement, r.ContentType)
		assert.Equal(t, r.Content, r.Title)
		assert.Equal(t, i, r.Metadata["position"])
	}
	assert.Equal(t, "training", records[0].Metadata["matcher"])
}

func TestFindAnnouncements_CaseInsensitiveAndRepeated(t *testing.T) {
	markup := "ADMISSIONS FOR SPRING 2026 ARE OPEN ... admissions for spring 2026 are open"

	records := FindAnnouncements(homepageURL, markup, DefaultAnnouncementMatchers())
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Metadata["position"])
	assert.Equal(t, 1, records[1].Metadata["position"])
}

func TestFindAnnouncements_NoMatches(t *testing.T) {
	assert.Empty(t, FindAnnouncements(homepageURL, "<p>Welcome</p>", DefaultAnnouncementMatchers()))
}

func TestFindAnnouncements_TitleTruncated(t *testing.T) {
	long := "Notice: " + strings.Repeat("x", 150)
	matchers := []AnnouncementMatcher{{Name: "notice", Pattern: regexp.MustCompile(`Notice: x+`)}}

	records := FindAnnouncements(homepageURL, long, matchers)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Title, AnnouncementTitleLength)
	assert.Equal(t, long, records[0].Content)
}

func TestFindAnnouncements_OverlapKeepsLeftmost(t *testing.T) {
	matchers := []AnnouncementMatcher{
		{Name: "short", Pattern: regexp.MustCompile(`open day`)},
		{Name: "long", Pattern: regexp.MustCompile(`campus open day today`)},
	}

	records := FindAnnouncements(homepageURL, "campus open day today", matchers)
	require.Len(t, records, 1)
	assert.Equal(t, "long", records[0].Metadata["matcher"])
}

func TestFindAnnouncements_CustomBuilder(t *testing.T) {
	matchers := []AnnouncementMatcher{{
		Name:    "exam",
		Pattern: regexp.MustCompile(`Exams start \w+`),
		Build: func(sourceURL, snippet string, position int) domain.ContentRecord {
			return domain.ContentRecord{
				SourceURL:   sourceURL,
				ContentType: domain.ContentNews,
				Title:       "Exam schedule",
				Content:     snippet,
			}
		},
	}}

	records := FindAnnouncements(homepageURL, "Exams start Monday", matchers)
	require.Len(t, records, 1)
	assert.Equal(t, "Exam schedule", records[0].Title)
	assert.Equal(t, domain.ContentNews, records[0].ContentType)
	assert.Equal(t, "exam", records[0].Metadata["matcher"])
}
