package content

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-ingest/pkg/domain"
)

var scrapedAt = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

const homepageHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Salim Habib University</title>
	<style>.banner { color: red }</style>
	<script>window.analytics = {};</script>
</head>
<body>
	<h1>Welcome to SHU</h1>
	<p>Admissions for Spring 2026 are open</p>
	<p>Training session on Clinical Research</p>
</body>
</html>`

func TestRegistry_Homepage(t *testing.T) {
	src := domain.Source{URL: homepageURL, Type: "homepage"}

	records, err := NewRegistry(DefaultSite).Extract(src, homepageHTML, scrapedAt)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, domain.ContentAnnouncement, records[0].ContentType)
	assert.Equal(t, "Admissions for Spring 2026 are open", records[0].Title)
	assert.Equal(t, domain.ContentAnnouncement, records[1].ContentType)

	general := records[2]
	assert.Equal(t, domain.ContentGeneral, general.ContentType)
	assert.Equal(t, "SHU Homepage", general.Title)
	assert.Equal(t, homepageURL, general.SourceURL)
	assert.Equal(t, "Salim Habib University Welcome to SHU Admissions for Spring 2026 are open Training session on Clinical Research", general.Content)
	assert.Equal(t, "2026-01-15T09:30:00Z", general.Metadata["scraped_at"])
	assert.Equal(t, "Salim Habib University", general.Metadata["page_title"])
}

func TestRegistry_HomepageWithoutAnnouncements(t *testing.T) {
	src := domain.Source{URL: homepageURL, Type: "homepage"}

	records, err := NewRegistry(DefaultSite).Extract(src, "<p>Nothing new</p>", scrapedAt)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SHU Homepage", records[0].Title)
}

func TestRegistry_ContactIgnoresMarkup(t *testing.T) {
	src := domain.Source{URL: "https://shu.edu.pk/qec/contact-us/", Type: "contact"}

	first, err := NewRegistry(DefaultSite).Extract(src, "<p>layout A</p>", scrapedAt)
	require.NoError(t, err)
	second, err := NewRegistry(DefaultSite).Extract(src, "<div>completely different layout B</div>", scrapedAt.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)

	record := first[0]
	assert.Equal(t, domain.ContentContact, record.ContentType)
	assert.Equal(t, "Contact Information", record.Title)
	assert.Equal(t,
		`{"address":"NC-24, Deh Dih, Korangi Creek, Karachi","uan":"021-111 248 338","phone":"021-35122931-35","email":"qec@shu.edu.pk"}`,
		record.Content)
	assert.Equal(t, "qec@shu.edu.pk", record.Metadata["email"])

	var decoded ContactInfo
	require.NoError(t, json.Unmarshal([]byte(record.Content), &decoded))
	assert.Equal(t, DefaultContactInfo(), decoded)
}

func TestRegistry_GenericTypes(t *testing.T) {
	for _, typ := range []string{"programs", "news", "faculty"} {
		t.Run(typ, func(t *testing.T) {
			src := domain.Source{URL: "https://shu.edu.pk/" + typ + "/", Type: typ}

			records, err := NewRegistry(DefaultSite).Extract(src, "<h2>"+typ+"</h2><p>Body text</p>", scrapedAt)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "SHU "+typ, records[0].Title)
			assert.Equal(t, domain.ContentType(typ), records[0].ContentType)
			assert.Equal(t, typ+" Body text", records[0].Content)
		})
	}
}

func TestRegistry_ContentCap(t *testing.T) {
	huge := "<p>" + strings.Repeat("word ", 10000) + "</p>"

	for _, typ := range []string{"homepage", "programs"} {
		src := domain.Source{URL: "https://shu.edu.pk/" + typ, Type: typ}
		records, err := NewRegistry(DefaultSite).Extract(src, huge, scrapedAt)
		require.NoError(t, err)
		for _, r := range records {
			assert.LessOrEqual(t, len([]rune(r.Content)), MaxContentLength)
		}
	}
}

func TestRegistry_EmptyMarkupYieldsNothing(t *testing.T) {
	for _, typ := range []string{"homepage", "contact", "programs", "feed"} {
		records, err := NewRegistry(DefaultSite).Extract(domain.Source{URL: "https://x.test/", Type: typ}, "", scrapedAt)
		assert.NoError(t, err)
		assert.Empty(t, records, typ)
	}
}

func TestRegistry_RegisterOverridesAndFallback(t *testing.T) {
	r := NewRegistry(DefaultSite)
	r.Register("events", StrategyFunc(func(src domain.Source, markup string, _ time.Time) ([]domain.ContentRecord, error) {
		return []domain.ContentRecord{{SourceURL: src.URL, Title: "events", Content: "custom"}}, nil
	}))
	r.SetFallback(StrategyFunc(func(src domain.Source, markup string, _ time.Time) ([]domain.ContentRecord, error) {
		return nil, nil
	}))

	records, err := r.Extract(domain.Source{URL: "https://x.test/events", Type: "events"}, "<p>x</p>", scrapedAt)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "custom", records[0].Content)

	records, err = r.Extract(domain.Source{URL: "https://x.test/news", Type: "news"}, "<p>x</p>", scrapedAt)
	require.NoError(t, err)
	assert.Empty(t, records)
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>SHU News</title>
	<link>https://shu.edu.pk/news/</link>
	<item>
		<title>Convocation 2026</title>
		<link>https://shu.edu.pk/news/convocation-2026/</link>
		<description><![CDATA[<p>The <b>annual</b> convocation will be held in March.</p>]]></description>
		<pubDate>Mon, 12 Jan 2026 10:00:00 +0500</pubDate>
	</item>
	<item>
		<title>Library hours extended</title>
		<link>https://shu.edu.pk/news/library/</link>
	</item>
</channel>
</rss>`

func TestRegistry_Feed(t *testing.T) {
	src := domain.Source{URL: "https://shu.edu.pk/feed/", Type: "feed"}

	records, err := NewRegistry(DefaultSite).Extract(src, rssFeed, scrapedAt)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, domain.ContentNews, records[0].ContentType)
	assert.Equal(t, "Convocation 2026", records[0].Title)
	assert.Equal(t, "The annual convocation will be held in March.", records[0].Content)
	assert.Equal(t, "https://shu.edu.pk/news/convocation-2026/", records[0].Metadata["link"])
	assert.Equal(t, 0, records[0].Metadata["position"])

	assert.Equal(t, "Library hours extended", records[1].Content)
	assert.Equal(t, 1, records[1].Metadata["position"])
}

func TestRegistry_FeedParseError(t *testing.T) {
	src := domain.Source{URL: "https://shu.edu.pk/feed/", Type: "feed"}

	_, err := NewRegistry(DefaultSite).Extract(src, "this is not a feed", scrapedAt)
	assert.Error(t, err)
}
