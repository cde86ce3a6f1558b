package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/pkg/errors"
)

// ErrTitleNotFound is returned when a page carries no usable title.
var ErrTitleNotFound = errors.New("page title not found")

// pageTitleLength caps the page_title metadata value, in characters.
const pageTitleLength = 200

// titleSelectors are tried in order. The Open Graph title is set per page by the
// site's CMS, while <title> often repeats the site name.
var titleSelectors = []struct {
	selector string
	attr     string
}{
	{selector: `meta[property="og:title"]`, attr: "content"},
	{selector: "title"},
	{selector: "h1"},
}

// ExtractTitle returns the title recorded as page_title metadata. Readability's
// guess is the last resort for pages without any title markup.
func ExtractTitle(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", errors.Wrap(err, "parse page")
	}

	for _, ts := range titleSelectors {
		sel := doc.Find(ts.selector).First()
		text := sel.Text()
		if ts.attr != "" {
			text = sel.AttrOr(ts.attr, "")
		}
		if title := normalizeWhitespace(text); title != "" {
			return Truncate(title, pageTitleLength), nil
		}
	}

	if article, err := readability.FromReader(strings.NewReader(markup), nil); err == nil {
		if title := normalizeWhitespace(article.Title); title != "" {
			return Truncate(title, pageTitleLength), nil
		}
	}
	return "", ErrTitleNotFound
}
