package feeds

import (
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/halyard-advisory/halyard/pkg/model"
)

// SummaryLimit is the maximum summary length in runes, ellipsis included
const SummaryLimit = 280

const ellipsis = "…"

var stripPolicy = bluemonday.StrictPolicy()

// Normalize maps a parsed feed item onto a NewsItem. The second return value
// is false for items with neither a title nor a link.
func Normalize(source string, item *gofeed.Item, now time.Time) (model.NewsItem, bool) {
	if item == nil {
		return model.NewsItem{}, false
	}

	title := collapseSpace(stripHTML(item.Title))
	link := strings.TrimSpace(item.Link)
	if title == "" && link == "" {
		return model.NewsItem{}, false
	}
	if title == "" {
		title = link
	}

	guid := strings.TrimSpace(item.GUID)
	if guid == "" {
		guid = link
	}
	if guid == "" {
		guid = source + ":" + title
	}

	raw := item.Description
	if strings.TrimSpace(raw) == "" {
		raw = item.Content
	}
	summary := Truncate(collapseSpace(stripHTML(raw)), SummaryLimit)

	published := now
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	return model.NewsItem{
		GUID:        guid,
		Source:      source,
		Title:       title,
		Link:        link,
		Summary:     summary,
		PublishedAt: published.UTC(),
		FetchedAt:   now.UTC(),
	}, true
}

func stripHTML(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most limit runes, cutting at the last word
// boundary and appending an ellipsis.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	cut := runes[:limit-1]
	if i := lastSpace(cut); i > 0 {
		cut = cut[:i]
	}
	trimmed := strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return trimmed + ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
