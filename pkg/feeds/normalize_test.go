package feeds

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_StripsAndCollapses(t *testing.T) {
	published := time.Date(2025, 2, 27, 8, 30, 0, 0, time.FixedZone("EST", -5*3600))
	item := &gofeed.Item{
		Title:           "  New   <b>model</b>\n released ",
		Link:            " https://lab.example.com/post ",
		GUID:            "urn:lab:1",
		Description:     "<p>Faster &amp; <em>cheaper</em>.</p><script>alert(1)</script>",
		PublishedParsed: &published,
	}

	got, ok := Normalize("lab", item, now)
	assert.True(t, ok)
	assert.Equal(t, "New model released", got.Title)
	assert.Equal(t, "https://lab.example.com/post", got.Link)
	assert.Equal(t, "urn:lab:1", got.GUID)
	assert.Equal(t, "Faster & cheaper.", got.Summary)
	assert.Equal(t, published.UTC(), got.PublishedAt)
	assert.Equal(t, time.UTC, got.PublishedAt.Location())
	assert.Equal(t, "lab", got.Source)
}

func TestNormalize_Fallbacks(t *testing.T) {
	updated := now.Add(-time.Hour)

	t.Run("guid falls back to link", func(t *testing.T) {
		got, ok := Normalize("lab", &gofeed.Item{Title: "A", Link: "https://x.example/a"}, now)
		assert.True(t, ok)
		assert.Equal(t, "https://x.example/a", got.GUID)
	})

	t.Run("guid falls back to source and title", func(t *testing.T) {
		got, _ := Normalize("lab", &gofeed.Item{Title: "Only a title"}, now)
		assert.Equal(t, "lab:Only a title", got.GUID)
	})

	t.Run("summary falls back to content", func(t *testing.T) {
		got, _ := Normalize("lab", &gofeed.Item{Title: "A", Content: "<div>Body text</div>"}, now)
		assert.Equal(t, "Body text", got.Summary)
	})

	t.Run("published falls back to updated then now", func(t *testing.T) {
		got, _ := Normalize("lab", &gofeed.Item{Title: "A", UpdatedParsed: &updated}, now)
		assert.Equal(t, updated, got.PublishedAt)

		got, _ = Normalize("lab", &gofeed.Item{Title: "A"}, now)
		assert.Equal(t, now, got.PublishedAt)
	})

	t.Run("title falls back to link", func(t *testing.T) {
		got, ok := Normalize("lab", &gofeed.Item{Link: "https://x.example/b"}, now)
		assert.True(t, ok)
		assert.Equal(t, "https://x.example/b", got.Title)
	})

	t.Run("items without title or link are dropped", func(t *testing.T) {
		_, ok := Normalize("lab", &gofeed.Item{Description: "orphan"}, now)
		assert.False(t, ok)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	long := strings.Repeat("word ", 100)
	got := Truncate(long, SummaryLimit)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), SummaryLimit)
	assert.True(t, strings.HasSuffix(got, "word…"))

	assert.Equal(t, "The quick…", Truncate("The quick, brown fox", 12))

	unbroken := strings.Repeat("é", 300)
	got = Truncate(unbroken, SummaryLimit)
	assert.Equal(t, SummaryLimit, utf8.RuneCountInString(got))
}
