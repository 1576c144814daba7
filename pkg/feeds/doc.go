// Package feeds ingests external RSS and Atom news feeds.
//
// Feeds are parsed with gofeed and each item is normalized into a
// model.NewsItem: HTML is stripped from titles and summaries, whitespace is
// collapsed, summaries are shortened to SummaryLimit runes on a word
// boundary, and a stable GUID is derived when the feed omits one (link,
// then source and title). Items are upserted by GUID so refreshes are
// idempotent.
package feeds
