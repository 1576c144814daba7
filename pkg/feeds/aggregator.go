package feeds

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/metrics"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

const (
	fetchTimeout = 20 * time.Second
	userAgent    = "HalyardNewsBot/1.0"
	// Retention keeps the news table bounded
	Retention = 90 * 24 * time.Hour
)

// Source is a named RSS or Atom feed
type Source = config.FeedSource

// Fetcher retrieves and parses one feed
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// HTTPFetcher fetches feeds over HTTP with gofeed
type HTTPFetcher struct {
	parser *gofeed.Parser
}

// NewHTTPFetcher creates a fetcher using the given client, or a default one
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &HTTPFetcher{parser: parser}
}

// Fetch parses the feed at url. RSS 0.9x-2.0, RSS 1.0 and Atom are supported.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	return f.parser.ParseURLWithContext(url, ctx)
}

// SourceResult is the outcome of refreshing one source
type SourceResult struct {
	Items int    `json:"items"`
	Error string `json:"error,omitempty"`
}

// Report maps source names to their refresh outcome
type Report map[string]SourceResult

// Aggregator ingests all configured feeds into the news store
type Aggregator struct {
	sources []Source
	fetcher Fetcher
	news    store.NewsStore
	logger  logrus.FieldLogger
	now     func() time.Time

	mu sync.Mutex
}

// NewAggregator creates an aggregator for the given sources
func NewAggregator(sources []Source, fetcher Fetcher, news store.NewsStore, logger logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		sources: sources,
		fetcher: fetcher,
		news:    news,
		logger:  logger.WithField("component", "feeds"),
		now:     time.Now,
	}
}

// Sources returns the configured sources
func (a *Aggregator) Sources() []Source {
	return a.sources
}

// Refresh fetches every source and upserts the normalized items. A failing
// source is reported and does not stop the others. Concurrent calls are
// serialized.
func (a *Aggregator) Refresh(ctx context.Context) Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := make(Report, len(a.sources))
	for _, src := range a.sources {
		if ctx.Err() != nil {
			report[src.Name] = SourceResult{Error: ctx.Err().Error()}
			continue
		}

		n, err := a.refreshSource(ctx, src)
		metrics.RecordFeedFetch(src.Name, n, err)
		if err != nil {
			a.logger.WithError(err).WithField("source", src.Name).Warn("feed refresh failed")
			report[src.Name] = SourceResult{Error: err.Error()}
			continue
		}
		a.logger.WithFields(logrus.Fields{"source": src.Name, "items": n}).Debug("feed refreshed")
		report[src.Name] = SourceResult{Items: n}
	}

	if _, err := a.news.PruneOlderThan(a.now().Add(-Retention)); err != nil {
		a.logger.WithError(err).Warn("failed to prune old news items")
	}
	return report
}

func (a *Aggregator) refreshSource(ctx context.Context, src Source) (int, error) {
	feed, err := a.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", src.URL, err)
	}

	now := a.now()
	seen := make(map[string]bool, len(feed.Items))
	items := make([]model.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item, ok := Normalize(src.Name, it, now)
		if !ok || seen[item.GUID] {
			continue
		}
		seen[item.GUID] = true
		items = append(items, item)
	}

	n, err := a.news.UpsertItems(items)
	if err != nil {
		return 0, fmt.Errorf("store items: %w", err)
	}
	return n, nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) {
	if len(a.sources) == 0 || interval <= 0 {
		return
	}

	a.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx)
		}
	}
}
