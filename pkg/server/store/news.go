package store

import (
	"time"

	"github.com/halyard-advisory/halyard/pkg/model"
)

// NewsStore persists ingested feed items keyed by GUID
type NewsStore interface {
	// UpsertItems inserts new items and refreshes existing ones by GUID.
	UpsertItems(items []model.NewsItem) (int, error)

	// ListItems returns the newest items, optionally for one source.
	ListItems(source string, limit int) ([]model.NewsItem, error)

	PruneOlderThan(t time.Time) (int64, error)
}
