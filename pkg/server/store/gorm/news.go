package gorm

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// Ensure NewsStore implements store.NewsStore
var _ store.NewsStore = (*NewsStore)(nil)

const maxNewsLimit = 100

// NewsStore implements store.NewsStore using GORM
type NewsStore struct {
	db *gorm.DB
}

// NewNewsStore creates a new NewsStore
func NewNewsStore(db *gorm.DB) *NewsStore {
	return &NewsStore{db: db}
}

// UpsertItems inserts items, refreshing title, link and summary on GUID conflict
func (s *NewsStore) UpsertItems(items []model.NewsItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guid"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "link", "summary", "fetched_at"}),
	}).Create(&items)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// ListItems returns the newest items, optionally restricted to one source
func (s *NewsStore) ListItems(source string, limit int) ([]model.NewsItem, error) {
	if limit <= 0 || limit > maxNewsLimit {
		limit = maxNewsLimit
	}
	q := s.db.Order("published_at desc, id desc").Limit(limit)
	if source != "" {
		q = q.Where("source = ?", source)
	}

	var items []model.NewsItem
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// PruneOlderThan deletes items published before t
func (s *NewsStore) PruneOlderThan(t time.Time) (int64, error) {
	res := s.db.Where("published_at < ?", t).Delete(&model.NewsItem{})
	return res.RowsAffected, res.Error
}
