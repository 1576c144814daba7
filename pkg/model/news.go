package model

import "time"

// NewsItem is a normalized entry from an external RSS or Atom feed
type NewsItem struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	GUID        string    `gorm:"column:guid;uniqueIndex" json:"guid"`
	Source      string    `gorm:"column:source" json:"source"`
	Title       string    `gorm:"column:title" json:"title"`
	Link        string    `gorm:"column:link" json:"link"`
	Summary     string    `gorm:"column:summary" json:"summary"`
	PublishedAt time.Time `gorm:"column:published_at" json:"published_at"`
	FetchedAt   time.Time `gorm:"column:fetched_at" json:"fetched_at"`
}

func (NewsItem) TableName() string {
	return "news_items"
}
