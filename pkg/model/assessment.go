package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IntMap is a string to int map persisted as a JSONB column
type IntMap map[string]int

// Value implements driver.Valuer
func (m IntMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *IntMap) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = IntMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into IntMap", src)
	}
	out := IntMap{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// AssessmentSubmission is a scored AI-readiness quiz entry from a lead
type AssessmentSubmission struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"column:name" json:"name"`
	Email          string    `gorm:"column:email" json:"email"`
	Company        string    `gorm:"column:company" json:"company"`
	Role           string    `gorm:"column:role" json:"role"`
	Answers        IntMap    `gorm:"column:answers;type:jsonb" json:"answers"`
	Score          int       `gorm:"column:score" json:"score"`
	Tier           string    `gorm:"column:tier" json:"tier"`
	CategoryScores IntMap    `gorm:"column:category_scores;type:jsonb" json:"category_scores"`
	FocusArea      string    `gorm:"column:focus_area" json:"focus_area"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AssessmentSubmission) TableName() string {
	return "assessment_submissions"
}
