package models

import "github.com/angelmondragon/workbooks-backend/pkg/enums"

// Workbook is the materialized workbooks row keyed by (owner_id, id).
// Timestamps are epoch milliseconds.
type Workbook struct {
	OwnerID             string         `gorm:"column:owner_id;primaryKey"`
	ID                  string         `gorm:"column:id;primaryKey"`
	OwnerDisplayName    string         `gorm:"column:owner_display_name;not null"`
	Title               string         `gorm:"column:title;not null"`
	Path                string         `gorm:"column:path;not null"`
	IsFlagged           bool           `gorm:"column:is_flagged;not null"`
	StartDate           int64          `gorm:"column:start_date;not null"`
	TargetDate          int64          `gorm:"column:target_date;not null"`
	Priority            enums.Priority `gorm:"column:priority;not null"`
	PercentageCompleted int            `gorm:"column:percentage_completed;not null"`
	CreatedAtMillis     int64          `gorm:"column:created_at;not null"`
	UpdatedAtMillis     int64          `gorm:"column:updated_at;not null"`
}

func (Workbook) TableName() string {
	return "workbooks"
}
