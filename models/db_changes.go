package models

import (
	"time"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// DBChange is one entry of the change feed consumed by the change monitor.
type DBChange struct {
	ID         uint      `gorm:"primaryKey"`
	TableName  string    `gorm:"type:varchar(50);not null;index:idx_table_action"`
	RecordID   string    `gorm:"type:varchar(64);not null"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_table_action"`
	ChangedAt  time.Time `gorm:"not null"`
	Processed  bool      `gorm:"default:false;index:idx_processed"`
}
