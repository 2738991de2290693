package models

import (
	"time"
)

// Situation is a caption-like grouping for media ("ceremony", "afterparty").
// Guests may retag their media to any situation at any time.
type Situation struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name
func (Situation) TableName() string {
	return "situations"
}
