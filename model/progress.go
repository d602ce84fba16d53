// model/progress.go
package model

import "time"

// Progress is exactly one row per (user, module), upserted and never deleted.
// TimeSpentSecs only ever grows.
type Progress struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	UserID        string    `json:"user_id" gorm:"uniqueIndex:ux_progress_user_module,priority:1;not null"`
	ModuleID      string    `json:"module_id" gorm:"uniqueIndex:ux_progress_user_module,priority:2;not null"`
	Status        string    `json:"status" gorm:"not null"` // started | passed | failed | completed
	Score         *float64  `json:"score"`
	TimeSpentSecs int64     `json:"time_spent_secs" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Progress) TableName() string { return "progress" }
