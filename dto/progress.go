package dto

import "time"

type ProgressEventRequest struct {
	Type      string     `json:"type" validate:"required,oneof=started paused seeked completed heartbeat"`
	ItemID    string     `json:"item_id" validate:"required"`
	Dt        *time.Time `json:"dt"`
	DeltaSecs int64      `json:"delta_secs"`
}

type ApplyProgressRequest struct {
	Events []ProgressEventRequest `json:"events" validate:"required,min=1,max=100,dive"`
}

func (r ApplyProgressRequest) Validate() error {
	return validate.Struct(r)
}

type ModuleProgressResponse struct {
	ModuleID      string         `json:"module_id"`
	Title         string         `json:"title"`
	Order         int            `json:"order"`
	Unlocked      bool           `json:"unlocked"`
	Status        string         `json:"status"`
	Score         *float64       `json:"score,omitempty"`
	TimeSpentSecs int64          `json:"time_spent_secs"`
	Items         []ItemResponse `json:"items"`
}

type CourseItemsResponse struct {
	CourseID string                   `json:"course_id"`
	Modules  []ModuleProgressResponse `json:"modules"`
}
