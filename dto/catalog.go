package dto

type CatalogResponse struct {
	Courses []CourseSummary `json:"courses"`
	Tracks  []TrackSummary  `json:"tracks"`
}

type CourseSummary struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ModuleCount int    `json:"module_count"`
	ItemCount   int    `json:"item_count"`
}

type TrackSummary struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CourseIDs   []string `json:"course_ids"`
}

// ItemResponse exposes exactly one payload field depending on Type.
type ItemResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Position   int    `json:"position"`
	PlaybackID string `json:"playback_id,omitempty"`
	DocID      string `json:"doc_id,omitempty"`
	QuizID     string `json:"quiz_id,omitempty"`
}
