// model/catalog.go
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Course is a catalog entity, mutated only by admin collaborators.
type Course struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"uniqueIndex"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Modules []Module `json:"modules,omitempty" gorm:"foreignKey:CourseID"`
}

// Track groups courses with order and required flags.
type Track struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"uniqueIndex"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TrackCourse links a course into a track.
type TrackCourse struct {
	ID       string `json:"id" gorm:"primaryKey"`
	TrackID  string `json:"track_id" gorm:"uniqueIndex:ux_track_course,priority:1;not null"`
	CourseID string `json:"course_id" gorm:"uniqueIndex:ux_track_course,priority:2;not null"`
	Position int    `json:"position" gorm:"not null"`
	Required bool   `json:"required" gorm:"default:true"`
}

// Module is an ordered unit within a course; the order gates progression.
type Module struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CourseID  string    `json:"course_id" gorm:"uniqueIndex:ux_course_order,priority:1;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Order     int       `json:"order" gorm:"column:position;uniqueIndex:ux_course_order,priority:2;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []Item `json:"items,omitempty" gorm:"foreignKey:ModuleID"`
	Quiz  *Quiz  `json:"quiz,omitempty" gorm:"foreignKey:ModuleID"`
}

// Item is a typed leaf inside a module. PayloadRef is an opaque JSON blob
// whose meaning depends on Type; use Payload() instead of parsing it ad hoc.
type Item struct {
	ID         string          `json:"id" gorm:"primaryKey"`
	ModuleID   string          `json:"module_id" gorm:"index;not null"`
	Type       string          `json:"type" gorm:"not null"` // video | text | quiz
	Title      string          `json:"title"`
	Position   int             `json:"position" gorm:"not null"`
	PayloadRef json.RawMessage `json:"payload_ref" gorm:"type:text"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ItemPayload is the decoded form of Item.PayloadRef, one variant per item
// type. Exactly one of the pointers is set.
type ItemPayload struct {
	Video *VideoPayload
	Text  *TextPayload
	Quiz  *QuizPayload
}

type VideoPayload struct {
	PlaybackID string `json:"playback_id"`
}

type TextPayload struct {
	DocID string `json:"doc_id"`
}

type QuizPayload struct {
	QuizID string `json:"quiz_id"`
}

// Payload resolves the opaque payload reference once, at the data-access
// boundary.
func (i *Item) Payload() (ItemPayload, error) {
	var p ItemPayload
	switch i.Type {
	case "video":
		p.Video = &VideoPayload{}
		return p, json.Unmarshal(i.PayloadRef, p.Video)
	case "text":
		p.Text = &TextPayload{}
		return p, json.Unmarshal(i.PayloadRef, p.Text)
	case "quiz":
		p.Quiz = &QuizPayload{}
		return p, json.Unmarshal(i.PayloadRef, p.Quiz)
	default:
		return p, fmt.Errorf("unknown item type %q", i.Type)
	}
}

// Quiz is one-to-one with a module. PassScore is a percentage, 0-100,
// inclusive threshold.
type Quiz struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	ModuleID  string    `json:"module_id" gorm:"uniqueIndex;not null"`
	Title     string    `json:"title"`
	PassScore int       `json:"pass_score" gorm:"default:70"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

// Question holds its choices and answer key as JSON columns. Grading is
// exact-set-match on choice ids, no partial credit.
type Question struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	QuizID    string          `json:"quiz_id" gorm:"index;not null"`
	Kind      string          `json:"kind" gorm:"not null"` // single | multiple | truefalse
	Body      string          `json:"body" gorm:"type:text"`
	Position  int             `json:"position"`
	Choices   json.RawMessage `json:"choices" gorm:"type:text"`    // []Choice
	AnswerKey json.RawMessage `json:"answer_key" gorm:"type:text"` // []string of choice ids
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CorrectChoiceIDs decodes the stored answer key.
func (q *Question) CorrectChoiceIDs() ([]string, error) {
	var ids []string
	if err := json.Unmarshal(q.AnswerKey, &ids); err != nil {
		return nil, fmt.Errorf("question %s: bad answer key: %w", q.ID, err)
	}
	return ids, nil
}
