package seeders

import (
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skilltrail/academy_api/model"
)

// CatalogSeeder loads the fixture courses, modules, items and tracks. Ids are
// fixed strings so reseeding is idempotent and the quiz seeder can reference
// them.
type CatalogSeeder struct {
	db *gorm.DB
}

func NewCatalogSeeder(db *gorm.DB) *CatalogSeeder {
	return &CatalogSeeder{db: db}
}

type itemFixture struct {
	Type    string
	Title   string
	Payload interface{}
}

type moduleFixture struct {
	ID    string
	Title string
	Items []itemFixture
}

type courseFixture struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Modules     []moduleFixture
}

func catalogFixtures() []courseFixture {
	return []courseFixture{
		{
			ID:          "course_go_basics",
			Slug:        "go-basics",
			Title:       "Go Fundamentals",
			Description: "Syntax, types and tooling for new Go developers.",
			Modules: []moduleFixture{
				{
					ID:    "mod_go_basics_1",
					Title: "Getting Started",
					Items: []itemFixture{
						{Type: "video", Title: "Installing the toolchain", Payload: map[string]string{"playback_id": "pb_go_install"}},
						{Type: "text", Title: "Workspace layout", Payload: map[string]string{"doc_id": "doc_go_workspace"}},
						{Type: "quiz", Title: "Checkpoint: basics", Payload: map[string]string{"quiz_id": "quiz_go_basics_1"}},
					},
				},
				{
					ID:    "mod_go_basics_2",
					Title: "Types and Functions",
					Items: []itemFixture{
						{Type: "video", Title: "Structs and methods", Payload: map[string]string{"playback_id": "pb_go_structs"}},
						{Type: "quiz", Title: "Checkpoint: types", Payload: map[string]string{"quiz_id": "quiz_go_basics_2"}},
					},
				},
				{
					ID:    "mod_go_basics_3",
					Title: "Concurrency",
					Items: []itemFixture{
						{Type: "video", Title: "Goroutines and channels", Payload: map[string]string{"playback_id": "pb_go_conc"}},
						{Type: "text", Title: "Select patterns", Payload: map[string]string{"doc_id": "doc_go_select"}},
					},
				},
			},
		},
		{
			ID:          "course_sql_intro",
			Slug:        "sql-intro",
			Title:       "Practical SQL",
			Description: "Modeling, querying and indexing relational data.",
			Modules: []moduleFixture{
				{
					ID:    "mod_sql_1",
					Title: "Queries",
					Items: []itemFixture{
						{Type: "video", Title: "SELECT in depth", Payload: map[string]string{"playback_id": "pb_sql_select"}},
						{Type: "quiz", Title: "Checkpoint: queries", Payload: map[string]string{"quiz_id": "quiz_sql_1"}},
					},
				},
				{
					ID:    "mod_sql_2",
					Title: "Indexes",
					Items: []itemFixture{
						{Type: "text", Title: "B-tree mechanics", Payload: map[string]string{"doc_id": "doc_sql_btree"}},
					},
				},
			},
		},
	}
}

func (s *CatalogSeeder) SeedCatalog() error {
	for _, cf := range catalogFixtures() {
		course := model.Course{
			ID:          cf.ID,
			Slug:        cf.Slug,
			Title:       cf.Title,
			Description: cf.Description,
			IsActive:    true,
		}
		if err := s.upsert(&course); err != nil {
			return fmt.Errorf("course %s: %w", cf.Slug, err)
		}

		for order, mf := range cf.Modules {
			mod := model.Module{
				ID:       mf.ID,
				CourseID: cf.ID,
				Title:    mf.Title,
				Order:    order,
			}
			if err := s.upsert(&mod); err != nil {
				return fmt.Errorf("module %s: %w", mf.ID, err)
			}

			for pos, itf := range mf.Items {
				payload, err := json.Marshal(itf.Payload)
				if err != nil {
					return err
				}
				item := model.Item{
					ID:         fmt.Sprintf("%s_item_%d", mf.ID, pos),
					ModuleID:   mf.ID,
					Type:       itf.Type,
					Title:      itf.Title,
					Position:   pos,
					PayloadRef: payload,
				}
				if err := s.upsert(&item); err != nil {
					return fmt.Errorf("item %s: %w", item.ID, err)
				}
			}
		}
	}

	if err := s.seedTracks(); err != nil {
		return err
	}

	log.Println("Catalog seeding complete")
	return nil
}

func (s *CatalogSeeder) seedTracks() error {
	track := model.Track{
		ID:          "track_backend",
		Slug:        "backend-path",
		Title:       "Backend Developer Path",
		Description: "Go plus the database skills to ship a service.",
		IsActive:    true,
	}
	if err := s.upsert(&track); err != nil {
		return err
	}

	links := []model.TrackCourse{
		{ID: "tc_backend_go", TrackID: track.ID, CourseID: "course_go_basics", Position: 0, Required: true},
		{ID: "tc_backend_sql", TrackID: track.ID, CourseID: "course_sql_intro", Position: 1, Required: true},
	}
	for i := range links {
		if err := s.upsert(&links[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *CatalogSeeder) upsert(value interface{}) error {
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}
