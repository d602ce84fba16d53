package seeders

import (
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skilltrail/academy_api/model"
)

// DemoSeeder creates a demo learner with a course entitlement and a track
// entitlement, for local end-to-end runs.
type DemoSeeder struct {
	db *gorm.DB
}

func NewDemoSeeder(db *gorm.DB) *DemoSeeder {
	return &DemoSeeder{db: db}
}

func (s *DemoSeeder) SeedDemo() error {
	user := model.User{
		ID:       "user_demo",
		Email:    "demo@example.com",
		FullName: "Demo Learner",
	}
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&user).Error
	if err != nil {
		return err
	}

	courseID := "course_go_basics"
	trackID := "track_backend"
	yearEnd := time.Now().UTC().AddDate(1, 0, 0)

	entitlements := []model.Entitlement{
		{
			ID:       "ent_demo_course",
			UserID:   user.ID,
			CourseID: &courseID,
			Source:   "grant",
			StartsAt: time.Now().UTC().AddDate(0, 0, -1),
		},
		{
			ID:       "ent_demo_track",
			UserID:   user.ID,
			TrackID:  &trackID,
			Source:   "grant",
			StartsAt: time.Now().UTC().AddDate(0, 0, -1),
			EndsAt:   &yearEnd,
		},
	}
	for i := range entitlements {
		err = s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entitlements[i]).Error
		if err != nil {
			return err
		}
	}

	log.Println("Demo seeding complete")
	return nil
}
