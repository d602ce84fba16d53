package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skilltrail/academy_api/model"
)

// newTestDB opens a named in-memory sqlite database per test so parallel
// tests never share state through the connection pool.
func newTestDB(t *testing.T) *PostgresService {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Models()...))

	return &PostgresService{db: db, driver: "sqlite", dsn: dsn}
}

func newTestStack(t *testing.T, enforce bool) (*PostgresService, *EventLogService, *EntitlementService, *ProgressService) {
	t.Helper()

	db := newTestDB(t)
	events := &EventLogService{db: db}
	ents := &EntitlementService{db: db, enforce: enforce}
	progress := &ProgressService{db: db, events: events, entitlements: ents}
	return db, events, ents, progress
}

func seedUser(t *testing.T, db *PostgresService, id, email string) {
	t.Helper()
	require.NoError(t, db.Db().Create(&model.User{ID: id, Email: email}).Error)
}

// seedCourse creates a course with n modules, one video item each.
func seedCourse(t *testing.T, db *PostgresService, courseID string, moduleCount int) []model.Module {
	t.Helper()

	require.NoError(t, db.Db().Create(&model.Course{
		ID: courseID, Slug: courseID, Title: courseID, IsActive: true,
	}).Error)

	modules := make([]model.Module, 0, moduleCount)
	for i := 0; i < moduleCount; i++ {
		mod := model.Module{
			ID:       fmt.Sprintf("%s_mod_%d", courseID, i),
			CourseID: courseID,
			Title:    fmt.Sprintf("Module %d", i+1),
			Order:    i,
		}
		require.NoError(t, db.Db().Create(&mod).Error)

		payload, _ := json.Marshal(map[string]string{"playback_id": "pb_" + mod.ID})
		require.NoError(t, db.Db().Create(&model.Item{
			ID:         mod.ID + "_item_0",
			ModuleID:   mod.ID,
			Type:       "video",
			Title:      "Lesson",
			Position:   0,
			PayloadRef: payload,
		}).Error)

		modules = append(modules, mod)
	}
	return modules
}

func seedQuiz(t *testing.T, db *PostgresService, quizID, moduleID string, passScore int, keys ...[]string) {
	t.Helper()

	require.NoError(t, db.Db().Create(&model.Quiz{
		ID: quizID, ModuleID: moduleID, Title: "Checkpoint", PassScore: passScore,
	}).Error)

	for i, key := range keys {
		answerKey, _ := json.Marshal(key)
		choices, _ := json.Marshal([]model.Choice{
			{ID: "A", Text: "A"}, {ID: "B", Text: "B"}, {ID: "C", Text: "C"},
		})
		require.NoError(t, db.Db().Create(&model.Question{
			ID:        fmt.Sprintf("%s_q%d", quizID, i),
			QuizID:    quizID,
			Kind:      "multiple",
			Body:      fmt.Sprintf("Question %d", i+1),
			Position:  i,
			Choices:   choices,
			AnswerKey: answerKey,
		}).Error)
	}
}
