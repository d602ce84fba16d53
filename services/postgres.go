package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skilltrail/academy_api/model"
)

// PostgresService owns the relational store. DB_DRIVER=sqlite switches to the
// embedded driver (local runs, seeding); production uses postgres.
type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	driver string
	dsn    string
}

const POSTGRES_SVC = "postgres_svc"

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

// Db Access to raw PostgresService db
func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.driver = os.Getenv("DB_DRIVER")
	if ds.driver == "" {
		ds.driver = "postgres"
	}
	ds.dsn = os.Getenv("DB_DSN")

	return ds.DefaultService.Configure(ctx)
}

// Start opens the connection and migrates any tables that have changed since
// last runtime.
func (ds *PostgresService) Start() (err error) {
	var dialector gorm.Dialector
	switch ds.driver {
	case "sqlite":
		dialector = sqlite.Open(ds.dsn)
	default:
		dialector = postgres.Open(ds.dsn)
	}

	ds.db, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return err
	}

	if err = ds.db.AutoMigrate(Models()...); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

func (ds *PostgresService) Shutdown() {
}

// Models lists every table this core owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Course{},
		&model.Track{},
		&model.TrackCourse{},
		&model.Module{},
		&model.Item{},
		&model.Quiz{},
		&model.Question{},
		&model.Entitlement{},
		&model.Progress{},
		&model.Purchase{},
		&model.Membership{},
		&model.CertificateIssue{},
		&model.IdempotencyKey{},
		&model.EventLog{},
		&model.WebhookInbox{},
	}
}

// ==================== USERS ====================

func (ds *PostgresService) GetUser(userID string) (*model.User, error) {
	var user model.User
	if err := ds.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *PostgresService) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := ds.db.First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ==================== CATALOG ====================

func (ds *PostgresService) ListActiveCourses() ([]model.Course, error) {
	var courses []model.Course
	err := ds.db.Preload("Modules").Preload("Modules.Items").
		Where("is_active = ?", true).Order("title asc").Find(&courses).Error
	return courses, err
}

func (ds *PostgresService) ListActiveTracks() ([]model.Track, error) {
	var tracks []model.Track
	err := ds.db.Where("is_active = ?", true).Order("title asc").Find(&tracks).Error
	return tracks, err
}

func (ds *PostgresService) ListTrackCourses(trackID string) ([]model.TrackCourse, error) {
	var links []model.TrackCourse
	err := ds.db.Where("track_id = ?", trackID).Order("position asc").Find(&links).Error
	return links, err
}

func (ds *PostgresService) GetCourse(courseID string) (*model.Course, error) {
	var course model.Course
	if err := ds.db.First(&course, "id = ?", courseID).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// ListModules returns a course's modules in gate order with items and quiz.
func (ds *PostgresService) ListModules(courseID string) ([]model.Module, error) {
	var modules []model.Module
	err := ds.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("items.position asc")
	}).Preload("Quiz").
		Where("course_id = ?", courseID).Order("position asc").Find(&modules).Error
	return modules, err
}

func (ds *PostgresService) GetItem(itemID string) (*model.Item, error) {
	var item model.Item
	if err := ds.db.First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (ds *PostgresService) GetModule(moduleID string) (*model.Module, error) {
	var mod model.Module
	if err := ds.db.First(&mod, "id = ?", moduleID).Error; err != nil {
		return nil, err
	}
	return &mod, nil
}

func (ds *PostgresService) GetQuiz(quizID string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := ds.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.position asc")
	}).First(&quiz, "id = ?", quizID).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// ==================== PROGRESS ====================

// GetProgressForCourse returns progress rows for every module of the course,
// keyed by module id.
func (ds *PostgresService) GetProgressForCourse(userID, courseID string) (map[string]model.Progress, error) {
	var rows []model.Progress
	err := ds.db.
		Joins("JOIN modules ON modules.id = progress.module_id").
		Where("progress.user_id = ? AND modules.course_id = ?", userID, courseID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byModule := make(map[string]model.Progress, len(rows))
	for _, row := range rows {
		byModule[row.ModuleID] = row
	}
	return byModule, nil
}

func (ds *PostgresService) GetProgress(userID, moduleID string) (*model.Progress, error) {
	var row model.Progress
	if err := ds.db.First(&row, "user_id = ? AND module_id = ?", userID, moduleID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ==================== ERROR CLASSIFICATION ====================

func (ds *PostgresService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "duplicate key value") {
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		} else {
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}
