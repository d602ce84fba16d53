package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

// ProgressService owns the per-(user, module) ledger. All writes are
// conditional upserts so concurrent batches from two devices converge without
// read-modify-write races.
type ProgressService struct {
	context.DefaultService

	db           *PostgresService
	events       *EventLogService
	entitlements *EntitlementService
	monitoring   *MonitoringService
}

const PROGRESS_SVC = "progress_svc"

func (svc ProgressService) Id() string {
	return PROGRESS_SVC
}

func (svc *ProgressService) Start() error {
	svc.db = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.events = svc.Service(EVENT_LOG_SVC).(*EventLogService)
	svc.entitlements = svc.Service(ENTITLEMENT_SVC).(*EntitlementService)
	svc.monitoring = svc.Service(MONITORING_SVC).(*MonitoringService)
	return nil
}

// ApplyEvents processes one client batch atomically. Each event is appended
// to the event log and folded into its module's progress row. Deltas below
// zero are clamped; time spent only ever grows.
func (svc *ProgressService) ApplyEvents(userID string, events []dto.ProgressEventRequest) error {
	now := time.Now().UTC()

	// Resolve every item up front so a bad reference rejects the whole batch
	// before any write.
	itemIDs := make([]string, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, evt := range events {
		if !seen[evt.ItemID] {
			seen[evt.ItemID] = true
			itemIDs = append(itemIDs, evt.ItemID)
		}
	}

	var items []model.Item
	if err := svc.db.Db().Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
		return svc.db.HandleError(err)
	}
	if len(items) != len(itemIDs) {
		return shared.NewBadRequestError(nil, "batch references unknown items")
	}

	moduleByItem := make(map[string]string, len(items))
	moduleIDs := make([]string, 0, len(items))
	for _, item := range items {
		moduleByItem[item.ID] = item.ModuleID
		moduleIDs = append(moduleIDs, item.ModuleID)
	}

	var modules []model.Module
	if err := svc.db.Db().Where("id IN ?", moduleIDs).Find(&modules).Error; err != nil {
		return svc.db.HandleError(err)
	}
	courseByModule := make(map[string]string, len(modules))
	for _, mod := range modules {
		courseByModule[mod.ID] = mod.CourseID
	}

	for _, courseID := range courseByModule {
		ok, err := svc.entitlements.HasCourseAccess(userID, courseID, now)
		if err != nil {
			return svc.db.HandleError(err)
		}
		if !ok {
			return shared.NewForbiddenError(nil, "no active entitlement for course")
		}
	}

	err := svc.db.Db().Transaction(func(tx *gorm.DB) error {
		for _, evt := range events {
			moduleID := moduleByItem[evt.ItemID]

			occurredAt := now
			if evt.Dt != nil {
				occurredAt = evt.Dt.UTC()
			}
			err := svc.events.Append(tx, shared.TopicProgressEvent, &userID, fiber.Map{
				"type":       evt.Type,
				"item_id":    evt.ItemID,
				"module_id":  moduleID,
				"delta_secs": evt.DeltaSecs,
			}, occurredAt)
			if err != nil {
				return err
			}

			if err = svc.upsertFromEvent(tx, userID, moduleID, &evt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if svc.monitoring != nil {
		svc.monitoring.ProgressEventsApplied(len(events))
	}
	return nil
}

// RecordAnonymousPings lands unauthenticated tracking events in the event
// log only; the progress ledger is never touched without a user.
func (svc *ProgressService) RecordAnonymousPings(events []dto.ProgressEventRequest) error {
	now := time.Now().UTC()
	return svc.db.Db().Transaction(func(tx *gorm.DB) error {
		for _, evt := range events {
			occurredAt := now
			if evt.Dt != nil {
				occurredAt = evt.Dt.UTC()
			}
			err := svc.events.Append(tx, shared.TopicTrackingPing, nil, fiber.Map{
				"type":       evt.Type,
				"item_id":    evt.ItemID,
				"delta_secs": evt.DeltaSecs,
			}, occurredAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// upsertFromEvent folds one event into the progress row. The conflict branch
// is a single SQL expression so both postgres and sqlite apply the same rule:
// completed always wins, an existing passed/completed never degrades, and
// everything else becomes started.
func (svc *ProgressService) upsertFromEvent(tx *gorm.DB, userID, moduleID string, evt *dto.ProgressEventRequest) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	status := shared.ProgressStarted
	if evt.Type == shared.EventCompleted {
		status = shared.ProgressCompleted
	}

	delta := evt.DeltaSecs
	if delta < 0 {
		delta = 0
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status": gorm.Expr(
				"CASE WHEN excluded.status = 'completed' THEN 'completed' " +
					"WHEN progress.status IN ('passed','completed') THEN progress.status " +
					"ELSE excluded.status END"),
			"time_spent_secs": gorm.Expr("progress.time_spent_secs + excluded.time_spent_secs"),
			"updated_at":      time.Now().UTC(),
		}),
	}).Create(&model.Progress{
		ID:            id.String(),
		UserID:        userID,
		ModuleID:      moduleID,
		Status:        status,
		TimeSpentSecs: delta,
	}).Error
}

// RecordGrading writes a quiz outcome. Grading is authoritative: it replaces
// whatever status the row holds, including a previous pass.
func (svc *ProgressService) RecordGrading(tx *gorm.DB, userID, moduleID, status string, score float64) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":     status,
			"score":      score,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&model.Progress{
		ID:       id.String(),
		UserID:   userID,
		ModuleID: moduleID,
		Status:   status,
		Score:    &score,
	}).Error
}

// CourseView assembles the per-module listing with unlock flags. Module
// order gates progression: the first module is always unlocked, each later
// one only once its predecessor's quiz is passed.
func (svc *ProgressService) CourseView(userID, courseID string) (*dto.CourseItemsResponse, error) {
	modules, err := svc.db.ListModules(courseID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	if len(modules) == 0 {
		if _, err = svc.db.GetCourse(courseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, shared.NewNotFoundError(err, "course not found")
			}
			return nil, svc.db.HandleError(err)
		}
	}

	progress, err := svc.db.GetProgressForCourse(userID, courseID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}

	resp := &dto.CourseItemsResponse{
		CourseID: courseID,
		Modules:  make([]dto.ModuleProgressResponse, 0, len(modules)),
	}

	unlocked := true
	for i := range modules {
		mod := &modules[i]
		row, hasRow := progress[mod.ID]

		if i > 0 {
			prev, ok := progress[modules[i-1].ID]
			unlocked = ok && prev.Status == shared.ProgressPassed
		}

		mp := dto.ModuleProgressResponse{
			ModuleID: mod.ID,
			Title:    mod.Title,
			Order:    mod.Order,
			Unlocked: unlocked,
			Status:   "not_started",
			Items:    make([]dto.ItemResponse, 0, len(mod.Items)),
		}
		if hasRow {
			mp.Status = row.Status
			mp.Score = row.Score
			mp.TimeSpentSecs = row.TimeSpentSecs
		}

		for j := range mod.Items {
			ir, err := itemResponse(&mod.Items[j])
			if err != nil {
				return nil, shared.NewInternalError(err, "corrupt item payload")
			}
			mp.Items = append(mp.Items, ir)
		}

		resp.Modules = append(resp.Modules, mp)
	}

	return resp, nil
}

// IsCourseComplete reports whether every module of the course has been
// finished (passed or completed). Courses with no modules are never complete.
func (svc *ProgressService) IsCourseComplete(userID, courseID string) (bool, error) {
	modules, err := svc.db.ListModules(courseID)
	if err != nil {
		return false, err
	}
	if len(modules) == 0 {
		return false, nil
	}

	progress, err := svc.db.GetProgressForCourse(userID, courseID)
	if err != nil {
		return false, err
	}

	for i := range modules {
		row, ok := progress[modules[i].ID]
		if !ok {
			return false, nil
		}
		if row.Status != shared.ProgressPassed && row.Status != shared.ProgressCompleted {
			return false, nil
		}
	}
	return true, nil
}

func itemResponse(item *model.Item) (dto.ItemResponse, error) {
	ir := dto.ItemResponse{
		ID:       item.ID,
		Type:     item.Type,
		Title:    item.Title,
		Position: item.Position,
	}

	payload, err := item.Payload()
	if err != nil {
		return ir, fmt.Errorf("item %s: %w", item.ID, err)
	}
	switch {
	case payload.Video != nil:
		ir.PlaybackID = payload.Video.PlaybackID
	case payload.Text != nil:
		ir.DocID = payload.Text.DocID
	case payload.Quiz != nil:
		ir.QuizID = payload.Quiz.QuizID
	}
	return ir, nil
}
