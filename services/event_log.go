package services

import (
	"time"

	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skilltrail/academy_api/model"
)

// EventLogService is the append-only audit trail. Append participates in the
// caller's transaction so a domain write and its event land atomically.
type EventLogService struct {
	context.DefaultService

	db *PostgresService
}

const EVENT_LOG_SVC = "event_log_svc"

func (svc EventLogService) Id() string {
	return EVENT_LOG_SVC
}

func (svc *EventLogService) Start() error {
	svc.db = svc.Service(POSTGRES_SVC).(*PostgresService)
	return nil
}

// Append writes one event row inside tx. occurredAt is the client-reported
// time; received_at is always server time.
func (svc *EventLogService) Append(tx *gorm.DB, topic string, actorID *string, payload interface{}, occurredAt time.Time) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}

	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return tx.Create(&model.EventLog{
		ID:         id.String(),
		Topic:      topic,
		ActorID:    actorID,
		Payload:    body,
		OccurredAt: occurredAt.UTC(),
		ReceivedAt: time.Now().UTC(),
	}).Error
}

// ListByTopic returns the newest events first, capped at limit.
func (svc *EventLogService) ListByTopic(topic string, limit int) ([]model.EventLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var events []model.EventLog
	q := svc.db.Db().Order("received_at desc").Limit(limit)
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
