package services

import (
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

// IdempotencyService is the replay guard for externally-keyed operations.
// Claiming a key is a single conditional insert so concurrent processors of
// the same delivery race safely: exactly one wins.
type IdempotencyService struct {
	context.DefaultService
}

const IDEMPOTENCY_SVC = "idempotency_svc"

func (svc IdempotencyService) Id() string {
	return IDEMPOTENCY_SVC
}

func (svc *IdempotencyService) Start() error {
	return nil
}

// Begin claims (key, scope) inside tx. It returns false when a row already
// exists, regardless of its status: a processing row means another worker is
// mid-flight and the caller must back off, not take over.
func (svc *IdempotencyService) Begin(tx *gorm.DB, key, scope string) (bool, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return false, err
	}

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "scope"}},
		DoNothing: true,
	}).Create(&model.IdempotencyKey{
		ID:     id.String(),
		Key:    key,
		Scope:  scope,
		Status: shared.IdempotencyProcessing,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Finish records the terminal status of a claimed key.
func (svc *IdempotencyService) Finish(tx *gorm.DB, key, scope, status string, responseHash *string) error {
	return tx.Model(&model.IdempotencyKey{}).
		Where("key = ? AND scope = ?", key, scope).
		Updates(map[string]interface{}{
			"status":        status,
			"response_hash": responseHash,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// Lookup returns the ledger row for (key, scope), or gorm.ErrRecordNotFound.
func (svc *IdempotencyService) Lookup(tx *gorm.DB, key, scope string) (*model.IdempotencyKey, error) {
	var row model.IdempotencyKey
	if err := tx.First(&row, "key = ? AND scope = ?", key, scope).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
