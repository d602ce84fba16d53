// model/event.go
package model

import (
	"encoding/json"
	"time"
)

// EventLog is append-only: rows are never updated or deleted here.
// OccurredAt is the client/provider-reported time; ReceivedAt is ours.
type EventLog struct {
	ID         string          `json:"id" gorm:"primaryKey"`
	Topic      string          `json:"topic" gorm:"index;not null"`
	ActorID    *string         `json:"actor_id" gorm:"index"`
	Payload    json.RawMessage `json:"payload" gorm:"type:text"`
	OccurredAt time.Time       `json:"occurred_at" gorm:"not null"`
	ReceivedAt time.Time       `json:"received_at" gorm:"not null"`
}

func (EventLog) TableName() string { return "event_log" }

// IdempotencyKey blocks reprocessing: a row in processing or succeeded state
// for (key, scope) means the side effects were, or are being, applied.
type IdempotencyKey struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Key          string    `json:"key" gorm:"uniqueIndex:ux_idem_key_scope,priority:1;not null"`
	Scope        string    `json:"scope" gorm:"uniqueIndex:ux_idem_key_scope,priority:2;not null"`
	Status       string    `json:"status" gorm:"not null"` // processing | succeeded | failed
	ResponseHash *string   `json:"response_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WebhookInbox records every raw provider delivery once, keyed by
// (provider, provider_event_id), independent of the idempotency ledger.
type WebhookInbox struct {
	ID              string          `json:"id" gorm:"primaryKey"`
	Provider        string          `json:"provider" gorm:"uniqueIndex:ux_inbox_provider_event,priority:1;not null"`
	ProviderEventID string          `json:"provider_event_id" gorm:"uniqueIndex:ux_inbox_provider_event,priority:2;not null"`
	Payload         json.RawMessage `json:"payload" gorm:"type:text"`
	ReceivedAt      time.Time       `json:"received_at" gorm:"not null"`
}

func (WebhookInbox) TableName() string { return "webhook_inbox" }
