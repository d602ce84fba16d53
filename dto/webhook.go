package dto

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentEventKind is the closed set of provider event variants this core
// acts on. Anything else decodes to KindUnknown and is event-logged only.
type PaymentEventKind string

const (
	KindCheckoutPayment      PaymentEventKind = "checkout_payment"
	KindCheckoutSubscription PaymentEventKind = "checkout_subscription"
	KindSubscriptionCreated  PaymentEventKind = "subscription_created"
	KindSubscriptionUpdated  PaymentEventKind = "subscription_updated"
	KindSubscriptionDeleted  PaymentEventKind = "subscription_deleted"
	KindUnknown              PaymentEventKind = "unknown"
)

// PaymentEvent is the decoded form of a provider webhook delivery. The raw
// payload is parsed exactly once, here; downstream code switches on Kind.
type PaymentEvent struct {
	ID                 string
	RawType            string
	Kind               PaymentEventKind
	OccurredAt         time.Time
	Email              string
	UserID             string
	CourseID           string
	PaymentIntentID    string
	AmountCents        int64
	Currency           string
	SubscriptionID     string
	SubscriptionStatus string
	CurrentPeriodEnd   *time.Time
	Raw                json.RawMessage
}

type webhookEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object webhookObject `json:"object"`
	} `json:"data"`
}

type webhookObject struct {
	Mode             string            `json:"mode"`
	CustomerEmail    string            `json:"customer_email"`
	PaymentIntent    string            `json:"payment_intent"`
	AmountTotal      int64             `json:"amount_total"`
	Currency         string            `json:"currency"`
	Subscription     string            `json:"subscription"`
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
}

// DecodePaymentEvent parses a raw provider delivery into the closed variant.
func DecodePaymentEvent(raw []byte) (*PaymentEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("webhook payload missing event id")
	}

	obj := env.Data.Object
	evt := &PaymentEvent{
		ID:                 env.ID,
		RawType:            env.Type,
		OccurredAt:         time.Unix(env.Created, 0).UTC(),
		Email:              obj.CustomerEmail,
		UserID:             obj.Metadata["user_id"],
		CourseID:           obj.Metadata["course_id"],
		PaymentIntentID:    obj.PaymentIntent,
		AmountCents:        obj.AmountTotal,
		Currency:           obj.Currency,
		SubscriptionID:     obj.Subscription,
		SubscriptionStatus: obj.Status,
		Raw:                json.RawMessage(raw),
	}
	if env.Created == 0 {
		evt.OccurredAt = time.Now().UTC()
	}
	if obj.CurrentPeriodEnd > 0 {
		t := time.Unix(obj.CurrentPeriodEnd, 0).UTC()
		evt.CurrentPeriodEnd = &t
	}

	switch env.Type {
	case "checkout.session.completed":
		if obj.Mode == "subscription" {
			evt.Kind = KindCheckoutSubscription
		} else {
			evt.Kind = KindCheckoutPayment
		}
	case "customer.subscription.created":
		evt.Kind = KindSubscriptionCreated
		evt.SubscriptionID = firstNonEmpty(obj.Subscription, obj.ID)
	case "customer.subscription.updated":
		evt.Kind = KindSubscriptionUpdated
		evt.SubscriptionID = firstNonEmpty(obj.Subscription, obj.ID)
	case "customer.subscription.deleted":
		evt.Kind = KindSubscriptionDeleted
		evt.SubscriptionID = firstNonEmpty(obj.Subscription, obj.ID)
	default:
		evt.Kind = KindUnknown
	}

	return evt, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
