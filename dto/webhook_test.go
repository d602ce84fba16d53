package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCheckoutPayment(t *testing.T) {
	raw := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {
			"mode": "payment",
			"customer_email": "buyer@example.com",
			"payment_intent": "pi_1",
			"amount_total": 4900,
			"currency": "usd",
			"metadata": {"user_id": "u1", "course_id": "c1"}
		}}
	}`)

	evt, err := DecodePaymentEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, KindCheckoutPayment, evt.Kind)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, "buyer@example.com", evt.Email)
	assert.Equal(t, "u1", evt.UserID)
	assert.Equal(t, "c1", evt.CourseID)
	assert.Equal(t, "pi_1", evt.PaymentIntentID)
	assert.Equal(t, int64(4900), evt.AmountCents)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), evt.OccurredAt)
}

func TestDecodeCheckoutSubscriptionMode(t *testing.T) {
	raw := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {"mode": "subscription", "subscription": "sub_1"}}
	}`)

	evt, err := DecodePaymentEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, KindCheckoutSubscription, evt.Kind)
	assert.Equal(t, "sub_1", evt.SubscriptionID)
}

func TestDecodeSubscriptionLifecycleFallsBackToObjectID(t *testing.T) {
	raw := []byte(`{
		"id": "evt_3",
		"type": "customer.subscription.updated",
		"created": 1700000000,
		"data": {"object": {"id": "sub_2", "status": "past_due", "current_period_end": 1700600000}}
	}`)

	evt, err := DecodePaymentEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, KindSubscriptionUpdated, evt.Kind)
	assert.Equal(t, "sub_2", evt.SubscriptionID)
	assert.Equal(t, "past_due", evt.SubscriptionStatus)
	require.NotNil(t, evt.CurrentPeriodEnd)
	assert.Equal(t, time.Unix(1700600000, 0).UTC(), *evt.CurrentPeriodEnd)
}

func TestDecodeUnknownTypeIsCatchAll(t *testing.T) {
	evt, err := DecodePaymentEvent([]byte(`{"id":"evt_4","type":"invoice.paid","created":1700000000,"data":{"object":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, evt.Kind)
}

func TestDecodeRejectsMissingID(t *testing.T) {
	_, err := DecodePaymentEvent([]byte(`{"type":"invoice.paid"}`))
	assert.Error(t, err)

	_, err = DecodePaymentEvent([]byte(`not json`))
	assert.Error(t, err)
}
