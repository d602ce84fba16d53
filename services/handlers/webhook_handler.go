package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skilltrail/academy_api/shared"
)

// SignatureHeader carries the provider's `t=<unix>,v1=<hex>` HMAC signature.
const SignatureHeader = "X-Webhook-Signature"

type WebhookHandler struct {
	payments PaymentProcessor
}

func NewWebhookHandler(payments PaymentProcessor) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// HandlePaymentWebhook godoc
// @Summary Ingest a payment provider webhook
// @Description Verifies the HMAC signature, then applies the event at most once. Duplicates return 200 so the provider stops retrying; 5xx triggers a retry.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Webhook-Signature header string true "t=<unix>,v1=<hex>"
// @Success 200 {object} shared.Response
// @Failure 400 {object} shared.Response
// @Router /api/v1/webhooks/payment [post]
func (h *WebhookHandler) HandlePaymentWebhook(c *fiber.Ctx) error {
	body := c.Body()

	if err := h.payments.VerifySignature(body, c.Get(SignatureHeader)); err != nil {
		return shared.NewBadRequestError(err, "invalid webhook signature")
	}

	if err := h.payments.Process(body); err != nil {
		return err
	}
	return shared.ResponseOK(c, nil)
}
