package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

const paymentIdempotencyScope = "payment_webhook"

// signatureTolerance bounds how stale a signed timestamp may be.
const signatureTolerance = 5 * time.Minute

// errDuplicateDelivery aborts the transaction without error: the delivery was
// already recorded, the provider gets a 200 and stops retrying.
var errDuplicateDelivery = errors.New("duplicate webhook delivery")

// PaymentService applies provider webhook deliveries to purchases,
// memberships and entitlements, at most once per provider event id. The
// whole application is one transaction: any failure rolls everything back,
// including the idempotency claim, so a redelivery retries in full.
type PaymentService struct {
	context.DefaultService

	db          *PostgresService
	idempotency *IdempotencyService
	events      *EventLogService
	monitoring  *MonitoringService

	secret []byte
}

const PAYMENT_SVC = "payment_svc"

func (svc PaymentService) Id() string {
	return PAYMENT_SVC
}

func (svc *PaymentService) Configure(ctx *context.Context) error {
	secret := os.Getenv("PAYMENT_WEBHOOK_SECRET")
	if secret == "" {
		return errors.New("PAYMENT_WEBHOOK_SECRET is required")
	}
	svc.secret = []byte(secret)

	return svc.DefaultService.Configure(ctx)
}

func (svc *PaymentService) Start() error {
	svc.db = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.idempotency = svc.Service(IDEMPOTENCY_SVC).(*IdempotencyService)
	svc.events = svc.Service(EVENT_LOG_SVC).(*EventLogService)
	svc.monitoring = svc.Service(MONITORING_SVC).(*MonitoringService)
	return nil
}

// VerifySignature checks the provider's `t=<unix>,v1=<hex>` header against
// the raw body. Runs strictly before Process.
func (svc *PaymentService) VerifySignature(payload []byte, header string) error {
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return errors.New("malformed signature header")
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errors.New("malformed signature timestamp")
	}
	age := time.Since(time.Unix(tsUnix, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return errors.New("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, svc.secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range sigs {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return nil
		}
	}
	return errors.New("signature mismatch")
}

// Process applies one verified delivery. Duplicates are a success no-op.
func (svc *PaymentService) Process(raw []byte) error {
	evt, err := dto.DecodePaymentEvent(raw)
	if err != nil {
		return shared.NewBadRequestError(err, "unreadable webhook payload")
	}

	err = svc.db.Db().Transaction(func(tx *gorm.DB) error {
		if err := svc.recordInbox(tx, evt); err != nil {
			return err
		}

		claimed, err := svc.idempotency.Begin(tx, evt.ID, paymentIdempotencyScope)
		if err != nil {
			return err
		}
		if !claimed {
			return errDuplicateDelivery
		}

		err = svc.events.Append(tx, shared.TopicPaymentEvent, nil, map[string]interface{}{
			"event_id": evt.ID,
			"type":     evt.RawType,
			"kind":     string(evt.Kind),
			"payload":  json.RawMessage(evt.Raw),
		}, evt.OccurredAt)
		if err != nil {
			return err
		}

		exec := &paymentExecutor{tx: tx, db: svc.db, events: svc.events}
		for _, mut := range planMutations(evt) {
			if err := exec.apply(mut); err != nil {
				return err
			}
		}

		return svc.idempotency.Finish(tx, evt.ID, paymentIdempotencyScope, shared.IdempotencySucceeded, nil)
	})
	if errors.Is(err, errDuplicateDelivery) {
		log.WithField("event_id", evt.ID).Info("duplicate payment event ignored")
		return nil
	}
	if err != nil {
		return err
	}

	if svc.monitoring != nil {
		svc.monitoring.PaymentEventProcessed(string(evt.Kind))
	}
	return nil
}

func (svc *PaymentService) recordInbox(tx *gorm.DB, evt *dto.PaymentEvent) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	// Recorded even when the idempotency check later short-circuits would be
	// ideal, but a duplicate here already proves the audit row exists.
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(&model.WebhookInbox{
		ID:              id.String(),
		Provider:        "stripe",
		ProviderEventID: evt.ID,
		Payload:         evt.Raw,
		ReceivedAt:      time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errDuplicateDelivery
	}
	return nil
}

// ==================== MUTATION PLAN ====================

// paymentMutation is one intended side effect of an event. Planning is pure;
// paymentExecutor applies the plan inside the processing transaction.
type paymentMutation interface {
	isPaymentMutation()
}

type ensureUser struct {
	UserID string
	Email  string
}

type upsertPurchase struct {
	PaymentIntentID string
	CourseID        string
	AmountCents     int64
	Currency        string
	Status          string
}

type grantCourseEntitlement struct {
	CourseID string
}

type upsertMembership struct {
	SubscriptionID   string
	UserID           string
	Email            string
	Status           string
	CurrentPeriodEnd *time.Time
}

func (ensureUser) isPaymentMutation()             {}
func (upsertPurchase) isPaymentMutation()         {}
func (grantCourseEntitlement) isPaymentMutation() {}
func (upsertMembership) isPaymentMutation()       {}

// planMutations maps a decoded event to its intended side effects. Unknown
// kinds plan nothing; the event-log append already happened.
func planMutations(evt *dto.PaymentEvent) []paymentMutation {
	switch evt.Kind {
	case dto.KindCheckoutPayment:
		muts := []paymentMutation{
			ensureUser{UserID: evt.UserID, Email: evt.Email},
			upsertPurchase{
				PaymentIntentID: evt.PaymentIntentID,
				CourseID:        evt.CourseID,
				AmountCents:     evt.AmountCents,
				Currency:        evt.Currency,
				Status:          shared.PurchasePaid,
			},
		}
		if evt.CourseID != "" {
			muts = append(muts, grantCourseEntitlement{CourseID: evt.CourseID})
		}
		return muts

	case dto.KindCheckoutSubscription:
		return []paymentMutation{upsertMembership{
			SubscriptionID:   evt.SubscriptionID,
			UserID:           evt.UserID,
			Email:            evt.Email,
			Status:           "active",
			CurrentPeriodEnd: evt.CurrentPeriodEnd,
		}}

	case dto.KindSubscriptionCreated, dto.KindSubscriptionUpdated, dto.KindSubscriptionDeleted:
		status := evt.SubscriptionStatus
		if evt.Kind == dto.KindSubscriptionDeleted && status == "" {
			status = "canceled"
		}
		return []paymentMutation{upsertMembership{
			SubscriptionID:   evt.SubscriptionID,
			UserID:           evt.UserID,
			Email:            evt.Email,
			Status:           status,
			CurrentPeriodEnd: evt.CurrentPeriodEnd,
		}}
	}

	return nil
}

// ==================== EXECUTOR ====================

type paymentExecutor struct {
	tx     *gorm.DB
	db     *PostgresService
	events *EventLogService

	// userID is set by ensureUser and consumed by later mutations in the
	// same plan.
	userID string
}

func (e *paymentExecutor) apply(mut paymentMutation) error {
	switch m := mut.(type) {
	case ensureUser:
		return e.ensureUser(m)
	case upsertPurchase:
		return e.upsertPurchase(m)
	case grantCourseEntitlement:
		return e.grantCourseEntitlement(m)
	case upsertMembership:
		return e.upsertMembership(m)
	default:
		return fmt.Errorf("unknown payment mutation %T", mut)
	}
}

func (e *paymentExecutor) ensureUser(m ensureUser) error {
	if m.UserID != "" {
		var user model.User
		if err := e.tx.First(&user, "id = ?", m.UserID).Error; err == nil {
			e.userID = user.ID
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if m.Email == "" {
		return errors.New("checkout event carries neither a known user nor an email")
	}

	var user model.User
	err := e.tx.First(&user, "LOWER(email) = LOWER(?)", m.Email).Error
	if err == nil {
		e.userID = user.ID
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	created := &model.User{ID: id.String(), Email: strings.ToLower(m.Email)}
	if err := e.tx.Create(created).Error; err != nil {
		return err
	}
	e.userID = created.ID

	return e.events.Append(e.tx, shared.TopicUserCreated, &created.ID, map[string]interface{}{
		"email":  created.Email,
		"origin": "checkout",
	}, time.Now().UTC())
}

func (e *paymentExecutor) upsertPurchase(m upsertPurchase) error {
	if e.userID == "" {
		return errors.New("purchase planned before user resolution")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	purchase := &model.Purchase{
		ID:              id.String(),
		UserID:          e.userID,
		PaymentIntentID: m.PaymentIntentID,
		AmountCents:     m.AmountCents,
		Currency:        m.Currency,
		Status:          m.Status,
	}
	if m.CourseID != "" {
		purchase.CourseID = &m.CourseID
	}

	return e.tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_intent_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":     m.Status,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(purchase).Error
}

// grantCourseEntitlement inserts a purchase-sourced grant unless one already
// exists. A purchase never shortens or removes an existing entitlement.
func (e *paymentExecutor) grantCourseEntitlement(m grantCourseEntitlement) error {
	if e.userID == "" {
		return errors.New("entitlement planned before user resolution")
	}

	var count int64
	err := e.tx.Model(&model.Entitlement{}).
		Where("user_id = ? AND course_id = ? AND source = ?",
			e.userID, m.CourseID, shared.EntitlementSourcePurchase).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	return e.tx.Create(&model.Entitlement{
		ID:       id.String(),
		UserID:   e.userID,
		CourseID: &m.CourseID,
		Source:   shared.EntitlementSourcePurchase,
		StartsAt: time.Now().UTC(),
	}).Error
}

func (e *paymentExecutor) upsertMembership(m upsertMembership) error {
	if m.SubscriptionID == "" {
		return errors.New("subscription event without a subscription id")
	}

	userID := e.resolveMembershipUser(m)
	if userID == nil {
		log.WithField("subscription_id", m.SubscriptionID).
			Warn("membership has no resolvable user; stored unlinked")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	assignments := map[string]interface{}{
		"status":             m.Status,
		"current_period_end": m.CurrentPeriodEnd,
		"updated_at":         time.Now().UTC(),
	}
	// Never unlink an already-linked membership on a later unlinked event.
	if userID != nil {
		assignments["user_id"] = *userID
	}

	return e.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&model.Membership{
		ID:               id.String(),
		UserID:           userID,
		SubscriptionID:   m.SubscriptionID,
		Status:           m.Status,
		CurrentPeriodEnd: m.CurrentPeriodEnd,
	}).Error
}

func (e *paymentExecutor) resolveMembershipUser(m upsertMembership) *string {
	if m.UserID != "" {
		var user model.User
		if err := e.tx.First(&user, "id = ?", m.UserID).Error; err == nil {
			return &user.ID
		}
	}
	if m.Email != "" {
		var user model.User
		if err := e.tx.First(&user, "LOWER(email) = LOWER(?)", m.Email).Error; err == nil {
			return &user.ID
		}
	}
	return nil
}

