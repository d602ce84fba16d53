package shared

const (
	UserID    = "user_id"
	UserEmail = "user_email"
	IsAdmin   = "is_admin"

	ItemTypeVideo = "video"
	ItemTypeText  = "text"
	ItemTypeQuiz  = "quiz"

	QuestionKindSingle    = "single"
	QuestionKindMultiple  = "multiple"
	QuestionKindTrueFalse = "truefalse"

	ProgressStarted   = "started"
	ProgressPassed    = "passed"
	ProgressFailed    = "failed"
	ProgressCompleted = "completed"

	EventStarted   = "started"
	EventPaused    = "paused"
	EventSeeked    = "seeked"
	EventCompleted = "completed"
	EventHeartbeat = "heartbeat"

	EntitlementSourcePurchase   = "purchase"
	EntitlementSourceMembership = "membership"
	EntitlementSourceGrant      = "grant"

	PurchasePending  = "pending"
	PurchasePaid     = "paid"
	PurchaseFailed   = "failed"
	PurchaseRefunded = "refunded"
	PurchaseCanceled = "canceled"

	IdempotencyProcessing = "processing"
	IdempotencySucceeded  = "succeeded"
	IdempotencyFailed     = "failed"

	TopicProgressEvent   = "progress.event"
	TopicTrackingPing    = "tracking.ping"
	TopicQuizSubmitted   = "quiz.submitted"
	TopicPaymentEvent    = "payment.event"
	TopicCertIssued      = "certificate.issued"
	TopicUserCreated     = "user.created"
	TopicMagicLinkIssued = "auth.magic_link"
)
