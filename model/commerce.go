// model/commerce.go
package model

import "time"

// Entitlement grants a user access to a course XOR a track. Active iff now is
// within [StartsAt, EndsAt); a nil EndsAt means forever.
type Entitlement struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	UserID    string     `json:"user_id" gorm:"index:ix_entitlement_user;not null"`
	CourseID  *string    `json:"course_id" gorm:"index"`
	TrackID   *string    `json:"track_id" gorm:"index"`
	Source    string     `json:"source" gorm:"not null"` // purchase | membership | grant
	StartsAt  time.Time  `json:"starts_at" gorm:"not null"`
	EndsAt    *time.Time `json:"ends_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// ActiveAt reports whether the validity window covers t.
func (e *Entitlement) ActiveAt(t time.Time) bool {
	if t.Before(e.StartsAt) {
		return false
	}
	return e.EndsAt == nil || t.Before(*e.EndsAt)
}

// Purchase is one row per payment intent; the unique intent id makes webhook
// replays idempotent at the storage layer.
type Purchase struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	UserID          string    `json:"user_id" gorm:"index;not null"`
	PaymentIntentID string    `json:"payment_intent_id" gorm:"uniqueIndex;not null"`
	CourseID        *string   `json:"course_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status" gorm:"not null"` // pending | paid | failed | refunded | canceled
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Membership mirrors the provider's subscription lifecycle. UserID may be
// null when the originating event carried no resolvable internal user.
type Membership struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	UserID           *string    `json:"user_id" gorm:"index"`
	SubscriptionID   string     `json:"subscription_id" gorm:"uniqueIndex;not null"`
	Status           string     `json:"status" gorm:"not null"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CertificateIssue is at most one row per (user, course). Serial is a public
// shareable token regenerated on every issue; Hash binds the row to
// (user, course, issued_at) and authorizes the download link.
type CertificateIssue struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:ux_cert_user_course,priority:1;not null"`
	CourseID  string    `json:"course_id" gorm:"uniqueIndex:ux_cert_user_course,priority:2;not null"`
	FullName  string    `json:"full_name"`
	AssetURL  string    `json:"asset_url"`
	Serial    string    `json:"serial" gorm:"uniqueIndex;not null"`
	Hash      string    `json:"hash" gorm:"index;not null"`
	IssuedAt  time.Time `json:"issued_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CertificateIssue) TableName() string { return "certificate_issues" }
