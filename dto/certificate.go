package dto

import "time"

// IssueCertificateOptions mirrors the issue query flags.
type IssueCertificateOptions struct {
	FullName     string
	AssetURL     string
	Reissue      bool
	KeepIssuedAt bool
}

type CertificateResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	FullName  string    `json:"full_name,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	PdfURL    string    `json:"pdf_url"`
	Serial    string    `json:"serial"`
	Hash      string    `json:"hash"`
	VerifyURL string    `json:"verify_url"`
}

// CertificateVerifyResponse is the public view: no user id, no email.
type CertificateVerifyResponse struct {
	CourseID string    `json:"course_id"`
	FullName string    `json:"full_name,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
	Serial   string    `json:"serial"`
}
