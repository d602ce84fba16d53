package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

// CertificateService issues and verifies completion certificates. At most one
// certificate exists per (user, course); re-issuing rotates the serial, which
// revokes any previously shared verify link.
type CertificateService struct {
	context.DefaultService

	db         *PostgresService
	events     *EventLogService
	progress   *ProgressService
	storage    *StorageService
	monitoring *MonitoringService
}

const CERTIFICATE_SVC = "certificate_svc"

func (svc CertificateService) Id() string {
	return CERTIFICATE_SVC
}

func (svc *CertificateService) Start() error {
	svc.db = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.events = svc.Service(EVENT_LOG_SVC).(*EventLogService)
	svc.progress = svc.Service(PROGRESS_SVC).(*ProgressService)
	svc.storage = svc.Service(STORAGE_SVC).(*StorageService)
	svc.monitoring = svc.Service(MONITORING_SVC).(*MonitoringService)
	return nil
}

// Issue creates or refreshes the certificate for a finished course. A plain
// call keeps the original issue time and holder name; Reissue stamps a new
// issue time (unless KeepIssuedAt) and takes the submitted name.
func (svc *CertificateService) Issue(userID, courseID string, opts *dto.IssueCertificateOptions) (*dto.CertificateResponse, error) {
	if _, err := svc.db.GetCourse(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "course not found")
		}
		return nil, svc.db.HandleError(err)
	}

	complete, err := svc.progress.IsCourseComplete(userID, courseID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	if !complete {
		return nil, shared.NewConflictError(nil, "course is not complete")
	}

	var cert *model.CertificateIssue
	err = svc.db.Db().Transaction(func(tx *gorm.DB) error {
		cert, err = svc.upsertCertificate(tx, userID, courseID, opts)
		if err != nil {
			return err
		}

		return svc.events.Append(tx, shared.TopicCertIssued, &userID, fiber.Map{
			"course_id": courseID,
			"serial":    cert.Serial,
		}, time.Now().UTC())
	})
	if err != nil {
		return nil, svc.db.HandleError(err)
	}

	if svc.monitoring != nil {
		svc.monitoring.CertificateIssued()
	}
	return svc.certificateResponse(cert), nil
}

func (svc *CertificateService) upsertCertificate(tx *gorm.DB, userID, courseID string, opts *dto.IssueCertificateOptions) (*model.CertificateIssue, error) {
	now := time.Now().UTC()

	var existing model.CertificateIssue
	err := tx.First(&existing, "user_id = ? AND course_id = ?", userID, courseID).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	issuedAt := now
	fullName := opts.FullName
	if found {
		issuedAt = existing.IssuedAt
		if opts.Reissue && !opts.KeepIssuedAt {
			issuedAt = now
		}
		if fullName == "" || !opts.Reissue {
			if existing.FullName != "" {
				fullName = existing.FullName
			}
		}
	}

	serialID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	serial := serialID.String()

	assetURL := opts.AssetURL
	if assetURL == "" {
		assetURL = svc.storage.CertificateObjectURL(serial)
	}

	rowID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	cert := &model.CertificateIssue{
		ID:       rowID.String(),
		UserID:   userID,
		CourseID: courseID,
		FullName: fullName,
		AssetURL: assetURL,
		Serial:   serial,
		Hash:     CertificateHash(userID, courseID, issuedAt),
		IssuedAt: issuedAt,
	}

	// Serial rotates on every call; a replay of a shared link after re-issue
	// must miss.
	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "asset_url", "serial", "hash", "issued_at", "updated_at",
		}),
	}).Create(cert).Error
	if err != nil {
		return nil, err
	}

	if found {
		cert.ID = existing.ID
		cert.CreatedAt = existing.CreatedAt
	}
	return cert, nil
}

// CertificateHash binds a certificate to its holder, course and issue time.
func CertificateHash(userID, courseID string, issuedAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s",
		userID, courseID, issuedAt.UTC().Format(time.RFC3339))))
	return hex.EncodeToString(sum[:])
}

// VerifyBySerial is the public lookup behind shared certificate links.
func (svc *CertificateService) VerifyBySerial(serial string) (*dto.CertificateVerifyResponse, error) {
	var cert model.CertificateIssue
	if err := svc.db.Db().First(&cert, "serial = ?", serial).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "certificate not found")
		}
		return nil, svc.db.HandleError(err)
	}
	return verifyResponse(&cert), nil
}

// VerifyByHash looks a certificate up by its binding hash.
func (svc *CertificateService) VerifyByHash(hash string) (*dto.CertificateVerifyResponse, error) {
	var cert model.CertificateIssue
	if err := svc.db.Db().First(&cert, "hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "certificate not found")
		}
		return nil, svc.db.HandleError(err)
	}
	return verifyResponse(&cert), nil
}

// ListForUser returns every certificate the user holds, newest first.
func (svc *CertificateService) ListForUser(userID string) ([]dto.CertificateResponse, error) {
	var certs []model.CertificateIssue
	err := svc.db.Db().Where("user_id = ?", userID).
		Order("issued_at desc").Find(&certs).Error
	if err != nil {
		return nil, svc.db.HandleError(err)
	}

	out := make([]dto.CertificateResponse, 0, len(certs))
	for i := range certs {
		out = append(out, *svc.certificateResponse(&certs[i]))
	}
	return out, nil
}

func (svc *CertificateService) certificateResponse(cert *model.CertificateIssue) *dto.CertificateResponse {
	return &dto.CertificateResponse{
		ID:        cert.ID,
		UserID:    cert.UserID,
		CourseID:  cert.CourseID,
		FullName:  cert.FullName,
		IssuedAt:  cert.IssuedAt,
		PdfURL:    cert.AssetURL,
		Serial:    cert.Serial,
		Hash:      cert.Hash,
		VerifyURL: "/api/v1/certificates/verify/" + cert.Serial,
	}
}

func verifyResponse(cert *model.CertificateIssue) *dto.CertificateVerifyResponse {
	return &dto.CertificateVerifyResponse{
		CourseID: cert.CourseID,
		FullName: cert.FullName,
		IssuedAt: cert.IssuedAt,
		Serial:   cert.Serial,
	}
}
