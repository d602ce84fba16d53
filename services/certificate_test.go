package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

func newCertService(t *testing.T) (*PostgresService, *CertificateService, *ProgressService) {
	t.Helper()

	db, events, _, progress := newTestStack(t, false)
	storage := &StorageService{bucket: "certificates", publicURL: "http://cdn.local"}
	cert := &CertificateService{db: db, events: events, progress: progress, storage: storage}
	return db, cert, progress
}

func completeCourse(t *testing.T, db *PostgresService, progress *ProgressService, userID string, modules []model.Module) {
	t.Helper()
	for _, mod := range modules {
		require.NoError(t, progress.RecordGrading(db.Db(), userID, mod.ID, shared.ProgressPassed, 80))
	}
}

func TestIssueRequiresCompletion(t *testing.T) {
	db, cert, _ := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")
	seedCourse(t, db, "c1", 2)

	_, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{FullName: "Ada"})
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.StatusCode)
}

func TestIssueUnknownCourseIsNotFound(t *testing.T) {
	db, cert, _ := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")

	_, err := cert.Issue("u1", "missing", &dto.IssueCertificateOptions{})
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestIssueTwiceKeepsOneRowAndIssuedAt(t *testing.T) {
	db, cert, progress := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 2)
	completeCourse(t, db, progress, "u1", modules)

	first, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{FullName: "Ada"})
	require.NoError(t, err)

	second, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Db().Model(&model.CertificateIssue{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.WithinDuration(t, first.IssuedAt, second.IssuedAt, time.Second)
	assert.Equal(t, "Ada", second.FullName, "holder name survives a plain re-call")
	assert.NotEqual(t, first.Serial, second.Serial, "serial rotates on every call")
}

func TestReissueRestampsIssuedAtAndSerial(t *testing.T) {
	db, cert, progress := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	completeCourse(t, db, progress, "u1", modules)

	first, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{FullName: "Ada"})
	require.NoError(t, err)

	second, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{FullName: "Ada L.", Reissue: true})
	require.NoError(t, err)

	assert.NotEqual(t, first.Serial, second.Serial)
	assert.True(t, second.IssuedAt.After(first.IssuedAt) || second.IssuedAt.Equal(first.IssuedAt))
	assert.Equal(t, "Ada L.", second.FullName)
}

func TestReissueKeepIssuedAtKeepsHashStable(t *testing.T) {
	db, cert, progress := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	completeCourse(t, db, progress, "u1", modules)

	first, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{FullName: "Ada"})
	require.NoError(t, err)

	second, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{Reissue: true, KeepIssuedAt: true})
	require.NoError(t, err)
	third, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{Reissue: true, KeepIssuedAt: true})
	require.NoError(t, err)

	assert.NotEqual(t, second.Serial, third.Serial)
	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, second.Hash, third.Hash, "same issue time yields the same hash")
	assert.WithinDuration(t, first.IssuedAt, third.IssuedAt, time.Second)
}

func TestCertificateHashIsDeterministic(t *testing.T) {
	db, cert, progress := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	completeCourse(t, db, progress, "u1", modules)

	issued, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{})
	require.NoError(t, err)

	assert.Equal(t, CertificateHash("u1", "c1", issued.IssuedAt), issued.Hash)
}

func TestVerifyBySerialAndHash(t *testing.T) {
	db, cert, progress := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	completeCourse(t, db, progress, "u1", modules)

	issued, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{FullName: "Ada"})
	require.NoError(t, err)

	bySerial, err := cert.VerifyBySerial(issued.Serial)
	require.NoError(t, err)
	assert.Equal(t, "c1", bySerial.CourseID)
	assert.Equal(t, "Ada", bySerial.FullName)

	byHash, err := cert.VerifyByHash(issued.Hash)
	require.NoError(t, err)
	assert.Equal(t, bySerial.Serial, byHash.Serial)
}

func TestStaleSerialMissesAfterReissue(t *testing.T) {
	db, cert, progress := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	completeCourse(t, db, progress, "u1", modules)

	first, err := cert.Issue("u1", "c1", &dto.IssueCertificateOptions{})
	require.NoError(t, err)
	_, err = cert.Issue("u1", "c1", &dto.IssueCertificateOptions{Reissue: true})
	require.NoError(t, err)

	_, err = cert.VerifyBySerial(first.Serial)
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestListForUserNewestFirst(t *testing.T) {
	db, cert, progress := newCertService(t)
	seedUser(t, db, "u1", "u1@example.com")
	for _, courseID := range []string{"c1", "c2"} {
		modules := seedCourse(t, db, courseID, 1)
		completeCourse(t, db, progress, "u1", modules)
		_, err := cert.Issue("u1", courseID, &dto.IssueCertificateOptions{})
		require.NoError(t, err)
	}

	certs, err := cert.ListForUser("u1")
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.False(t, certs[0].IssuedAt.Before(certs[1].IssuedAt))
}
