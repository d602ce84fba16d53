package handlers

import (
	"time"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/model"
)

// Handlers see their collaborators through these interfaces so the package
// stays decoupled from the service container.

type CatalogSource interface {
	ListActiveCourses() ([]model.Course, error)
	ListActiveTracks() ([]model.Track, error)
	ListTrackCourses(trackID string) ([]model.TrackCourse, error)
}

type ProgressTracker interface {
	ApplyEvents(userID string, events []dto.ProgressEventRequest) error
	RecordAnonymousPings(events []dto.ProgressEventRequest) error
	CourseView(userID, courseID string) (*dto.CourseItemsResponse, error)
}

type EntitlementChecker interface {
	HasCourseAccess(userID, courseID string, t time.Time) (bool, error)
}

type QuizGrader interface {
	Submit(userID, quizID string, req *dto.SubmitQuizRequest) (*dto.SubmitQuizResponse, error)
}

type CertificateIssuer interface {
	Issue(userID, courseID string, opts *dto.IssueCertificateOptions) (*dto.CertificateResponse, error)
	VerifyBySerial(serial string) (*dto.CertificateVerifyResponse, error)
	VerifyByHash(hash string) (*dto.CertificateVerifyResponse, error)
	ListForUser(userID string) ([]dto.CertificateResponse, error)
}

type PaymentProcessor interface {
	VerifySignature(payload []byte, header string) error
	Process(raw []byte) error
}

type Authenticator interface {
	RequestMagicLink(req *dto.MagicLinkRequest) (*dto.MagicLinkResponse, error)
	RedeemMagicLink(token string) (*dto.TokenPair, error)
}

type EventQuerier interface {
	ListByTopic(topic string, limit int) ([]model.EventLog, error)
}
