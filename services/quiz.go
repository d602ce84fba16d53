package services

import (
	"errors"
	"math"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

// QuizService grades submissions. A question counts only on an exact match
// of the answer key; there is no partial credit.
type QuizService struct {
	context.DefaultService

	db           *PostgresService
	events       *EventLogService
	progress     *ProgressService
	entitlements *EntitlementService
	monitoring   *MonitoringService
}

const QUIZ_SVC = "quiz_svc"

func (svc QuizService) Id() string {
	return QUIZ_SVC
}

func (svc *QuizService) Start() error {
	svc.db = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.events = svc.Service(EVENT_LOG_SVC).(*EventLogService)
	svc.progress = svc.Service(PROGRESS_SVC).(*ProgressService)
	svc.entitlements = svc.Service(ENTITLEMENT_SVC).(*EntitlementService)
	svc.monitoring = svc.Service(MONITORING_SVC).(*MonitoringService)
	return nil
}

// Submit grades the answers and records the outcome. The grade is
// authoritative: a failed retake replaces an earlier pass.
func (svc *QuizService) Submit(userID, quizID string, req *dto.SubmitQuizRequest) (*dto.SubmitQuizResponse, error) {
	quiz, err := svc.db.GetQuiz(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "quiz not found")
		}
		return nil, svc.db.HandleError(err)
	}
	if len(quiz.Questions) == 0 {
		return nil, shared.NewBadRequestError(nil, "quiz has no questions")
	}

	mod, err := svc.db.GetModule(quiz.ModuleID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	ok, err := svc.entitlements.HasCourseAccess(userID, mod.CourseID, time.Now().UTC())
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	if !ok {
		return nil, shared.NewForbiddenError(nil, "no active entitlement for course")
	}

	score, err := grade(quiz.Questions, req.Answers)
	if err != nil {
		return nil, shared.NewInternalError(err, "corrupt answer key")
	}

	passed := score >= float64(quiz.PassScore)
	status := shared.ProgressFailed
	if passed {
		status = shared.ProgressPassed
	}

	err = svc.db.Db().Transaction(func(tx *gorm.DB) error {
		err := svc.events.Append(tx, shared.TopicQuizSubmitted, &userID, fiber.Map{
			"quiz_id":   quizID,
			"module_id": quiz.ModuleID,
			"answers":   req.Answers,
			"score":     score,
			"passed":    passed,
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		return svc.progress.RecordGrading(tx, userID, quiz.ModuleID, status, score)
	})
	if err != nil {
		return nil, svc.db.HandleError(err)
	}

	if svc.monitoring != nil {
		svc.monitoring.QuizSubmitted(passed)
	}

	return &dto.SubmitQuizResponse{
		Passed: passed,
		Score:  math.Trunc(score*100) / 100,
	}, nil
}

// grade scores a submission against the stored answer keys. Unanswered
// questions score zero; answers for unknown questions are ignored.
func grade(questions []model.Question, answers []dto.QuizAnswer) (float64, error) {
	answered := make(map[string][]string, len(answers))
	for _, ans := range answers {
		answered[ans.QuestionID] = ans.ChoiceIDs
	}

	correct := 0
	for i := range questions {
		key, err := questions[i].CorrectChoiceIDs()
		if err != nil {
			return 0, err
		}
		chosen, ok := answered[questions[i].ID]
		if ok && exactMatch(key, chosen) {
			correct++
		}
	}

	return 100 * float64(correct) / float64(len(questions)), nil
}

// exactMatch treats both sides as sets: same members, duplicates collapsed.
// An empty key matches only an explicitly empty submission; unanswered
// questions never reach here.
func exactMatch(key, chosen []string) bool {
	want := make(map[string]bool, len(key))
	for _, id := range key {
		want[id] = true
	}
	got := make(map[string]bool, len(chosen))
	for _, id := range chosen {
		if !want[id] {
			return false
		}
		got[id] = true
	}
	return len(got) == len(want)
}
