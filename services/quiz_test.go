package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

func newQuizService(t *testing.T, enforce bool) (*PostgresService, *QuizService, *ProgressService) {
	t.Helper()

	db, events, ents, progress := newTestStack(t, enforce)
	quiz := &QuizService{db: db, events: events, progress: progress, entitlements: ents}
	return db, quiz, progress
}

func TestSubmitPerfectScorePasses(t *testing.T) {
	db, quiz, _ := newQuizService(t, false)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	seedQuiz(t, db, "q1", modules[0].ID, 70, []string{"A"}, []string{"A", "C"})

	result, err := quiz.Submit("u1", "q1", &dto.SubmitQuizRequest{
		Answers: []dto.QuizAnswer{
			{QuestionID: "q1_q0", ChoiceIDs: []string{"A"}},
			{QuestionID: "q1_q1", ChoiceIDs: []string{"A", "C"}},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, float64(100), result.Score)

	row, err := db.GetProgress("u1", modules[0].ID)
	require.NoError(t, err)
	assert.Equal(t, shared.ProgressPassed, row.Status)
	require.NotNil(t, row.Score)
	assert.Equal(t, float64(100), *row.Score)
}

func TestSubmitNoCorrectAnswersFails(t *testing.T) {
	db, quiz, _ := newQuizService(t, false)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	seedQuiz(t, db, "q1", modules[0].ID, 70, []string{"A"}, []string{"A", "C"})

	result, err := quiz.Submit("u1", "q1", &dto.SubmitQuizRequest{
		Answers: []dto.QuizAnswer{
			{QuestionID: "q1_q0", ChoiceIDs: []string{"B"}},
			{QuestionID: "q1_q1", ChoiceIDs: []string{"A"}},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, float64(0), result.Score, "partial selection earns no credit")

	row, err := db.GetProgress("u1", modules[0].ID)
	require.NoError(t, err)
	assert.Equal(t, shared.ProgressFailed, row.Status)
}

func TestSubmitInclusiveThreshold(t *testing.T) {
	db, quiz, _ := newQuizService(t, false)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	seedQuiz(t, db, "q1", modules[0].ID, 50, []string{"A"}, []string{"B"})

	result, err := quiz.Submit("u1", "q1", &dto.SubmitQuizRequest{
		Answers: []dto.QuizAnswer{
			{QuestionID: "q1_q0", ChoiceIDs: []string{"A"}},
			{QuestionID: "q1_q1", ChoiceIDs: []string{"C"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(50), result.Score)
	assert.True(t, result.Passed, "score equal to the threshold passes")
}

func TestSubmitFailedRetakeOverwritesPass(t *testing.T) {
	db, quiz, _ := newQuizService(t, false)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	seedQuiz(t, db, "q1", modules[0].ID, 70, []string{"A"})

	result, err := quiz.Submit("u1", "q1", &dto.SubmitQuizRequest{
		Answers: []dto.QuizAnswer{{QuestionID: "q1_q0", ChoiceIDs: []string{"A"}}},
	})
	require.NoError(t, err)
	require.True(t, result.Passed)

	result, err = quiz.Submit("u1", "q1", &dto.SubmitQuizRequest{
		Answers: []dto.QuizAnswer{{QuestionID: "q1_q0", ChoiceIDs: []string{"B"}}},
	})
	require.NoError(t, err)
	require.False(t, result.Passed)

	row, err := db.GetProgress("u1", modules[0].ID)
	require.NoError(t, err)
	assert.Equal(t, shared.ProgressFailed, row.Status, "grading replaces an earlier pass")
	require.NotNil(t, row.Score)
	assert.Equal(t, float64(0), *row.Score)
}

func TestSubmitUnknownQuizIsNotFound(t *testing.T) {
	db, quiz, _ := newQuizService(t, false)
	seedUser(t, db, "u1", "u1@example.com")

	_, err := quiz.Submit("u1", "missing", &dto.SubmitQuizRequest{
		Answers: []dto.QuizAnswer{{QuestionID: "x", ChoiceIDs: []string{"A"}}},
	})
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestSubmitQuizWithoutQuestionsIsBadRequest(t *testing.T) {
	db, quiz, _ := newQuizService(t, false)
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	seedQuiz(t, db, "q1", modules[0].ID, 70)

	_, err := quiz.Submit("u1", "q1", &dto.SubmitQuizRequest{
		Answers: []dto.QuizAnswer{{QuestionID: "x", ChoiceIDs: []string{"A"}}},
	})
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestSubmitAppendsGradingEvent(t *testing.T) {
	db, quiz, _ := newQuizService(t, false)
	events := quiz.events
	seedUser(t, db, "u1", "u1@example.com")
	modules := seedCourse(t, db, "c1", 1)
	seedQuiz(t, db, "q1", modules[0].ID, 70, []string{"A"})

	_, err := quiz.Submit("u1", "q1", &dto.SubmitQuizRequest{
		Answers: []dto.QuizAnswer{{QuestionID: "q1_q0", ChoiceIDs: []string{"A"}}},
	})
	require.NoError(t, err)

	rows, err := events.ListByTopic(shared.TopicQuizSubmitted, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ActorID)
	assert.Equal(t, "u1", *rows[0].ActorID)

	var payload struct {
		QuizID  string           `json:"quiz_id"`
		Answers []dto.QuizAnswer `json:"answers"`
		Score   float64          `json:"score"`
		Passed  bool             `json:"passed"`
	}
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	assert.Equal(t, "q1", payload.QuizID)
	require.Len(t, payload.Answers, 1, "ledger entry keeps the graded submission")
	assert.Equal(t, "q1_q0", payload.Answers[0].QuestionID)
	assert.Equal(t, []string{"A"}, payload.Answers[0].ChoiceIDs)
	assert.Equal(t, float64(100), payload.Score)
	assert.True(t, payload.Passed)
}

func TestExactMatchTreatsDuplicatesAsSets(t *testing.T) {
	assert.True(t, exactMatch([]string{"A", "C"}, []string{"C", "A"}))
	assert.True(t, exactMatch([]string{"A", "C"}, []string{"A", "A", "C"}))
	assert.False(t, exactMatch([]string{"A", "C"}, []string{"A"}))
	assert.False(t, exactMatch([]string{"A", "C"}, []string{"A", "B", "C"}))
	assert.False(t, exactMatch([]string{"A"}, nil))
}

func TestEmptyAnswerKeyMatchesEmptySubmissionOnly(t *testing.T) {
	assert.True(t, exactMatch(nil, []string{}))
	assert.False(t, exactMatch(nil, []string{"A"}))
}

func TestGradeSkipsUnansweredQuestions(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", AnswerKey: json.RawMessage(`["A"]`)},
		{ID: "q2", AnswerKey: json.RawMessage(`[]`)},
	}

	// Neither question answered: the empty key does not match vacuously.
	score, err := grade(questions, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(0), score)

	score, err = grade(questions, []dto.QuizAnswer{
		{QuestionID: "q1", ChoiceIDs: []string{"A"}},
		{QuestionID: "q2", ChoiceIDs: []string{}},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(100), score)
}
