package seeders

import (
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skilltrail/academy_api/model"
)

type QuizSeeder struct {
	db *gorm.DB
}

func NewQuizSeeder(db *gorm.DB) *QuizSeeder {
	return &QuizSeeder{db: db}
}

type questionFixture struct {
	Kind    string
	Body    string
	Choices []model.Choice
	Answers []string
}

type quizFixture struct {
	ID        string
	ModuleID  string
	Title     string
	PassScore int
	Questions []questionFixture
}

func quizFixtures() []quizFixture {
	return []quizFixture{
		{
			ID:        "quiz_go_basics_1",
			ModuleID:  "mod_go_basics_1",
			Title:     "Checkpoint: basics",
			PassScore: 70,
			Questions: []questionFixture{
				{
					Kind: "single",
					Body: "Which command compiles and runs a Go program in one step?",
					Choices: []model.Choice{
						{ID: "A", Text: "go run"},
						{ID: "B", Text: "go fmt"},
						{ID: "C", Text: "go vet"},
					},
					Answers: []string{"A"},
				},
				{
					Kind: "multiple",
					Body: "Which of these are built-in Go types?",
					Choices: []model.Choice{
						{ID: "A", Text: "string"},
						{ID: "B", Text: "decimal"},
						{ID: "C", Text: "rune"},
					},
					Answers: []string{"A", "C"},
				},
			},
		},
		{
			ID:        "quiz_go_basics_2",
			ModuleID:  "mod_go_basics_2",
			Title:     "Checkpoint: types",
			PassScore: 70,
			Questions: []questionFixture{
				{
					Kind: "truefalse",
					Body: "Methods can be defined on any named type in the same package.",
					Choices: []model.Choice{
						{ID: "T", Text: "True"},
						{ID: "F", Text: "False"},
					},
					Answers: []string{"T"},
				},
			},
		},
		{
			ID:        "quiz_sql_1",
			ModuleID:  "mod_sql_1",
			Title:     "Checkpoint: queries",
			PassScore: 60,
			Questions: []questionFixture{
				{
					Kind: "single",
					Body: "Which clause filters grouped rows?",
					Choices: []model.Choice{
						{ID: "A", Text: "WHERE"},
						{ID: "B", Text: "HAVING"},
						{ID: "C", Text: "ORDER BY"},
					},
					Answers: []string{"B"},
				},
			},
		},
	}
}

func (s *QuizSeeder) SeedQuizzes() error {
	for _, qf := range quizFixtures() {
		quiz := model.Quiz{
			ID:        qf.ID,
			ModuleID:  qf.ModuleID,
			Title:     qf.Title,
			PassScore: qf.PassScore,
		}
		err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&quiz).Error
		if err != nil {
			return fmt.Errorf("quiz %s: %w", qf.ID, err)
		}

		for pos, question := range qf.Questions {
			choices, err := json.Marshal(question.Choices)
			if err != nil {
				return err
			}
			answers, err := json.Marshal(question.Answers)
			if err != nil {
				return err
			}

			row := model.Question{
				ID:        fmt.Sprintf("%s_q%d", qf.ID, pos),
				QuizID:    qf.ID,
				Kind:      question.Kind,
				Body:      question.Body,
				Position:  pos,
				Choices:   choices,
				AnswerKey: answers,
			}
			err = s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("question %s: %w", row.ID, err)
			}
		}
	}

	log.Println("Quiz seeding complete")
	return nil
}
