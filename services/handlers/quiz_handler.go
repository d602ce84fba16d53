package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/shared"
)

type QuizHandler struct {
	quizzes QuizGrader
}

func NewQuizHandler(quizzes QuizGrader) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// SubmitQuiz godoc
// @Summary Submit quiz answers for grading
// @Description Grades against the stored answer key and records the outcome; a retake replaces the previous result.
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quizId path string true "Quiz id"
// @Param request body dto.SubmitQuizRequest true "Answers"
// @Success 200 {object} shared.Response{data=dto.SubmitQuizResponse}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} shared.Response
// @Router /api/v1/quizzes/{quizId}/submit [post]
// @Security BearerAuth
func (h *QuizHandler) SubmitQuiz(c *fiber.Ctx) error {
	var req dto.SubmitQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	userID, _ := c.Locals(shared.UserID).(string)
	result, err := h.quizzes.Submit(userID, c.Params("quizId"), &req)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, result)
}
