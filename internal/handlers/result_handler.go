package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"scriptgrade/answer-evaluator/internal/models"
	"scriptgrade/answer-evaluator/internal/repositories"
)

type ResultHandler struct {
	evalRepo repositories.EvaluationRepository
}

func NewResultHandler(evalRepo repositories.EvaluationRepository) *ResultHandler {
	return &ResultHandler{
		evalRepo: evalRepo,
	}
}

func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	idParam := c.Params("id")
	evalID, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation ID format",
		})
	}

	evaluation, err := h.evalRepo.FindByID(evalID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Evaluation not found",
		})
	}

	response := models.ResultResponse{
		ID:     evaluation.ID.String(),
		Status: string(evaluation.Status),
	}

	// If completed, include results
	if evaluation.Status == models.StatusCompleted {
		response.Result = &models.EvaluationResult{
			FinalScore:  derefScore(evaluation.FinalScore),
			TextScore:   derefScore(evaluation.TextScore),
			VisualScore: derefScore(evaluation.VisualScore),
			LayoutScore: derefScore(evaluation.LayoutScore),
			Confidence:  derefScore(evaluation.Confidence),
		}
	}

	// If failed, include error message
	if evaluation.Status == models.StatusFailed && evaluation.ErrorMessage != "" {
		response.ErrorMessage = &evaluation.ErrorMessage
	}

	return c.JSON(response)
}

func derefScore(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
