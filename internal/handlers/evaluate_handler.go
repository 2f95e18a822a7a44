package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"scriptgrade/answer-evaluator/internal/models"
	"scriptgrade/answer-evaluator/internal/repositories"
	"scriptgrade/answer-evaluator/internal/services"
)

type EvaluationHandler struct {
	evalRepo   repositories.EvaluationRepository
	scriptRepo repositories.ScriptRepository
	evaluator  services.EvaluatorService
	worker     services.Worker
}

func NewEvaluationHandler(
	evalRepo repositories.EvaluationRepository,
	scriptRepo repositories.ScriptRepository,
	evaluator services.EvaluatorService,
	worker services.Worker,
) *EvaluationHandler {
	return &EvaluationHandler{
		evalRepo:   evalRepo,
		scriptRepo: scriptRepo,
		evaluator:  evaluator,
		worker:     worker,
	}
}

// HandleEvaluate handles POST /evaluate. A request carrying answer_text is
// evaluated synchronously; one carrying script_id becomes a queued grading
// job instead.
func (h *EvaluationHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.AnswerText != "" {
		return h.evaluateSync(c, &req)
	}

	if req.ScriptID != "" {
		return h.enqueueScriptJob(c, &req)
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "either answer_text or script_id is required",
	})
}

func (h *EvaluationHandler) evaluateSync(c *fiber.Ctx, req *models.EvaluateRequest) error {
	result, err := h.evaluator.EvaluateAnswer(c.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrMissingAnswerText) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "answer_text is required",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to evaluate answer",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"evaluation": result,
	})
}

func (h *EvaluationHandler) enqueueScriptJob(c *fiber.Ctx, req *models.EvaluateRequest) error {
	scriptID, err := uuid.Parse(req.ScriptID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid script_id format",
		})
	}

	if _, err := h.scriptRepo.FindByID(scriptID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Script not found",
		})
	}

	evaluation := &models.Evaluation{
		ID:        uuid.New(),
		ScriptID:  scriptID,
		Subject:   req.Subject,
		Domain:    req.Domain,
		Question:  req.Question,
		Status:    models.StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.evalRepo.Create(evaluation); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create evaluation job",
		})
	}

	h.worker.EnqueueJob(evaluation.ID)

	// Return job ID immediately
	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     evaluation.ID.String(),
		Status: string(models.StatusQueued),
	})
}
