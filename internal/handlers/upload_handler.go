package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"scriptgrade/answer-evaluator/internal/models"
	"scriptgrade/answer-evaluator/internal/repositories"
	"scriptgrade/answer-evaluator/internal/services"
)

type UploadHandler struct {
	scriptRepo     repositories.ScriptRepository
	storageService services.StorageService
	maxFileSize    int64
}

func NewUploadHandler(
	scriptRepo repositories.ScriptRepository,
	storageService services.StorageService,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		scriptRepo:     scriptRepo,
		storageService: storageService,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload handles POST /upload: one scanned script PDF per request
// under the "script" form field.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("script")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No script PDF uploaded. Please upload a 'script' PDF file.",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Script file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	filename, filePath, err := h.storageService.SaveFile(file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save script file: %v", err),
		})
	}

	pageCount, err := services.PageCount(filePath)
	if err != nil {
		h.storageService.DeleteFile(filename)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("uploaded file is not a readable PDF: %v", err),
		})
	}

	script := models.Script{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FilePath:         filePath,
		PageCount:        pageCount,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.scriptRepo.Create(&script); err != nil {
		// Cleanup uploaded file if database insert fails
		h.storageService.DeleteFile(filename)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save script record: %v", err),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Script uploaded successfully",
		"script": models.UploadResponse{
			ID:           script.ID.String(),
			Filename:     script.Filename,
			OriginalName: script.OriginalFileName,
			PageCount:    script.PageCount,
		},
	})
}
