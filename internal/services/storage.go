package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type StorageService interface {
	SaveFile(file *multipart.FileHeader) (string, string, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureUploadDir() error
	OCRDebugSink
}

// OCRDebugSink receives the raw and normalized OCR text of an evaluation
// for offline inspection. Failures are the caller's to ignore; the scoring
// core never depends on these writes.
type OCRDebugSink interface {
	WriteOCRTexts(rawText, normalizedText string) error
}

type storageService struct {
	uploadPath   string
	ocrDebugPath string
}

func NewStorageService(uploadPath, ocrDebugPath string) StorageService {
	return &storageService{
		uploadPath:   uploadPath,
		ocrDebugPath: ocrDebugPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) SaveFile(file *multipart.FileHeader) (string, string, error) {
	// Validate file extensions
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return "", "", fmt.Errorf("invalid file extension: %s", ext)
	}

	// Generate the unique filename
	uniqueFilename := fmt.Sprintf("script_%s%s", uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	// Open source file
	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	// Create destination file
	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	// Copy file
	if _, err := io.Copy(dst, src); err != nil {
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, filePath, nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filename)
}

func (s *storageService) DeleteFile(filename string) error {
	filePath := s.GetFilePath(filename)
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// WriteOCRTexts implements OCRDebugSink. Only the latest evaluation's pair
// is kept; older dumps are removed first.
func (s *storageService) WriteOCRTexts(rawText, normalizedText string) error {
	if err := os.MkdirAll(s.ocrDebugPath, 0755); err != nil {
		return fmt.Errorf("failed to create ocr debug directory: %w", err)
	}

	entries, err := os.ReadDir(s.ocrDebugPath)
	if err != nil {
		return fmt.Errorf("failed to read ocr debug directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "ocr_") && strings.HasSuffix(name, ".txt") {
			os.Remove(filepath.Join(s.ocrDebugPath, name))
		}
	}

	stamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	rawPath := filepath.Join(s.ocrDebugPath, fmt.Sprintf("ocr_%s_raw.txt", stamp))
	normalizedPath := filepath.Join(s.ocrDebugPath, fmt.Sprintf("ocr_%s_normalized.txt", stamp))

	if err := os.WriteFile(rawPath, []byte(rawText), 0644); err != nil {
		return fmt.Errorf("failed to write raw ocr text: %w", err)
	}
	if err := os.WriteFile(normalizedPath, []byte(normalizedText), 0644); err != nil {
		return fmt.Errorf("failed to write normalized ocr text: %w", err)
	}

	return nil
}
