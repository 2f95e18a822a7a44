package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFType distinguishes machine-typed scripts from scanned handwriting.
type PDFType string

const (
	PDFTypeTyped   PDFType = "typed"
	PDFTypeScanned PDFType = "scanned"
)

// A typed PDF must carry at least this much extractable text; anything
// below is treated as a scan.
const typedTextMinLength = 200

// ExtractorService turns an uploaded script PDF into answer text. Typed
// PDFs are read directly; scanned ones go through the external OCR server.
type ExtractorService interface {
	DetectType(filePath string) (PDFType, error)
	Extract(ctx context.Context, filePath string) (string, error)
}

type extractorService struct {
	ocr OCRClient
}

func NewExtractorService(ocr OCRClient) ExtractorService {
	return &extractorService{ocr: ocr}
}

// DetectType implements ExtractorService.
func (e *extractorService) DetectType(filePath string) (PDFType, error) {
	text, err := extractTypedText(filePath)
	if err != nil {
		return "", err
	}

	if len(strings.TrimSpace(text)) > typedTextMinLength {
		return PDFTypeTyped, nil
	}
	return PDFTypeScanned, nil
}

// Extract implements ExtractorService.
func (e *extractorService) Extract(ctx context.Context, filePath string) (string, error) {
	pdfType, err := e.DetectType(filePath)
	if err != nil {
		return "", err
	}

	if pdfType == PDFTypeTyped {
		log.Println("📄 Typed PDF detected, extracting text directly")
		text, err := extractTypedText(filePath)
		if err != nil {
			return "", err
		}
		return CleanText(text), nil
	}

	log.Println("✍️  Scanned PDF detected, sending to OCR server")
	if err := e.ocr.Health(ctx); err != nil {
		return "", fmt.Errorf("ocr server not available: %w", err)
	}

	text, err := e.ocr.Recognize(ctx, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to recognize handwriting: %w", err)
	}

	return CleanText(text), nil
}

func extractTypedText(filePath string) (string, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", filePath)
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Log error but continue with other pages
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

// PageCount reads the number of pages without extracting text.
func PageCount(filePath string) (int, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	return r.NumPage(), nil
}

// CleanText trims each line and collapses runs of blank lines down to one,
// keeping paragraph boundaries intact for the layout heuristic.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string
	blankPending := false

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			blankPending = len(cleanedLines) > 0
			continue
		}
		if blankPending {
			cleanedLines = append(cleanedLines, "")
			blankPending = false
		}
		cleanedLines = append(cleanedLines, line)
	}

	return strings.Join(cleanedLines, "\n")
}
