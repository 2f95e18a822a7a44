package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// JudgeService delegates answer judgment and OCR-noise normalization to the
// language model. The model output is untrusted: every numeric field is
// range-checked and the normalization output passes a drift gate before it
// replaces the original text. Callers treat every error here as non-fatal
// and fall back to a deterministic result.
type JudgeService interface {
	// Score estimates a 0-10 score from scratch, with no rubric baseline.
	Score(ctx context.Context, question, studentAnswer string) (*JudgeVerdict, error)
	// Adjust proposes a one-directional addition to an existing rubric
	// score. The model is told to stay in [0,+2]; callers must clamp the
	// returned adjustment regardless.
	Adjust(ctx context.Context, question, studentAnswer, referenceText string, rubricScore float64) (*JudgeVerdict, error)
	// Normalize cleans OCR artifacts from raw answer text. A cleaned text
	// that fails the length or token-overlap gate is discarded and the
	// original returned unchanged.
	Normalize(ctx context.Context, rawAnswer string) (string, error)
}

// JudgeVerdict is the validated model response. Optional fields stay nil
// when the model omits them.
type JudgeVerdict struct {
	Score           *float64 `json:"score"`
	ScoreAdjustment *float64 `json:"score_adjustment"`
	Confidence      *float64 `json:"confidence"`
	LayoutScore     *float64 `json:"layout_score"`
	VisualScore     *float64 `json:"visual_score"`
}

// Drift gate bounds for normalization output.
const (
	normalizeMaxLengthRatio = 1.4
	normalizeMinLengthRatio = 0.5
	normalizeMinOverlap     = 0.4
)

const (
	judgeTemperature     = 0.3
	normalizeTemperature = 0.2
)

type judgeService struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
}

func NewJudgeService(gemini GeminiService) JudgeService {
	return &judgeService{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
	}
}

// Score implements JudgeService.
func (j *judgeService) Score(ctx context.Context, question, studentAnswer string) (*JudgeVerdict, error) {
	prompt := j.promptBuilder.BuildScorePrompt(question, studentAnswer)

	verdict, err := j.generateVerdict(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if verdict.Score == nil {
		return nil, fmt.Errorf("judge response missing score")
	}

	return verdict, nil
}

// Adjust implements JudgeService.
func (j *judgeService) Adjust(ctx context.Context, question, studentAnswer, referenceText string, rubricScore float64) (*JudgeVerdict, error) {
	prompt := j.promptBuilder.BuildAdjustPrompt(question, studentAnswer, referenceText, rubricScore)

	return j.generateVerdict(ctx, prompt)
}

// Normalize implements JudgeService.
func (j *judgeService) Normalize(ctx context.Context, rawAnswer string) (string, error) {
	if rawAnswer == "" {
		return rawAnswer, nil
	}

	prompt := j.promptBuilder.BuildNormalizationPrompt(rawAnswer)

	response, err := j.gemini.GenerateText(ctx, prompt, normalizeTemperature)
	if err != nil {
		return rawAnswer, fmt.Errorf("normalization request failed: %w", err)
	}

	cleaned := strings.TrimSpace(response)
	if cleaned == "" {
		return rawAnswer, nil
	}

	rawLength := utf8.RuneCountInString(rawAnswer)
	cleanedLength := utf8.RuneCountInString(cleaned)
	maxAllowed := int(math.Ceil(float64(rawLength) * normalizeMaxLengthRatio))
	minAllowed := int(math.Floor(float64(rawLength) * normalizeMinLengthRatio))

	// Drift gate: the model is a lossy, possibly-unreliable filter. Anything
	// that looks like a rewrite rather than a cleanup is discarded.
	if cleanedLength > maxAllowed || cleanedLength < minAllowed {
		return rawAnswer, nil
	}
	if TokenJaccard(rawAnswer, cleaned) < normalizeMinOverlap {
		return rawAnswer, nil
	}

	return cleaned, nil
}

func (j *judgeService) generateVerdict(ctx context.Context, prompt string) (*JudgeVerdict, error) {
	response, err := j.gemini.GenerateText(ctx, prompt, judgeTemperature)
	if err != nil {
		return nil, fmt.Errorf("judge request failed: %w", err)
	}

	var verdict JudgeVerdict
	if err := parseJSONResponse(response, &verdict); err != nil {
		return nil, fmt.Errorf("judge response was not valid JSON: %w", err)
	}

	validateVerdict(&verdict)
	return &verdict, nil
}

// validateVerdict drops or clamps fields instead of trusting the model to
// self-enforce its bounds. Score and ScoreAdjustment survive out of range
// because the orchestrator clamps both before use; optional sub-scores out
// of range are discarded entirely.
func validateVerdict(verdict *JudgeVerdict) {
	verdict.Score = numericOrNil(verdict.Score)
	verdict.ScoreAdjustment = numericOrNil(verdict.ScoreAdjustment)
	verdict.Confidence = boundedOrNil(verdict.Confidence, 0, 1)
	verdict.LayoutScore = boundedOrNil(verdict.LayoutScore, 0, 1)
	verdict.VisualScore = boundedOrNil(verdict.VisualScore, 0, 1)
}

func numericOrNil(value *float64) *float64 {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return nil
	}
	return value
}

func boundedOrNil(value *float64, min, max float64) *float64 {
	if value == nil {
		return nil
	}
	if math.IsNaN(*value) || *value < min || *value > max {
		return nil
	}
	return value
}

func parseJSONResponse(response string, target interface{}) error {
	jsonStr := extractJSON(response)

	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

// extractJSON tries to extract JSON from text that might contain markdown or
// other formatting.
func extractJSON(text string) string {
	// Remove markdown code blocks
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}
