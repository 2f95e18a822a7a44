package services

import (
	"fmt"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildAdjustPrompt creates the prompt for the bounded score-adjustment
// mode: the model may only add to an existing rubric score.
func (pb *PromptBuilder) BuildAdjustPrompt(question, studentAnswer, referenceText string, rubricScore float64) string {
	return fmt.Sprintf(`You are an experienced examiner ASSISTING an automated scoring system.

IMPORTANT CONTEXT:
- Student answer is OCR-extracted handwritten text.
- Contains spelling errors, broken words, missing structure.
- DO NOT penalize language, handwriting, spelling or OCR artifacts.
- Normalize incorrect words mentally to the closest valid subject terms
  (e.g., "subsidianity" -> "subsidiarity").

YOUR ROLE:
- The system has already given a BASE rubric score.
- You may ONLY ENHANCE the score if deserved.
- NEVER reduce marks.
- If unsure, return score_adjustment = 0.

EVALUATION GUIDELINES:
- Reward correct definitions, relevant provisions, examples (including
  diagrams if implied), and logical flow even if formatting is lost.
- Assume a standard answer structure unless clearly absent.
- Reward intent and conceptual clarity over precision.

SCORING RULES:
- score_adjustment: 0 to +2
- Use +0.5 to +1 for partial improvement, +1 to +2 for clear conceptual depth.

OUTPUT FORMAT (STRICT JSON ONLY):
{
  "score_adjustment": number,
  "confidence": number between 0 and 1,
  "layout_score": number between 0 and 1 (optional),
  "visual_score": number between 0 and 1 (optional)
}

QUESTION:
%s

REFERENCE MATERIAL:
%s

STUDENT ANSWER (OCR TEXT):
%s

CURRENT RUBRIC SCORE (0-10):
%.1f
`, question, referenceText, studentAnswer, rubricScore)
}

// BuildScorePrompt creates the prompt for cold scoring, used when no
// confident reference match exists.
func (pb *PromptBuilder) BuildScorePrompt(question, studentAnswer string) string {
	if question == "" {
		question = "(not provided)"
	}

	return fmt.Sprintf(`You are an experienced examiner.

IMPORTANT CONTEXT:
- The answer is OCR-extracted from a handwritten script.
- Text contains spelling errors, broken words, missing punctuation and lost structure.
- DO NOT penalize spelling, grammar, handwriting or OCR noise.
- Mentally normalize words to the closest valid subject terms.

EVALUATION RULES:
- Focus ONLY on relevance to the question, conceptual understanding and
  examples / diagrams (assume diagrams exist if implied).
- Reward INTENT even if expression is weak.
- Give PARTIAL CREDIT generously.
- Assume the student attempted a standard structure even if formatting is lost.

SCORING:
- Score range: 0-10
- 4-5 = basic understanding
- 6-7 = decent answer with gaps
- 8-9 = strong answer
- 10 = near-perfect

OUTPUT FORMAT (STRICT JSON ONLY):
{
  "score": number,
  "confidence": number between 0 and 1,
  "layout_score": number between 0 and 1 (optional),
  "visual_score": number between 0 and 1 (optional)
}

QUESTION:
%s

STUDENT ANSWER (OCR TEXT):
%s
`, question, studentAnswer)
}

// BuildNormalizationPrompt creates the prompt for OCR-noise cleanup. The
// model must only fix spelling and continuity, never change meaning.
func (pb *PromptBuilder) BuildNormalizationPrompt(studentAnswer string) string {
	return "You are cleaning OCR-extracted handwritten exam answers. " +
		"Do NOT change the meaning of any sentence. Do not add or remove ideas. " +
		"Only fix spelling, broken words, and sentence continuity. " +
		"Restore intended subject terms where obvious. If unsure, keep original wording. " +
		"Output only the cleaned answer.\n\nRAW OCR ANSWER:\n" + studentAnswer
}
