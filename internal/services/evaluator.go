package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"scriptgrade/answer-evaluator/internal/config"
	"scriptgrade/answer-evaluator/internal/models"
	"scriptgrade/answer-evaluator/internal/repositories"
)

// ErrMissingAnswerText is the bad-request condition: evaluation without
// answer text is the one caller mistake that is reported instead of
// defaulted.
var ErrMissingAnswerText = errors.New("answer text is required")

// diagramMarker is inserted by the OCR pipeline where it detected a figure.
const diagramMarker = "[DIAGRAM DETECTED"

type EvaluatorService interface {
	// EvaluateAnswer runs the full scoring decision procedure on a single
	// answer text.
	EvaluateAnswer(ctx context.Context, req *models.EvaluateRequest) (*models.EvaluationResult, error)
	// EvaluateScript processes one queued grading job: extract the script's
	// text, evaluate it, persist the result.
	EvaluateScript(ctx context.Context, evalID uuid.UUID) error
}

type evaluatorService struct {
	evalRepo   repositories.EvaluationRepository
	scriptRepo repositories.ScriptRepository
	index      *ReferenceIndex
	embedder   Embedder
	judge      JudgeService
	extractor  ExtractorService
	debugSink  OCRDebugSink
	cfg        config.EvaluationConfig
}

func NewEvaluatorService(
	evalRepo repositories.EvaluationRepository,
	scriptRepo repositories.ScriptRepository,
	index *ReferenceIndex,
	embedder Embedder,
	judge JudgeService,
	extractor ExtractorService,
	debugSink OCRDebugSink,
	cfg config.EvaluationConfig,
) EvaluatorService {
	return &evaluatorService{
		evalRepo:   evalRepo,
		scriptRepo: scriptRepo,
		index:      index,
		embedder:   embedder,
		judge:      judge,
		extractor:  extractor,
		debugSink:  debugSink,
		cfg:        cfg,
	}
}

// EvaluateAnswer implements EvaluatorService. The procedure has two
// branches selected by a single threshold test on the best question match:
// at or above the threshold the deterministic rubric leads and the judge
// may only add a bounded amount; below it the judge scores cold, because a
// rubric computed against an off-topic reference is worse than no rubric
// at all.
func (e *evaluatorService) EvaluateAnswer(ctx context.Context, req *models.EvaluateRequest) (*models.EvaluationResult, error) {
	trimmedAnswer := strings.TrimSpace(req.AnswerText)
	if trimmedAnswer == "" {
		return nil, ErrMissingAnswerText
	}

	llmEnabled := e.cfg.LLMEnabled
	if req.EnableLLM != nil {
		llmEnabled = *req.EnableLLM
	}
	normalizeEnabled := llmEnabled && e.cfg.NormalizeEnabled
	if req.EnableNormalization != nil {
		normalizeEnabled = *req.EnableNormalization
	}

	normalizedAnswer := trimmedAnswer
	if normalizeEnabled {
		cleaned, err := e.judge.Normalize(ctx, trimmedAnswer)
		if err != nil {
			log.Printf("⚠️  Normalization unavailable, keeping raw text: %v\n", err)
		} else {
			normalizedAnswer = cleaned
		}
	}

	if e.debugSink != nil {
		if err := e.debugSink.WriteOCRTexts(trimmedAnswer, normalizedAnswer); err != nil {
			log.Printf("⚠️  Failed to write OCR debug texts: %v\n", err)
		}
	}

	layoutScore := ScoreLayout(normalizedAnswer)
	visualScore := 0.0
	if strings.Contains(trimmedAnswer, diagramMarker) {
		visualScore = 1.0
	}

	questionText := strings.TrimSpace(req.Question)
	var questionEmbedding []float32
	if questionText != "" {
		embedded, err := e.embedder.Embed(ctx, questionText)
		if err != nil {
			log.Printf("⚠️  Question embedding unavailable: %v\n", err)
		} else {
			questionEmbedding = embedded
		}
	}

	bestMatch, err := e.index.FindBestMatch(ctx, questionEmbedding, req.Subject, req.Domain)
	if err != nil {
		return nil, fmt.Errorf("reference index unavailable: %w", err)
	}

	matchScore := 0.0
	if bestMatch != nil {
		matchScore = bestMatch.Score
	}

	textScore := 0.0
	finalScore := 0.0
	confidence := matchScore

	if bestMatch != nil && matchScore >= e.cfg.MatchThreshold {
		// Confident match: the deterministic rubric leads.
		chunk := chunkFromItem(bestMatch.Item, matchScore)
		rubric := ScoreAnswer(RubricInput{
			StudentAnswer:    normalizedAnswer,
			RetrievedChunks:  []models.RetrievedChunk{chunk},
			SimilarityScores: []float64{matchScore},
		})

		textScore = rubric.Score
		finalScore = textScore

		if llmEnabled {
			verdict, err := e.judge.Adjust(ctx, questionText, normalizedAnswer, chunk.Content, rubric.Score)
			if err != nil {
				// Degrade to the rubric, never to zero.
				log.Printf("⚠️  Judge adjust unavailable, keeping rubric score: %v\n", err)
				confidence = matchScore
			} else {
				adjustment := 0.0
				if verdict.ScoreAdjustment != nil {
					adjustment = clamp(*verdict.ScoreAdjustment, 0, e.cfg.MaxAdjustment)
				}
				finalScore = clamp(textScore+adjustment, 0, 10)

				if verdict.Confidence != nil {
					confidence = *verdict.Confidence
				}
				if verdict.LayoutScore != nil {
					layoutScore = *verdict.LayoutScore
				}
				if verdict.VisualScore != nil {
					visualScore = *verdict.VisualScore
				}
			}
		}
	} else if llmEnabled {
		// No confident reference: there is nothing trustworthy to score
		// against deterministically, so the judge scores cold. Failure here
		// leaves zero.
		verdict, err := e.judge.Score(ctx, questionText, normalizedAnswer)
		if err != nil {
			log.Printf("⚠️  Judge score unavailable: %v\n", err)
		} else {
			if verdict.Score != nil {
				textScore = clamp(*verdict.Score, 0, 10)
				finalScore = textScore
			}
			if verdict.Confidence != nil {
				confidence = *verdict.Confidence
			}
			if verdict.LayoutScore != nil {
				layoutScore = *verdict.LayoutScore
			}
			if verdict.VisualScore != nil {
				visualScore = *verdict.VisualScore
			}
		}
	}

	return &models.EvaluationResult{
		FinalScore:  clamp(finalScore, 0, 10),
		TextScore:   clamp(textScore, 0, 10),
		VisualScore: clamp(visualScore*10, 0, 10),
		LayoutScore: clamp(layoutScore*10, 0, 10),
		Confidence:  clamp(confidence*10, 0, 10),
	}, nil
}

// EvaluateScript implements EvaluatorService. The job is claimed before any
// work happens; a job that reaches the queue twice (handler enqueue plus the
// pending-jobs poller) is evaluated exactly once.
func (e *evaluatorService) EvaluateScript(ctx context.Context, evalID uuid.UUID) error {
	claimed, err := e.evalRepo.ClaimPending(evalID)
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if !claimed {
		log.Printf("⚠️  Job %s already claimed, skipping\n", evalID)
		return nil
	}

	log.Printf("🔄 Starting evaluation for job ID: %s\n", evalID)

	evaluation, err := e.evalRepo.FindByID(evalID)
	if err != nil {
		e.evalRepo.UpdateError(evalID, err.Error())
		return fmt.Errorf("failed to get evaluation: %w", err)
	}

	script, err := e.scriptRepo.FindByID(evaluation.ScriptID)
	if err != nil {
		e.evalRepo.UpdateError(evalID, fmt.Sprintf("script not found: %v", err))
		return fmt.Errorf("failed to get script: %w", err)
	}

	log.Println("📄 Extracting answer text from script...")
	answerText, err := e.extractor.Extract(ctx, script.FilePath)
	if err != nil {
		e.evalRepo.UpdateError(evalID, fmt.Sprintf("failed to extract text: %v", err))
		return fmt.Errorf("failed to extract text: %w", err)
	}

	result, err := e.EvaluateAnswer(ctx, &models.EvaluateRequest{
		Subject:    evaluation.Subject,
		Domain:     evaluation.Domain,
		Question:   evaluation.Question,
		AnswerText: answerText,
	})
	if err != nil {
		e.evalRepo.UpdateError(evalID, fmt.Sprintf("failed to evaluate answer: %v", err))
		return fmt.Errorf("failed to evaluate answer: %w", err)
	}

	log.Println("💾 Saving evaluation results...")
	if err := e.evalRepo.UpdateResult(evalID, result); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	log.Printf("✅ Evaluation completed successfully for job ID: %s\n", evalID)
	return nil
}

func clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}
