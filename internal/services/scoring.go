package services

import (
	"math"
	"regexp"
	"strings"

	"scriptgrade/answer-evaluator/internal/models"
)

// RubricInput is everything the deterministic scorer looks at: the answer
// text plus the retrieved reference chunks and their retrieval similarities.
type RubricInput struct {
	StudentAnswer    string
	RetrievedChunks  []models.RetrievedChunk
	SimilarityScores []float64
}

// RubricScore is the deterministic 0-10 score with its component
// diagnostics. Computed fresh per request, never cached.
type RubricScore struct {
	Score             float64  `json:"score"`
	Coverage          float64  `json:"coverage"`
	SimilarityAverage float64  `json:"similarity_average"`
	KeyPointCoverage  float64  `json:"key_point_coverage"`
	StructureScore    float64  `json:"structure_score"`
	StudentKeywords   []string `json:"student_keywords"`
	MissingKeywords   []string `json:"missing_keywords"`
}

const (
	weightSimilarity = 0.4
	weightCoverage   = 0.3
	weightKeyPoints  = 0.2
	weightStructure  = 0.1
)

// ScoreAnswer combines retrieval similarity, keyword coverage, key-sentence
// coverage and structural heuristics into a 0-10 score. Pure and
// deterministic; no external calls, no input mutation.
func ScoreAnswer(input RubricInput) RubricScore {
	studentKeywords := ExtractKeywords(input.StudentAnswer, 0)

	var keywordLists [][]string
	var keyPointLists [][]string
	for _, chunk := range input.RetrievedChunks {
		keywordLists = append(keywordLists, ExtractKeywords(chunk.Content, 0))
		keyPointLists = append(keyPointLists, extractKeyPoints(chunk.Content))
	}

	referenceKeywords := uniqueMerge(keywordLists)
	keyPoints := uniqueMerge(keyPointLists)

	studentSet := make(map[string]struct{}, len(studentKeywords))
	for _, keyword := range studentKeywords {
		studentSet[keyword] = struct{}{}
	}

	overlap := 0
	var missingKeywords []string
	for _, keyword := range referenceKeywords {
		if _, ok := studentSet[keyword]; ok {
			overlap++
		} else {
			missingKeywords = append(missingKeywords, keyword)
		}
	}

	coverage := 0.0
	if len(referenceKeywords) > 0 {
		coverage = float64(overlap) / float64(len(referenceKeywords))
	}

	similarityAverage := 0.0
	if len(input.SimilarityScores) > 0 {
		var sum float64
		for _, score := range input.SimilarityScores {
			sum += score
		}
		similarityAverage = sum / float64(len(input.SimilarityScores))
	}

	keyPointCoverage := scoreKeyPointCoverage(keyPoints, studentSet)
	structureScore := ScoreLayout(input.StudentAnswer)

	weighted := weightSimilarity*similarityAverage +
		weightCoverage*coverage +
		weightKeyPoints*keyPointCoverage +
		weightStructure*structureScore

	// Scale to 0-10, one decimal place.
	score := math.Round(weighted*100) / 10

	return RubricScore{
		Score:             score,
		Coverage:          coverage,
		SimilarityAverage: similarityAverage,
		KeyPointCoverage:  keyPointCoverage,
		StructureScore:    structureScore,
		StudentKeywords:   studentKeywords,
		MissingKeywords:   missingKeywords,
	}
}

// ScoreLayout is the structural heuristic in [0,1]: 0.4 for an introduction
// marker, 0.4 for a conclusion marker, 0.2 for two or more blank-line
// separated paragraphs.
func ScoreLayout(text string) float64 {
	lower := strings.ToLower(text)
	hasIntro := strings.Contains(lower, "introduction") || strings.Contains(lower, "intro")
	hasConclusion := strings.Contains(lower, "conclusion") ||
		strings.Contains(lower, "in conclusion") ||
		strings.Contains(lower, "to conclude")

	paragraphCount := 0
	for _, paragraph := range paragraphSplitter.Split(text, -1) {
		if strings.TrimSpace(paragraph) != "" {
			paragraphCount++
		}
	}

	score := 0.0
	if hasIntro {
		score += 0.4
	}
	if hasConclusion {
		score += 0.4
	}
	if paragraphCount >= 2 {
		score += 0.2
	}

	return math.Min(score, 1)
}

var paragraphSplitter = regexp.MustCompile(`\n{2,}`)

// extractKeyPoints returns the first five sentences of a chunk. Sentences
// end at '.', '!' or '?' followed by whitespace.
func extractKeyPoints(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && !isSpace(text[i+1]) {
			continue
		}

		sentence := strings.TrimSpace(text[start : i+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}

	if len(sentences) > 5 {
		sentences = sentences[:5]
	}
	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// scoreKeyPointCoverage counts key sentences whose top keywords intersect
// the student's keywords.
func scoreKeyPointCoverage(keyPoints []string, studentSet map[string]struct{}) float64 {
	if len(keyPoints) == 0 {
		return 0
	}

	matched := 0
	for _, point := range keyPoints {
		for _, keyword := range ExtractKeywords(point, 6) {
			if _, ok := studentSet[keyword]; ok {
				matched++
				break
			}
		}
	}

	return float64(matched) / float64(len(keyPoints))
}

// uniqueMerge flattens lists preserving first-seen order, dropping
// duplicates.
func uniqueMerge(lists [][]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, list := range lists {
		for _, item := range list {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged
}
