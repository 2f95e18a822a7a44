package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"scriptgrade/answer-evaluator/internal/models"
)

// ReferenceLoader yields raw corpus records from the configured backing
// source. Absence of a backing source is not an error; an empty result
// makes the index fall back to the built-in sample item.
type ReferenceLoader interface {
	Load(ctx context.Context) ([]models.RawReferenceRecord, error)
}

// sampleReferenceRecords keeps the engine off an empty index when no corpus
// source is available.
var sampleReferenceRecords = []models.RawReferenceRecord{
	{
		ID:      "sample-gs2-polity-1",
		Subject: "GS2",
		Domain:  "polity",
		Question: "Adequately empowering the third tier of Indian federal structure " +
			"is key to strengthen federalism in India. Analyze.",
		AnswerText: "Empowering local governments strengthens cooperative federalism " +
			"through subsidiarity, citizen participation, and accountable service delivery. " +
			"The 73rd and 74th Constitutional Amendments created panchayats and municipalities " +
			"with constitutional status, regular elections, and devolution of functions. " +
			"Effective fiscal decentralization, capacity building, and clear state finance " +
			"commission recommendations are crucial to reduce dependency. Challenges include " +
			"uneven devolution, political interference, and limited revenue powers. " +
			"Strengthening planning, transparency, and local autonomy deepens democracy " +
			"and improves governance outcomes.",
		Type: "sample",
	},
}

type fileReferenceLoader struct {
	path string
}

// NewFileReferenceLoader loads the corpus from a JSON array on disk. A
// missing or blank file yields no records; valid JSON of the wrong shape
// yields no records; unparseable JSON is a hard error.
func NewFileReferenceLoader(path string) ReferenceLoader {
	return &fileReferenceLoader{path: path}
}

// Load implements ReferenceLoader.
func (l *fileReferenceLoader) Load(_ context.Context) ([]models.RawReferenceRecord, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	var records []models.RawReferenceRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		// Distinguish "valid JSON, wrong shape" from broken JSON.
		var probe interface{}
		if json.Unmarshal(raw, &probe) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse reference file: %w", err)
	}

	return records, nil
}

type qdrantReferenceLoader struct {
	qdrant QdrantService
}

// NewQdrantReferenceLoader rebuilds the corpus from the Qdrant collection
// populated by the ingest script. The in-memory index is still the source
// of truth at query time; Qdrant is only the flat data source.
func NewQdrantReferenceLoader(qdrant QdrantService) ReferenceLoader {
	return &qdrantReferenceLoader{qdrant: qdrant}
}

// Load implements ReferenceLoader.
func (l *qdrantReferenceLoader) Load(ctx context.Context) ([]models.RawReferenceRecord, error) {
	records, err := l.qdrant.ScrollAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll reference collection: %w", err)
	}
	return records, nil
}

// ReferenceIndex holds the embedded corpus. It is built lazily once per
// process and never invalidated; a new process picks up corpus changes.
type ReferenceIndex struct {
	loader   ReferenceLoader
	embedder Embedder

	once     sync.Once
	items    []models.ReferenceItem
	buildErr error
}

func NewReferenceIndex(loader ReferenceLoader, embedder Embedder) *ReferenceIndex {
	return &ReferenceIndex{
		loader:   loader,
		embedder: embedder,
	}
}

// Items returns the built index, building it on first use. A build failure
// is unrecoverable for the process lifetime.
func (ix *ReferenceIndex) Items(ctx context.Context) ([]models.ReferenceItem, error) {
	ix.once.Do(func() {
		ix.items, ix.buildErr = ix.build(ctx)
	})
	return ix.items, ix.buildErr
}

func (ix *ReferenceIndex) build(ctx context.Context) ([]models.ReferenceItem, error) {
	records, err := ix.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference corpus: %w", err)
	}

	if len(records) == 0 {
		log.Println("⚠️  Reference corpus empty, falling back to built-in sample")
		records = sampleReferenceRecords
	}

	items := make([]models.ReferenceItem, 0, len(records))
	for i, record := range records {
		item := normalizeReferenceRecord(record, i+1)

		embedding, err := ix.embedder.Embed(ctx, item.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to embed reference %q: %w", item.ID, err)
		}
		item.Embedding = embedding

		// Question-only matching at query time compares question to
		// question, so the question gets its own embedding.
		questionEmbedding, err := ix.embedder.Embed(ctx, item.Question)
		if err != nil {
			return nil, fmt.Errorf("failed to embed reference question %q: %w", item.ID, err)
		}
		item.QuestionEmbedding = questionEmbedding

		items = append(items, item)
	}

	log.Printf("✅ Reference index built with %d items\n", len(items))
	return items, nil
}

func normalizeReferenceRecord(record models.RawReferenceRecord, position int) models.ReferenceItem {
	id := strings.TrimSpace(record.ID)
	if id == "" {
		id = strconv.Itoa(position)
	}

	itemType := strings.TrimSpace(record.Type)
	if itemType == "" {
		itemType = strings.TrimSpace(record.Source)
	}
	if itemType == "" {
		itemType = "reference"
	}

	question := strings.TrimSpace(record.Question)
	answerText := strings.TrimSpace(record.AnswerText)

	var parts []string
	if question != "" {
		parts = append(parts, question)
	}
	if answerText != "" {
		parts = append(parts, answerText)
	}

	return models.ReferenceItem{
		ID:         id,
		Subject:    strings.TrimSpace(record.Subject),
		Domain:     strings.TrimSpace(record.Domain),
		Question:   question,
		AnswerText: answerText,
		Type:       itemType,
		Content:    strings.Join(parts, "\n"),
	}
}

func matchesFilter(value, filterValue string) bool {
	if filterValue == "" {
		return true
	}
	return strings.EqualFold(value, filterValue)
}

// FindBestMatch returns the item whose question embedding is closest to the
// query, restricted to subject/domain when those filters are non-empty.
// Ties keep the first-encountered item; with a small corpus that
// non-determinism is acceptable and deliberate. Returns nil when the query
// embedding is empty or no candidate qualifies.
func (ix *ReferenceIndex) FindBestMatch(ctx context.Context, queryEmbedding []float32, subject, domain string) (*models.MatchResult, error) {
	if len(queryEmbedding) == 0 {
		return nil, nil
	}

	items, err := ix.Items(ctx)
	if err != nil {
		return nil, err
	}

	var best *models.MatchResult
	for i := range items {
		item := &items[i]
		if !matchesFilter(item.Subject, subject) || !matchesFilter(item.Domain, domain) {
			continue
		}
		if len(item.QuestionEmbedding) == 0 {
			continue
		}

		score := CosineSimilarity(queryEmbedding, item.QuestionEmbedding)
		if best == nil || score > best.Score {
			best = &models.MatchResult{Item: item, Score: score}
		}
	}

	return best, nil
}

// RetrieveTopK ranks the filtered corpus by full-content similarity and
// returns the top k as retrieval chunks.
func (ix *ReferenceIndex) RetrieveTopK(ctx context.Context, queryEmbedding []float32, subject, domain string, k int) ([]models.RetrievedChunk, error) {
	items, err := ix.Items(ctx)
	if err != nil {
		return nil, err
	}

	var chunks []models.RetrievedChunk
	for i := range items {
		item := &items[i]
		if !matchesFilter(item.Subject, subject) || !matchesFilter(item.Domain, domain) {
			continue
		}

		chunks = append(chunks, chunkFromItem(item, CosineSimilarity(queryEmbedding, item.Embedding)))
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Similarity > chunks[j].Similarity
	})

	if k > 0 && len(chunks) > k {
		chunks = chunks[:k]
	}
	return chunks, nil
}

func chunkFromItem(item *models.ReferenceItem, similarity float64) models.RetrievedChunk {
	return models.RetrievedChunk{
		ID:         item.ID,
		Subject:    item.Subject,
		Domain:     item.Domain,
		Question:   item.Question,
		Type:       item.Type,
		Content:    item.Content,
		Similarity: similarity,
	}
}
