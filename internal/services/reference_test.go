package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptgrade/answer-evaluator/internal/models"
)

// stubLoader serves a fixed record set without any backing source.
type stubLoader struct {
	records []models.RawReferenceRecord
	err     error
	calls   int
}

func (s *stubLoader) Load(_ context.Context) ([]models.RawReferenceRecord, error) {
	s.calls++
	return s.records, s.err
}

// fakeEmbedder maps exact texts to fixed unit vectors. Unknown non-empty
// text gets a default vector so index builds never fail by accident.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}
	if vector, ok := f.vectors[text]; ok {
		return vector, nil
	}
	return []float32{1, 0}, nil
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileReferenceLoader_MissingFile(t *testing.T) {
	loader := NewFileReferenceLoader(filepath.Join(t.TempDir(), "absent.json"))

	records, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestFileReferenceLoader_BlankFile(t *testing.T) {
	loader := NewFileReferenceLoader(writeTempFile(t, "  \n\t"))

	records, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestFileReferenceLoader_WrongShapeJSON(t *testing.T) {
	loader := NewFileReferenceLoader(writeTempFile(t, `{"not": "an array"}`))

	records, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestFileReferenceLoader_BrokenJSON(t *testing.T) {
	loader := NewFileReferenceLoader(writeTempFile(t, `[{"id": "x",`))

	_, err := loader.Load(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse reference file")
}

func TestFileReferenceLoader_ValidArray(t *testing.T) {
	loader := NewFileReferenceLoader(writeTempFile(t,
		`[{"id": "r1", "subject": "GS2", "domain": "polity", "question": "q", "answer_text": "a"}]`))

	records, err := loader.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "polity", records[0].Domain)
}

func TestFileReferenceLoader_NumericIDs(t *testing.T) {
	loader := NewFileReferenceLoader(writeTempFile(t,
		`[{"id": 1, "subject": "GS2", "domain": "polity", "question": "q1", "answer_text": "a1"},
		  {"id": 2.5, "subject": "GS2", "domain": "polity", "question": "q2", "answer_text": "a2"},
		  {"id": "r3", "subject": "GS2", "domain": "polity", "question": "q3", "answer_text": "a3"}]`))

	records, err := loader.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "2.5", records[1].ID)
	assert.Equal(t, "r3", records[2].ID)
	assert.Equal(t, "a2", records[1].AnswerText)
}

func TestFileReferenceLoader_NullIDFallsBackToPosition(t *testing.T) {
	loader := NewFileReferenceLoader(writeTempFile(t,
		`[{"id": null, "question": "q1", "answer_text": "a1"}]`))

	records, err := loader.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].ID)

	item := normalizeReferenceRecord(records[0], 1)
	assert.Equal(t, "1", item.ID)
}

func TestReferenceIndex_SampleFallbackOnEmptyCorpus(t *testing.T) {
	index := NewReferenceIndex(&stubLoader{}, &fakeEmbedder{})

	items, err := index.Items(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sample-gs2-polity-1", items[0].ID)
	assert.Equal(t, "GS2", items[0].Subject)
	assert.Equal(t, "sample", items[0].Type)
	assert.NotEmpty(t, items[0].Embedding)
	assert.NotEmpty(t, items[0].QuestionEmbedding)
}

func TestReferenceIndex_BuildsExactlyOnce(t *testing.T) {
	loader := &stubLoader{}
	index := NewReferenceIndex(loader, &fakeEmbedder{})

	_, err := index.Items(context.Background())
	require.NoError(t, err)
	_, err = index.Items(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls)
}

func TestReferenceIndex_LoaderErrorIsSticky(t *testing.T) {
	loader := &stubLoader{err: errors.New("source unreachable")}
	index := NewReferenceIndex(loader, &fakeEmbedder{})

	_, err := index.Items(context.Background())
	require.Error(t, err)

	_, err = index.Items(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, loader.calls)
}

func TestNormalizeReferenceRecord_Defaults(t *testing.T) {
	item := normalizeReferenceRecord(models.RawReferenceRecord{
		Question:   "  What is devolution?  ",
		AnswerText: " Transfer of powers. ",
	}, 3)

	assert.Equal(t, "3", item.ID)
	assert.Equal(t, "reference", item.Type)
	assert.Equal(t, "What is devolution?", item.Question)
	assert.Equal(t, "What is devolution?\nTransfer of powers.", item.Content)
}

func TestNormalizeReferenceRecord_SourceBecomesType(t *testing.T) {
	item := normalizeReferenceRecord(models.RawReferenceRecord{
		ID:         "r9",
		Question:   "q",
		AnswerText: "a",
		Source:     "textbook",
	}, 1)

	assert.Equal(t, "textbook", item.Type)
}

func TestNormalizeReferenceRecord_AnswerOnlyContent(t *testing.T) {
	item := normalizeReferenceRecord(models.RawReferenceRecord{
		ID:         "r2",
		AnswerText: "just an answer",
	}, 1)

	assert.Equal(t, "just an answer", item.Content)
	assert.Empty(t, item.Question)
}

func TestFindBestMatch_EmptyQueryEmbedding(t *testing.T) {
	loader := &stubLoader{}
	index := NewReferenceIndex(loader, &fakeEmbedder{})

	match, err := index.FindBestMatch(context.Background(), nil, "", "")

	require.NoError(t, err)
	assert.Nil(t, match)
	// No query signal means the index is never even built.
	assert.Zero(t, loader.calls)
}

func TestFindBestMatch_PicksClosestQuestion(t *testing.T) {
	records := []models.RawReferenceRecord{
		{ID: "far", Question: "q far", AnswerText: "a"},
		{ID: "near", Question: "q near", AnswerText: "a"},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q far":  {0, 1},
		"q near": {1, 0},
	}}
	index := NewReferenceIndex(&stubLoader{records: records}, embedder)

	match, err := index.FindBestMatch(context.Background(), []float32{1, 0}, "", "")

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "near", match.Item.ID)
	assert.InDelta(t, 1.0, match.Score, 1e-6)
}

func TestFindBestMatch_TieKeepsFirstEncountered(t *testing.T) {
	records := []models.RawReferenceRecord{
		{ID: "first", Question: "what is federalism", AnswerText: "a"},
		{ID: "second", Question: "explain federalism", AnswerText: "a"},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"what is federalism": {1, 0},
		"explain federalism": {1, 0},
	}}
	index := NewReferenceIndex(&stubLoader{records: records}, embedder)

	match, err := index.FindBestMatch(context.Background(), []float32{1, 0}, "", "")

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "first", match.Item.ID)
}

func TestFindBestMatch_FiltersAreCaseInsensitive(t *testing.T) {
	records := []models.RawReferenceRecord{
		{ID: "polity", Subject: "GS2", Domain: "Polity", Question: "q1", AnswerText: "a"},
		{ID: "economy", Subject: "GS3", Domain: "Economy", Question: "q2", AnswerText: "a"},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q1": {0, 1},
		"q2": {1, 0},
	}}
	index := NewReferenceIndex(&stubLoader{records: records}, embedder)

	// q2 is closer but filtered out by subject; the filter wins.
	match, err := index.FindBestMatch(context.Background(), []float32{1, 0}, "gs2", "POLITY")

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "polity", match.Item.ID)
}

func TestFindBestMatch_NoCandidateAfterFilter(t *testing.T) {
	records := []models.RawReferenceRecord{
		{ID: "r1", Subject: "GS2", Domain: "polity", Question: "q1", AnswerText: "a"},
	}
	index := NewReferenceIndex(&stubLoader{records: records}, &fakeEmbedder{})

	match, err := index.FindBestMatch(context.Background(), []float32{1, 0}, "GS4", "")

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindBestMatch_SkipsItemsWithoutQuestionEmbedding(t *testing.T) {
	records := []models.RawReferenceRecord{
		{ID: "no-question", AnswerText: "answer only"},
		{ID: "with-question", Question: "q1", AnswerText: "a"},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q1": {0, 1},
	}}
	index := NewReferenceIndex(&stubLoader{records: records}, embedder)

	// The question-less item would tie at score 0 but is never considered.
	match, err := index.FindBestMatch(context.Background(), []float32{1, 0}, "", "")

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "with-question", match.Item.ID)
}

func TestRetrieveTopK_RanksByContentSimilarity(t *testing.T) {
	records := []models.RawReferenceRecord{
		{ID: "weak", Question: "q one", AnswerText: "ans one"},
		{ID: "strong", Question: "q two", AnswerText: "ans two"},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q one\nans one": {0, 1},
		"q two\nans two": {1, 0},
	}}
	index := NewReferenceIndex(&stubLoader{records: records}, embedder)

	chunks, err := index.RetrieveTopK(context.Background(), []float32{1, 0}, "", "", 5)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "strong", chunks[0].ID)
	assert.Equal(t, "weak", chunks[1].ID)
}

func TestRetrieveTopK_CapsAtK(t *testing.T) {
	records := []models.RawReferenceRecord{
		{ID: "r1", Question: "q1", AnswerText: "a1"},
		{ID: "r2", Question: "q2", AnswerText: "a2"},
		{ID: "r3", Question: "q3", AnswerText: "a3"},
	}
	index := NewReferenceIndex(&stubLoader{records: records}, &fakeEmbedder{})

	chunks, err := index.RetrieveTopK(context.Background(), []float32{1, 0}, "", "", 2)

	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}
