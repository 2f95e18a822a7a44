package models

import "encoding/json"

// RawReferenceRecord is one corpus entry as it arrives from the backing
// source (JSON file or Qdrant payload), before normalization.
type RawReferenceRecord struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Domain     string `json:"domain"`
	Question   string `json:"question"`
	AnswerText string `json:"answer_text"`
	Type       string `json:"type"`
	Source     string `json:"source"`
}

// UnmarshalJSON accepts id as either a JSON string or a bare number;
// hand-authored corpora use both. Any other id shape decodes to empty,
// which falls back to the record's position.
func (r *RawReferenceRecord) UnmarshalJSON(data []byte) error {
	type rawRecord RawReferenceRecord
	aux := struct {
		ID json.RawMessage `json:"id"`
		*rawRecord
	}{rawRecord: (*rawRecord)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.ID = flexibleID(aux.ID)
	return nil
}

func flexibleID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}

	return ""
}

// ReferenceItem is a normalized, embedded corpus entry held by the
// in-memory reference index.
type ReferenceItem struct {
	ID         string
	Subject    string
	Domain     string
	Question   string
	AnswerText string
	Type       string

	// Content is question and answer joined with a newline; it is the
	// embedding basis for full-content similarity.
	Content           string
	Embedding         []float32
	QuestionEmbedding []float32
}

// RetrievedChunk is the slice of a matched reference handed to the rubric
// scorer and the judge.
type RetrievedChunk struct {
	ID         string  `json:"id"`
	Subject    string  `json:"subject"`
	Domain     string  `json:"domain"`
	Question   string  `json:"question"`
	Type       string  `json:"type"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// MatchResult pairs a reference item with its question-to-question
// similarity. Transient, never persisted.
type MatchResult struct {
	Item  *ReferenceItem
	Score float64
}
