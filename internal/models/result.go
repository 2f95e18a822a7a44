package models

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	PageCount    int    `json:"page_count"`
}

// EvaluateRequest drives both the synchronous and the async evaluation
// paths. AnswerText triggers a synchronous evaluation; ScriptID enqueues an
// extraction + evaluation job instead. Subject and Domain are optional
// exact-match corpus filters; empty means wildcard. EnableLLM and
// EnableNormalization override the configured defaults when present.
type EvaluateRequest struct {
	Subject             string `json:"subject"`
	Domain              string `json:"domain"`
	Question            string `json:"question"`
	AnswerText          string `json:"answer_text"`
	ScriptID            string `json:"script_id"`
	EnableLLM           *bool  `json:"enable_llm"`
	EnableNormalization *bool  `json:"enable_normalization"`
}

// EvaluationResult is the evaluation contract. All five fields are
// independently clamped to [0,10]. FinalScore is not required to equal
// TextScore once a judge adjustment lands; the fields report different
// evidence sources, not a derived formula.
type EvaluationResult struct {
	FinalScore  float64 `json:"finalScore"`
	TextScore   float64 `json:"TextScore"`
	VisualScore float64 `json:"VisualScore"`
	LayoutScore float64 `json:"LayoutScore"`
	Confidence  float64 `json:"Confidence"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Result       *EvaluationResult `json:"result,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
}
