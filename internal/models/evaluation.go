package models

import (
	"time"

	"github.com/google/uuid"
)

type EvaluationStatus string

const (
	StatusQueued     EvaluationStatus = "queued"
	StatusProcessing EvaluationStatus = "processing"
	StatusCompleted  EvaluationStatus = "completed"
	StatusFailed     EvaluationStatus = "failed"
)

// Evaluation is one async grading job for an uploaded script.
type Evaluation struct {
	ID           uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ScriptID     uuid.UUID        `gorm:"type:uuid;not null" json:"script_id"`
	Subject      string           `gorm:"type:text" json:"subject"`
	Domain       string           `gorm:"type:text" json:"domain"`
	Question     string           `gorm:"type:text" json:"question"`
	Status       EvaluationStatus `gorm:"not null;default:'queued'" json:"status"`
	FinalScore   *float64         `gorm:"type:decimal(4,1)" json:"final_score,omitempty"`
	TextScore    *float64         `gorm:"type:decimal(4,1)" json:"text_score,omitempty"`
	VisualScore  *float64         `gorm:"type:decimal(4,1)" json:"visual_score,omitempty"`
	LayoutScore  *float64         `gorm:"type:decimal(4,1)" json:"layout_score,omitempty"`
	Confidence   *float64         `gorm:"type:decimal(4,1)" json:"confidence,omitempty"`
	ErrorMessage string           `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Script Script `gorm:"foreignKey:ScriptID" json:"-"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}
