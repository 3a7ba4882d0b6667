package model

import "encoding/json"

// Axis keys reported by the judgment model per answer.
const (
	AxisCommunication  = "communication"
	AxisClarity        = "clarity"
	AxisConfidence     = "confidence"
	AxisPresentation   = "presentation"
	AxisProblemSolving = "problem_solving"
)

// ReportAxes lists every axis a report may carry.
var ReportAxes = []string{
	AxisCommunication,
	AxisPresentation,
	AxisClarity,
	AxisConfidence,
	AxisProblemSolving,
}

// Answer is one scored response, append-only. Follow-up rows reuse the
// parent question's id so the parent/follow-up pair can be collapsed when
// the report is aggregated.
// swagger:model Answer
type Answer struct {
	BaseModel
	SessionID  string `gorm:"size:36;not null;index" json:"sessionId"`
	QuestionID *uint  `gorm:"index" json:"questionId"`
	UserAnswer string `gorm:"type:text" json:"userAnswer"`

	// Score is clamped to [0,100] and never null; evaluation failures
	// resolve to the fallback rubric's score.
	Score      float64 `gorm:"not null" json:"score"`
	TimeSpent  float64 `gorm:"default:0" json:"timeSpent"` // seconds
	Feedback   string  `gorm:"type:text" json:"feedback"`
	IsFollowup bool    `gorm:"default:false" json:"isFollowup"`

	// SubScores is a JSON map axis -> score; empty when the evaluation path
	// that produced the answer reported none (strong match, fallback rubric).
	SubScores json.RawMessage `gorm:"type:json" json:"subScores,omitempty"`

	// Denormalized from the question so report aggregation is a pure fold
	// over answer rows.
	Category   string `gorm:"size:100" json:"category"`
	Difficulty string `gorm:"size:20" json:"difficulty"`
}

func (Answer) TableName() string {
	return "interview_answers"
}

// SubScoreMap decodes the sub-score column, nil when absent.
func (a *Answer) SubScoreMap() map[string]float64 {
	if len(a.SubScores) == 0 {
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(a.SubScores, &m); err != nil {
		return nil
	}
	return m
}
