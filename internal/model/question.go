package model

import "encoding/json"

// Difficulty bands of the question catalog, ordered from easiest to hardest.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// DifficultyOrder maps each band to its position in the progression.
var DifficultyOrder = map[string]int{
	DifficultyBeginner:     0,
	DifficultyIntermediate: 1,
	DifficultyAdvanced:     2,
}

// DifficultyByRank is the inverse of DifficultyOrder.
var DifficultyByRank = []string{
	DifficultyBeginner,
	DifficultyIntermediate,
	DifficultyAdvanced,
}

const (
	QuestionTypeFormula     = "formula"
	QuestionTypeExplanation = "explanation"
)

// Question is an immutable catalog entry of the interview question bank.
// Rows are created at seed time and never mutated by the engine.
// swagger:model Question
type Question struct {
	BaseModel
	Category        string          `gorm:"size:100;not null;index" json:"category"`
	Difficulty      string          `gorm:"size:20;not null;index" json:"difficulty"`
	QuestionText    string          `gorm:"type:text;not null" json:"questionText"`
	QuestionType    string          `gorm:"size:20;not null" json:"questionType"` // formula, explanation
	CanonicalAnswer string          `gorm:"type:text" json:"canonicalAnswer"`
	Alternatives    json.RawMessage `gorm:"type:json" json:"alternatives"` // JSON: []string
	Explanation     string          `gorm:"type:text" json:"explanation"`
	Hints           json.RawMessage `gorm:"type:json" json:"hints"` // JSON: []string, progressively revealing
	Tags            string          `gorm:"size:255" json:"tags"`
}

func (Question) TableName() string {
	return "questions"
}

// AlternativeList decodes the alternatives column, tolerating an empty one.
func (q *Question) AlternativeList() []string {
	if len(q.Alternatives) == 0 {
		return nil
	}
	var alts []string
	if err := json.Unmarshal(q.Alternatives, &alts); err != nil {
		return nil
	}
	return alts
}

// HintList decodes the hints column.
func (q *Question) HintList() []string {
	if len(q.Hints) == 0 {
		return nil
	}
	var hints []string
	if err := json.Unmarshal(q.Hints, &hints); err != nil {
		return nil
	}
	return hints
}
