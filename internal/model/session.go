package model

import (
	"encoding/json"
	"time"
)

const (
	SessionStatusCreated    = "created"
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
)

// InterviewSession is one interview attempt by one candidate. It is created
// by the session-start request, mutated exclusively by the orchestrator and
// frozen once status reaches completed.
// swagger:model InterviewSession
type InterviewSession struct {
	UUIDBase
	CandidateName  string `gorm:"size:255;not null" json:"candidateName"`
	CandidateEmail string `gorm:"size:255;not null" json:"candidateEmail"`
	CandidatePhone string `gorm:"size:50" json:"candidatePhone"`
	CollegeName    string `gorm:"size:255" json:"collegeName"`
	RollNumber     string `gorm:"size:100" json:"rollNumber"`

	RoleLevel   string     `gorm:"size:20;default:'intermediate'" json:"roleLevel"`
	Status      string     `gorm:"size:20;default:'created';index" json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// OverallScore is set together with CompletedAt, exactly once, by the
	// transition into completed.
	OverallScore *float64 `json:"overallScore,omitempty"`

	// CurrentBand is the difficulty band the selector currently draws from.
	CurrentBand string `gorm:"size:20" json:"currentBand"`

	// AskedQuestionIDs is the ordered JSON array of catalog ids served so
	// far (follow-ups excluded, they reuse the parent id).
	AskedQuestionIDs json.RawMessage `gorm:"type:json" json:"askedQuestionIds"`

	// Pending-question sub-state. AwaitingAnswer is true between serving a
	// question and scoring its answer; at most one question is pending.
	CurrentQuestionID   *uint  `json:"currentQuestionId,omitempty"`
	CurrentQuestionText string `gorm:"type:text" json:"currentQuestionText"`
	CurrentIsFollowup   bool   `gorm:"default:false" json:"currentIsFollowup"`
	AwaitingAnswer      bool   `gorm:"default:false" json:"awaitingAnswer"`

	// PendingFollowup holds a synthesized follow-up prompt to serve before
	// the next catalog question. FollowupsAsked caps it per session.
	PendingFollowup string `gorm:"type:text" json:"pendingFollowup"`
	FollowupsAsked  int    `gorm:"default:0" json:"followupsAsked"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}

// AskedIDs decodes the asked-question id column.
func (s *InterviewSession) AskedIDs() []uint {
	if len(s.AskedQuestionIDs) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(s.AskedQuestionIDs, &ids); err != nil {
		return nil
	}
	return ids
}

// SetAskedIDs encodes ids back into the JSON column.
func (s *InterviewSession) SetAskedIDs(ids []uint) {
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	s.AskedQuestionIDs = raw
}
