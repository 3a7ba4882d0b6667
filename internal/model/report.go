package model

// ReportAnswer is one answer row as exposed in the final report.
type ReportAnswer struct {
	QuestionID *uint   `json:"question_id"`
	UserAnswer string  `json:"user_answer"`
	Score      float64 `json:"score"`
	TimeSpent  float64 `json:"time_spent"`
	Feedback   string  `json:"feedback"`
	IsFollowup bool    `json:"is_followup"`
}

// InterviewReport is the aggregated result of a completed session. Every
// field derives deterministically from the stored answers, so regenerating
// the report never re-invokes an external provider.
// swagger:model InterviewReport
type InterviewReport struct {
	SessionID      string `json:"session_id"`
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email"`
	CollegeName    string `json:"college_name,omitempty"`
	RollNumber     string `json:"roll_number,omitempty"`
	RoleLevel      string `json:"role_level"`
	StartedAt      string `json:"started_at"`
	CompletedAt    string `json:"completed_at"`

	OverallScore     float64 `json:"overall_score"`
	TotalQuestions   int     `json:"total_questions"`
	TotalTimeMinutes float64 `json:"total_time_minutes"`

	// Axis scores are nil when no answer contributed a sub-score for the
	// axis; they are never fabricated.
	CommunicationScore  *float64 `json:"communication_score"`
	PresentationScore   *float64 `json:"presentation_score"`
	ClarityScore        *float64 `json:"clarity_score"`
	ConfidenceScore     *float64 `json:"confidence_score"`
	ProblemSolvingScore *float64 `json:"problem_solving_score"`

	Summary     string         `json:"summary"`
	Suggestions []string       `json:"suggestions"`
	Answers     []ReportAnswer `json:"answers"`

	// ReportURL references the rendered artifact produced by the report
	// renderer collaborator.
	ReportURL string `json:"report_url,omitempty"`
}
