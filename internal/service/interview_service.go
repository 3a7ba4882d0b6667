package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/model"
	"excel_interview_backend/internal/util"
	"excel_interview_backend/pkg/logger"
	"excel_interview_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SessionStore persists interview sessions. Sessions are written only
// through the orchestrator. UpdateWithAnswer commits a session transition
// and its scored answer as one unit, so a storage failure can never leave
// an answer row behind on a session that still reports the question as
// pending.
type SessionStore interface {
	Create(s *model.InterviewSession) error
	FindByID(id string) (*model.InterviewSession, error)
	Update(s *model.InterviewSession) error
	UpdateWithAnswer(s *model.InterviewSession, a *model.Answer) error
}

// AnswerStore is the read side of the answer log; writes go through
// SessionStore.UpdateWithAnswer together with the session transition.
type AnswerStore interface {
	FindBySession(sessionID string) ([]model.Answer, error)
	CountMain(sessionID string) (int64, error)
}

// CreateSessionRequest carries the candidate fields of a session-start call.
type CreateSessionRequest struct {
	CandidateName  string `json:"candidate_name" binding:"required"`
	CandidateEmail string `json:"candidate_email" binding:"required"`
	CandidatePhone string `json:"candidate_phone"`
	CollegeName    string `json:"college_name"`
	RollNumber     string `json:"roll_number"`
	RoleLevel      string `json:"role_level"`
}

// QuestionView is what the presentation layer receives for one served
// question; IsComplete true carries a closing line instead of a question.
type QuestionView struct {
	QuestionID   *uint  `json:"question_id"`
	QuestionText string `json:"question_text"`
	AudioURL     string `json:"audio_url,omitempty"`
	IsFollowup   bool   `json:"is_followup"`
	IsComplete   bool   `json:"is_complete"`
}

// SubmitInput is one answer submission: typed text or a recorded file.
type SubmitInput struct {
	Text      string
	AudioPath string
	TimeSpent float64
}

// SubmitResult reports the scored submission back to the caller.
type SubmitResult struct {
	UserTranscript string  `json:"user_transcript"`
	Score          float64 `json:"score"`
	Feedback       string  `json:"feedback"`
	IsComplete     bool    `json:"is_complete"`
}

// InterviewService is the session orchestrator: it owns the per-session
// state machine and composes the selector, the evaluation adapter and the
// report aggregator for each inbound request.
type InterviewService struct {
	sessions  SessionStore
	answers   AnswerStore
	questions QuestionStore
	selector  *SelectorService
	eval      *EvaluationService
	reports   *ReportService
	renderer  ReportRenderer
	tts       Synthesizer
	locks     *SessionLocker
	rdb       *redis.Client

	mu     sync.RWMutex
	tuning config.InterviewConfig
}

func NewInterviewService(
	sessions SessionStore,
	answers AnswerStore,
	questions QuestionStore,
	selector *SelectorService,
	eval *EvaluationService,
	reports *ReportService,
	renderer ReportRenderer,
	tts Synthesizer,
	rdb *redis.Client,
	tuning config.InterviewConfig,
) *InterviewService {
	return &InterviewService{
		sessions:  sessions,
		answers:   answers,
		questions: questions,
		selector:  selector,
		eval:      eval,
		reports:   reports,
		renderer:  renderer,
		tts:       tts,
		locks:     NewSessionLocker(),
		rdb:       rdb,
		tuning:    tuning,
	}
}

func (s *InterviewService) ReloadTuning(tuning config.InterviewConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning = tuning
}

func (s *InterviewService) currentTuning() config.InterviewConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tuning
}

// CreateSession allocates a session and immediately moves it to
// in_progress with the first question pending, so the first
// next-question call is a pure read.
func (s *InterviewService) CreateSession(ctx context.Context, req CreateSessionRequest) (*model.InterviewSession, error) {
	if strings.TrimSpace(req.CandidateName) == "" || strings.TrimSpace(req.CandidateEmail) == "" {
		return nil, util.ErrInvalidInput
	}

	roleLevel := req.RoleLevel
	if _, ok := model.DifficultyOrder[roleLevel]; !ok {
		roleLevel = model.DifficultyIntermediate
	}

	session := &model.InterviewSession{
		CandidateName:  strings.TrimSpace(req.CandidateName),
		CandidateEmail: strings.TrimSpace(req.CandidateEmail),
		CandidatePhone: req.CandidatePhone,
		CollegeName:    req.CollegeName,
		RollNumber:     req.RollNumber,
		RoleLevel:      roleLevel,
		Status:         model.SessionStatusCreated,
		StartedAt:      time.Now(),
		CurrentBand:    roleLevel,
	}
	session.SetAskedIDs(nil)

	first, err := s.selector.NextQuestion(session, 0, nil)
	if err != nil {
		return nil, err
	}
	s.serveQuestion(session, first)
	session.Status = model.SessionStatusInProgress

	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}

	monitoring.SessionsStarted.Inc()
	logger.Log.Info("interview session created",
		zap.String("session_id", session.ID),
		zap.String("role_level", roleLevel))
	return session, nil
}

// NextQuestion returns the pending question (idempotent re-fetch), serves a
// pending follow-up, or draws the next catalog question. When the budget or
// the bank is exhausted it completes the session and returns the terminal
// marker instead of a question.
func (s *InterviewService) NextQuestion(ctx context.Context, sessionID string) (*QuestionView, error) {
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == model.SessionStatusCompleted {
		return s.closingView(ctx, session), nil
	}

	// Idempotent re-fetch of the question already pending an answer.
	if session.AwaitingAnswer {
		return s.questionView(ctx, session), nil
	}

	if session.PendingFollowup != "" {
		session.CurrentQuestionText = session.PendingFollowup
		session.CurrentIsFollowup = true
		session.AwaitingAnswer = true
		session.PendingFollowup = ""
		session.FollowupsAsked++
		if err := s.sessions.Update(session); err != nil {
			return nil, err
		}
		monitoring.FollowupsServed.Inc()
		return s.questionView(ctx, session), nil
	}

	mainAnswered, err := s.answers.CountMain(sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers.FindBySession(sessionID)
	if err != nil {
		return nil, err
	}

	next, err := s.selector.NextQuestion(session, mainAnswered, askedCategories(answers))
	if errors.Is(err, util.ErrBankExhausted) {
		if err := s.completeSession(session, answers); err != nil {
			return nil, err
		}
		return s.closingView(ctx, session), nil
	}
	if err != nil {
		return nil, err
	}

	s.serveQuestion(session, next)
	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}
	return s.questionView(ctx, session), nil
}

// SubmitAnswer runs the scoring pipeline for the pending question: resolve
// the answer text, grade it, persist the answer row, decide on a follow-up
// and the difficulty band, and finalize the session when the budget is
// spent.
func (s *InterviewService) SubmitAnswer(ctx context.Context, sessionID string, input SubmitInput) (*SubmitResult, error) {
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusCompleted {
		return nil, util.ErrSessionCompleted
	}
	if !session.AwaitingAnswer {
		return nil, util.ErrNoPendingQuestion
	}
	if strings.TrimSpace(input.Text) == "" && input.AudioPath == "" {
		return nil, util.ErrNoAnswerProvided
	}

	transcript, transcriptionFailed := s.resolveTranscript(ctx, input)

	question, err := s.currentQuestion(session)
	if err != nil {
		return nil, err
	}

	result := s.eval.Score(ctx, question, transcript)
	monitoring.Evaluations.WithLabelValues(result.Outcome).Inc()

	feedback := result.Feedback
	if transcriptionFailed {
		feedback = "[transcription unavailable] " + feedback
	}

	answer := &model.Answer{
		SessionID:  session.ID,
		QuestionID: session.CurrentQuestionID,
		UserAnswer: transcript,
		Score:      result.Score,
		TimeSpent:  input.TimeSpent,
		Feedback:   feedback,
		IsFollowup: session.CurrentIsFollowup,
		Category:   question.Category,
		Difficulty: question.Difficulty,
	}
	if len(result.SubScores) > 0 {
		if raw, err := json.Marshal(result.SubScores); err == nil {
			answer.SubScores = raw
		}
	}

	prior, err := s.answers.FindBySession(session.ID)
	if err != nil {
		return nil, err
	}
	answers := append(prior, *answer)

	wasFollowup := session.CurrentIsFollowup
	session.AwaitingAnswer = false
	session.CurrentQuestionText = ""
	session.CurrentIsFollowup = false

	if prompt, ok := s.selector.ShouldFollowup(question.QuestionText, transcript, result.Score, wasFollowup, session.FollowupsAsked, result.Followup); ok {
		// CurrentQuestionID stays on the parent so the follow-up answer
		// reuses its context.
		session.PendingFollowup = prompt
	} else {
		session.CurrentQuestionID = nil
	}

	completed := false
	if !wasFollowup {
		mainAnswered := countMain(answers)
		session.CurrentBand = s.selector.AdjustBand(session, answers, mainAnswered)

		if mainAnswered >= int64(s.currentTuning().MaxQuestions) && session.PendingFollowup == "" {
			completed = s.applyCompletion(session, answers)
		}
	}

	// Answer row and session transition commit together; a failed write
	// leaves the question pending and no answer behind, so the client can
	// retry the submission cleanly.
	if err := s.sessions.UpdateWithAnswer(session, answer); err != nil {
		return nil, err
	}
	if completed {
		s.recordCompletion(session)
	}

	return &SubmitResult{
		UserTranscript: transcript,
		Score:          result.Score,
		Feedback:       feedback,
		IsComplete:     completed,
	}, nil
}

// GetReport aggregates a completed session. The result is cached in redis
// so repeated calls return byte-identical fields without recomputation.
func (s *InterviewService) GetReport(ctx context.Context, sessionID string) (*model.InterviewReport, error) {
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, util.ErrSessionNotComplete
	}

	cacheKey := "report:" + sessionID
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached model.InterviewReport
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	answers, err := s.answers.FindBySession(sessionID)
	if err != nil {
		return nil, err
	}

	report := s.reports.BuildReport(session, answers)

	if s.renderer != nil {
		url, err := s.renderer.Render(ctx, report)
		if err != nil {
			logger.Log.Error("report rendering failed", zap.Error(err), zap.String("session_id", sessionID))
		} else {
			report.ReportURL = url
		}
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(report); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, raw, 7*24*time.Hour).Err(); err != nil {
				logger.Log.Warn("caching report failed", zap.Error(err))
			}
		}
	}

	return report, nil
}

// completeSession is the single transition into completed: overall score and
// completion time are set together, exactly once.
func (s *InterviewService) completeSession(session *model.InterviewSession, answers []model.Answer) error {
	if !s.applyCompletion(session, answers) {
		return nil
	}
	if err := s.sessions.Update(session); err != nil {
		return err
	}
	s.recordCompletion(session)
	return nil
}

// applyCompletion mutates the session into its terminal state without
// persisting it, so callers can fold the transition into a larger write.
// Returns false when the session is already completed.
func (s *InterviewService) applyCompletion(session *model.InterviewSession, answers []model.Answer) bool {
	if session.Status == model.SessionStatusCompleted {
		return false
	}

	now := time.Now()
	overall := s.reports.OverallScore(answers)
	session.Status = model.SessionStatusCompleted
	session.CompletedAt = &now
	session.OverallScore = &overall
	session.AwaitingAnswer = false
	session.PendingFollowup = ""
	session.CurrentQuestionID = nil
	session.CurrentQuestionText = ""
	session.CurrentIsFollowup = false
	return true
}

func (s *InterviewService) recordCompletion(session *model.InterviewSession) {
	monitoring.SessionsCompleted.Inc()
	fields := []zap.Field{zap.String("session_id", session.ID)}
	if session.OverallScore != nil {
		fields = append(fields, zap.Float64("overall_score", *session.OverallScore))
	}
	logger.Log.Info("interview session completed", fields...)
}

// serveQuestion marks a catalog question as the pending one.
func (s *InterviewService) serveQuestion(session *model.InterviewSession, q *model.Question) {
	id := q.ID
	session.CurrentQuestionID = &id
	session.CurrentQuestionText = q.QuestionText
	session.CurrentIsFollowup = false
	session.AwaitingAnswer = true
	session.CurrentBand = q.Difficulty
	session.SetAskedIDs(append(session.AskedIDs(), q.ID))
}

// currentQuestion resolves the pending question for evaluation. Follow-ups
// are graded in the context of their parent's category and difficulty but
// against the follow-up prompt, with no canonical answer (no strong match).
func (s *InterviewService) currentQuestion(session *model.InterviewSession) (*model.Question, error) {
	if !session.CurrentIsFollowup {
		if session.CurrentQuestionID == nil {
			return nil, util.ErrNoPendingQuestion
		}
		return s.questions.FindByID(*session.CurrentQuestionID)
	}

	followup := &model.Question{
		QuestionText: session.CurrentQuestionText,
		QuestionType: model.QuestionTypeExplanation,
	}
	if session.CurrentQuestionID != nil {
		if parent, err := s.questions.FindByID(*session.CurrentQuestionID); err == nil {
			followup.Category = parent.Category
			followup.Difficulty = parent.Difficulty
		}
	}
	return followup, nil
}

func (s *InterviewService) resolveTranscript(ctx context.Context, input SubmitInput) (string, bool) {
	if strings.TrimSpace(input.Text) != "" {
		return strings.TrimSpace(input.Text), false
	}

	transcript, err := s.eval.Transcribe(ctx, input.AudioPath)
	if err != nil {
		// Degrade to an empty transcript; the session must keep moving.
		monitoring.TranscriptionFailures.Inc()
		logger.Log.Warn("transcription degraded to empty transcript", zap.Error(err))
		return "", true
	}
	return transcript, false
}

func (s *InterviewService) questionView(ctx context.Context, session *model.InterviewSession) *QuestionView {
	view := &QuestionView{
		QuestionText: session.CurrentQuestionText,
		IsFollowup:   session.CurrentIsFollowup,
	}
	if !session.CurrentIsFollowup {
		view.QuestionID = session.CurrentQuestionID
	}
	view.AudioURL = s.synthesize(ctx, session.CurrentQuestionText)
	return view
}

func (s *InterviewService) closingView(ctx context.Context, session *model.InterviewSession) *QuestionView {
	text := fmt.Sprintf("Thank you %s! You've completed the interview. Your report is ready.", session.CandidateName)
	return &QuestionView{
		QuestionText: text,
		IsComplete:   true,
		AudioURL:     s.synthesize(ctx, text),
	}
}

// synthesize is best-effort: question delivery never fails because audio
// could not be produced.
func (s *InterviewService) synthesize(ctx context.Context, text string) string {
	if s.tts == nil || text == "" {
		return ""
	}
	url, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		logger.Log.Warn("tts synthesis failed", zap.Error(err))
		return ""
	}
	return url
}

func countMain(answers []model.Answer) int64 {
	var n int64
	for _, a := range answers {
		if !a.IsFollowup {
			n++
		}
	}
	return n
}

func askedCategories(answers []model.Answer) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, a := range answers {
		if a.Category == "" || seen[a.Category] {
			continue
		}
		seen[a.Category] = true
		categories = append(categories, a.Category)
	}
	return categories
}
