package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/model"
	"excel_interview_backend/internal/util"
)

type memSessionStore struct {
	sessions map[string]model.InterviewSession
	answers  *memAnswerStore

	// failNextUpdate makes the next combined write fail, simulating a
	// storage error mid-submission.
	failNextUpdate bool
}

func newMemSessionStore(answers *memAnswerStore) *memSessionStore {
	return &memSessionStore{
		sessions: make(map[string]model.InterviewSession),
		answers:  answers,
	}
}

func (m *memSessionStore) Create(s *model.InterviewSession) error {
	if s.ID == "" {
		s.ID = model.GenerateUUID()
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessionStore) FindByID(id string) (*model.InterviewSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	out := s
	return &out, nil
}

func (m *memSessionStore) Update(s *model.InterviewSession) error {
	m.sessions[s.ID] = *s
	return nil
}

// UpdateWithAnswer mirrors the transactional repository write: either both
// the answer row and the session land, or neither does.
func (m *memSessionStore) UpdateWithAnswer(s *model.InterviewSession, a *model.Answer) error {
	if m.failNextUpdate {
		m.failNextUpdate = false
		return errDatabaseDown
	}
	m.answers.insert(a)
	m.sessions[s.ID] = *s
	return nil
}

var errDatabaseDown = errors.New("database unavailable")

type memAnswerStore struct {
	answers []model.Answer
}

func (m *memAnswerStore) insert(a *model.Answer) {
	a.ID = uint(len(m.answers) + 1)
	m.answers = append(m.answers, *a)
}

func (m *memAnswerStore) FindBySession(sessionID string) ([]model.Answer, error) {
	var out []model.Answer
	for _, a := range m.answers {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAnswerStore) CountMain(sessionID string) (int64, error) {
	var n int64
	for _, a := range m.answers {
		if a.SessionID == sessionID && !a.IsFollowup {
			n++
		}
	}
	return n, nil
}

type interviewFixture struct {
	svc      *InterviewService
	sessions *memSessionStore
	answers  *memAnswerStore
	judge    *fakeJudge
}

func newInterviewFixture(tuning config.InterviewConfig, bank []model.Question, evaluateFn func(ctx context.Context, q *model.Question, text string) (*Judgment, error)) *interviewFixture {
	store := &fakeQuestionStore{questions: bank}
	judge := &fakeJudge{evaluateFn: evaluateFn}

	eval := NewEvaluationService(judge, nil, tuning)
	eval.retryBackoff = time.Millisecond

	answers := &memAnswerStore{}
	sessions := newMemSessionStore(answers)

	svc := NewInterviewService(
		sessions,
		answers,
		store,
		NewSelectorService(store, tuning),
		eval,
		NewReportService(tuning),
		nil,
		nil,
		nil,
		tuning,
	)
	return &interviewFixture{svc: svc, sessions: sessions, answers: answers, judge: judge}
}

func defaultBank() []model.Question {
	return []model.Question{
		catalogQuestion(1, "Formulas", model.DifficultyIntermediate),
		catalogQuestion(2, "Pivot Tables", model.DifficultyIntermediate),
		catalogQuestion(3, "Charts", model.DifficultyIntermediate),
		catalogQuestion(4, "Data Cleaning", model.DifficultyAdvanced),
	}
}

func fixedScoreJudge(score float64) func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
	return func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
		return &Judgment{Score: score, Feedback: "noted"}, nil
	}
}

func startSession(t *testing.T, f *interviewFixture) *model.InterviewSession {
	t.Helper()
	session, err := f.svc.CreateSession(context.Background(), CreateSessionRequest{
		CandidateName:  "Asha Verma",
		CandidateEmail: "asha@example.com",
		RoleLevel:      model.DifficultyIntermediate,
	})
	require.NoError(t, err)
	return session
}

func TestInterviewService_CreateSession(t *testing.T) {
	f := newInterviewFixture(testTuning(), defaultBank(), fixedScoreJudge(90))

	t.Run("OpensWithFirstQuestionPending", func(t *testing.T) {
		session := startSession(t, f)
		assert.Equal(t, model.SessionStatusInProgress, session.Status)
		assert.True(t, session.AwaitingAnswer)
		require.NotNil(t, session.CurrentQuestionID)
		assert.Equal(t, uint(1), *session.CurrentQuestionID)
		assert.Len(t, session.AskedIDs(), 1)
	})

	t.Run("RejectsMissingCandidateFields", func(t *testing.T) {
		_, err := f.svc.CreateSession(context.Background(), CreateSessionRequest{CandidateName: "  "})
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	})

	t.Run("UnknownRoleLevelDefaultsToIntermediate", func(t *testing.T) {
		session, err := f.svc.CreateSession(context.Background(), CreateSessionRequest{
			CandidateName:  "B",
			CandidateEmail: "b@example.com",
			RoleLevel:      "wizard",
		})
		require.NoError(t, err)
		assert.Equal(t, model.DifficultyIntermediate, session.RoleLevel)
	})
}

func TestInterviewService_NextQuestionIsIdempotentWhileAwaiting(t *testing.T) {
	f := newInterviewFixture(testTuning(), defaultBank(), fixedScoreJudge(90))
	session := startSession(t, f)

	first, err := f.svc.NextQuestion(context.Background(), session.ID)
	require.NoError(t, err)
	second, err := f.svc.NextQuestion(context.Background(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, first.QuestionID, second.QuestionID)
	assert.Equal(t, first.QuestionText, second.QuestionText)

	stored, err := f.sessions.FindByID(session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.AskedIDs(), 1)
}

func TestInterviewService_SubmitAnswer(t *testing.T) {
	t.Run("RequiresAPendingQuestion", func(t *testing.T) {
		f := newInterviewFixture(testTuning(), defaultBank(), fixedScoreJudge(90))
		session := startSession(t, f)

		_, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "first"})
		require.NoError(t, err)

		_, err = f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "again"})
		assert.ErrorIs(t, err, util.ErrNoPendingQuestion)
	})

	t.Run("RejectsEmptySubmission", func(t *testing.T) {
		f := newInterviewFixture(testTuning(), defaultBank(), fixedScoreJudge(90))
		session := startSession(t, f)

		_, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "   "})
		assert.ErrorIs(t, err, util.ErrNoAnswerProvided)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		f := newInterviewFixture(testTuning(), defaultBank(), fixedScoreJudge(90))
		_, err := f.svc.SubmitAnswer(context.Background(), "missing", SubmitInput{Text: "x"})
		assert.ErrorIs(t, err, util.ErrSessionNotFound)
	})

	t.Run("TranscriptionFailureStillPersistsTheAnswer", func(t *testing.T) {
		f := newInterviewFixture(testTuning(), defaultBank(), func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
			t.Error("judge must not run on an empty transcript")
			return nil, nil
		})
		session := startSession(t, f)

		result, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{
			AudioPath: "/nonexistent/answer.webm",
		})
		require.NoError(t, err)
		assert.Empty(t, result.UserTranscript)
		assert.Equal(t, 0.0, result.Score)

		rows, err := f.answers.FindBySession(session.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 0.0, rows[0].Score)
		assert.Contains(t, rows[0].Feedback, "[transcription unavailable]")
	})
}

func TestInterviewService_BudgetExhaustionCompletesTheSession(t *testing.T) {
	tuning := testTuning()
	tuning.MaxQuestions = 2
	f := newInterviewFixture(tuning, defaultBank(), fixedScoreJudge(90))
	session := startSession(t, f)

	result, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "answer one"})
	require.NoError(t, err)
	assert.False(t, result.IsComplete)

	view, err := f.svc.NextQuestion(context.Background(), session.ID)
	require.NoError(t, err)
	assert.False(t, view.IsComplete)
	require.NotNil(t, view.QuestionID)
	assert.NotEqual(t, uint(1), *view.QuestionID)

	result, err = f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "answer two"})
	require.NoError(t, err)
	assert.True(t, result.IsComplete)

	stored, err := f.sessions.FindByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	require.NotNil(t, stored.OverallScore)
	assert.Equal(t, 90.0, *stored.OverallScore)

	t.Run("TerminalNextQuestionIsIdempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			view, err := f.svc.NextQuestion(context.Background(), session.ID)
			require.NoError(t, err)
			assert.True(t, view.IsComplete)
			assert.Contains(t, view.QuestionText, "Asha Verma")
		}
	})

	t.Run("SubmitAfterCompletionIsRejected", func(t *testing.T) {
		_, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "late"})
		assert.ErrorIs(t, err, util.ErrSessionCompleted)
	})

	t.Run("CompletionIsRecordedOnce", func(t *testing.T) {
		stored, err := f.sessions.FindByID(session.ID)
		require.NoError(t, err)
		completedAt := *stored.CompletedAt

		_, err = f.svc.NextQuestion(context.Background(), session.ID)
		require.NoError(t, err)

		again, err := f.sessions.FindByID(session.ID)
		require.NoError(t, err)
		assert.Equal(t, completedAt, *again.CompletedAt)
	})
}

func TestInterviewService_FollowupFlow(t *testing.T) {
	tuning := testTuning()
	tuning.MaxQuestions = 1

	judgeFn := func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
		if text == "a partial answer" {
			return &Judgment{Score: 55, Feedback: "partially there", Followup: "Which argument controls exact matching?"}, nil
		}
		return &Judgment{Score: 65, Feedback: "better"}, nil
	}
	f := newInterviewFixture(tuning, defaultBank(), judgeFn)
	session := startSession(t, f)

	result, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "a partial answer"})
	require.NoError(t, err)
	assert.False(t, result.IsComplete)

	view, err := f.svc.NextQuestion(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, view.IsFollowup)
	assert.Nil(t, view.QuestionID)
	assert.Equal(t, "Which argument controls exact matching?", view.QuestionText)

	result, err = f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "the range lookup flag"})
	require.NoError(t, err)
	assert.False(t, result.IsComplete)
	assert.Equal(t, 65.0, result.Score)

	// The follow-up row reuses the parent question id.
	rows, err := f.answers.FindBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].IsFollowup)
	assert.True(t, rows[1].IsFollowup)
	require.NotNil(t, rows[1].QuestionID)
	assert.Equal(t, *rows[0].QuestionID, *rows[1].QuestionID)

	// Budget was one main question, so the next fetch closes the session.
	view, err = f.svc.NextQuestion(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, view.IsComplete)

	report, err := f.svc.GetReport(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalQuestions)
	// 55*0.65 + 65*0.35, one effective grade.
	assert.Equal(t, 58.5, report.OverallScore)
}

func TestInterviewService_SubmitAnswerWriteIsAtomic(t *testing.T) {
	f := newInterviewFixture(testTuning(), defaultBank(), fixedScoreJudge(90))
	session := startSession(t, f)

	f.sessions.failNextUpdate = true
	_, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "first try"})
	require.ErrorIs(t, err, errDatabaseDown)

	// A failed write records nothing and keeps the question pending.
	rows, err := f.answers.FindBySession(session.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	stored, err := f.sessions.FindByID(session.ID)
	require.NoError(t, err)
	assert.True(t, stored.AwaitingAnswer)

	// The retry lands exactly one row for the one asked question.
	result, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "first try"})
	require.NoError(t, err)
	assert.Equal(t, 90.0, result.Score)

	rows, err = f.answers.FindBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	stored, err = f.sessions.FindByID(session.ID)
	require.NoError(t, err)
	assert.False(t, stored.AwaitingAnswer)
	assert.Len(t, stored.AskedIDs(), len(rows))
}

func TestInterviewService_FollowupCapIsPerSession(t *testing.T) {
	tuning := testTuning()
	tuning.MaxQuestions = 3
	tuning.MaxFollowups = 1

	// Every answer lands in the ambiguous band, so only the cap can stop
	// follow-ups.
	f := newInterviewFixture(tuning, defaultBank(), fixedScoreJudge(55))
	session := startSession(t, f)

	_, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "vague answer"})
	require.NoError(t, err)

	view, err := f.svc.NextQuestion(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, view.IsFollowup)

	_, err = f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "still vague"})
	require.NoError(t, err)

	// The second ambiguous main answer gets no follow-up: the session
	// already spent its one.
	view, err = f.svc.NextQuestion(context.Background(), session.ID)
	require.NoError(t, err)
	assert.False(t, view.IsFollowup)

	_, err = f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "vague again"})
	require.NoError(t, err)

	view, err = f.svc.NextQuestion(context.Background(), session.ID)
	require.NoError(t, err)
	assert.False(t, view.IsFollowup)
	require.NotNil(t, view.QuestionID)

	stored, err := f.sessions.FindByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FollowupsAsked)

	rows, err := f.answers.FindBySession(session.ID)
	require.NoError(t, err)
	var followupRows int
	for _, row := range rows {
		if row.IsFollowup {
			followupRows++
		}
	}
	assert.Equal(t, 1, followupRows)
}

func TestInterviewService_GetReport(t *testing.T) {
	tuning := testTuning()
	tuning.MaxQuestions = 1
	f := newInterviewFixture(tuning, defaultBank(), fixedScoreJudge(82))
	session := startSession(t, f)

	t.Run("RequiresCompletion", func(t *testing.T) {
		_, err := f.svc.GetReport(context.Background(), session.ID)
		assert.ErrorIs(t, err, util.ErrSessionNotComplete)
	})

	_, err := f.svc.SubmitAnswer(context.Background(), session.ID, SubmitInput{Text: "solid answer"})
	require.NoError(t, err)

	t.Run("StableAcrossCalls", func(t *testing.T) {
		first, err := f.svc.GetReport(context.Background(), session.ID)
		require.NoError(t, err)
		second, err := f.svc.GetReport(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 82.0, first.OverallScore)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		_, err := f.svc.GetReport(context.Background(), "missing")
		assert.ErrorIs(t, err, util.ErrSessionNotFound)
	})
}
