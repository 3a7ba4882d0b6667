package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/model"
)

type fakeJudge struct {
	evaluateFn func(ctx context.Context, q *model.Question, text string) (*Judgment, error)
	calls      int
}

func (f *fakeJudge) EvaluateAnswer(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
	f.calls++
	return f.evaluateFn(ctx, q, text)
}

func testTuning() config.InterviewConfig {
	return config.InterviewConfig{
		MaxQuestions:      10,
		MaxFollowups:      1,
		FollowupLow:       40,
		FollowupHigh:      70,
		FollowupWeight:    0.35,
		PromoteThreshold:  75,
		DemoteThreshold:   40,
		ProgressionWindow: 3,
		StrongMatchScore:  100,
		FallbackScore:     50,
	}
}

func newTestEvaluationService(judge Judge) *EvaluationService {
	s := NewEvaluationService(judge, nil, testTuning())
	s.retryBackoff = time.Millisecond
	return s
}

func formulaQuestion() *model.Question {
	return &model.Question{
		Category:        "Formulas",
		Difficulty:      model.DifficultyBeginner,
		QuestionText:    "How would you sum the values in cells A1 through A10?",
		QuestionType:    model.QuestionTypeFormula,
		CanonicalAnswer: "=SUM(A1:A10)",
		Alternatives:    []byte(`["=SUM(A1:A10;)","SUM(A1:A10)"]`),
	}
}

func TestEvaluationService_Score_StrongMatch(t *testing.T) {
	judge := &fakeJudge{evaluateFn: func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
		t.Error("judge must not be invoked on a strong match")
		return nil, nil
	}}
	s := newTestEvaluationService(judge)

	t.Run("ExactCanonical", func(t *testing.T) {
		result := s.Score(context.Background(), formulaQuestion(), "=SUM(A1:A10)")
		assert.Equal(t, OutcomeStrongMatch, result.Outcome)
		assert.Equal(t, 100.0, result.Score)
	})

	t.Run("NormalizedVariant", func(t *testing.T) {
		result := s.Score(context.Background(), formulaQuestion(), "  = sum( a1 : a10 )  ")
		assert.Equal(t, OutcomeStrongMatch, result.Outcome)
		assert.Equal(t, 100.0, result.Score)
	})

	t.Run("Alternative", func(t *testing.T) {
		result := s.Score(context.Background(), formulaQuestion(), "sum(a1:a10)")
		assert.Equal(t, OutcomeStrongMatch, result.Outcome)
	})

	assert.Zero(t, judge.calls)
}

func TestEvaluationService_Score_EmptyAnswer(t *testing.T) {
	judge := &fakeJudge{evaluateFn: func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
		t.Error("judge must not be invoked on an empty answer")
		return nil, nil
	}}
	s := newTestEvaluationService(judge)

	result := s.Score(context.Background(), formulaQuestion(), "   ")
	assert.Equal(t, OutcomeEmpty, result.Outcome)
	assert.Equal(t, 0.0, result.Score)
	assert.Zero(t, judge.calls)
}

func TestEvaluationService_Score_ModelPath(t *testing.T) {
	t.Run("ClampsOutOfRangeScores", func(t *testing.T) {
		judge := &fakeJudge{evaluateFn: func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
			return &Judgment{
				Score:    130,
				Feedback: "great",
				SubScores: map[string]float64{
					model.AxisClarity:    110,
					model.AxisConfidence: -5,
				},
			}, nil
		}}
		s := newTestEvaluationService(judge)

		result := s.Score(context.Background(), formulaQuestion(), "I would use a SUM over the range")
		require.Equal(t, OutcomeModel, result.Outcome)
		assert.Equal(t, 100.0, result.Score)
		assert.Equal(t, 100.0, result.SubScores[model.AxisClarity])
		assert.Equal(t, 0.0, result.SubScores[model.AxisConfidence])
	})

	t.Run("RetriesOnceThenSucceeds", func(t *testing.T) {
		judge := &fakeJudge{}
		judge.evaluateFn = func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
			if judge.calls == 1 {
				return nil, errors.New("temporarily unavailable")
			}
			return &Judgment{Score: 80, Feedback: "good"}, nil
		}
		s := newTestEvaluationService(judge)

		result := s.Score(context.Background(), formulaQuestion(), "a textual answer")
		assert.Equal(t, OutcomeModel, result.Outcome)
		assert.Equal(t, 80.0, result.Score)
		assert.Equal(t, 2, judge.calls)
	})
}

func TestEvaluationService_Score_FallbackRubric(t *testing.T) {
	judge := &fakeJudge{evaluateFn: func(ctx context.Context, q *model.Question, text string) (*Judgment, error) {
		return nil, errors.New("provider down")
	}}
	s := newTestEvaluationService(judge)

	result := s.Score(context.Background(), formulaQuestion(), "you can use sum over a1 to a10")
	require.Equal(t, OutcomeFallback, result.Outcome)
	assert.Equal(t, 2, judge.calls)
	assert.True(t, strings.HasPrefix(result.Feedback, "[degraded evaluation] "))
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 100.0)

	// The rubric is deterministic.
	again := s.Score(context.Background(), formulaQuestion(), "you can use sum over a1 to a10")
	assert.Equal(t, result.Score, again.Score)

	unrelated := s.Score(context.Background(), formulaQuestion(), "completely different topic")
	assert.Less(t, unrelated.Score, result.Score)
}

func TestNormalizeFormula(t *testing.T) {
	assert.Equal(t, "sum(a1:a10)", NormalizeFormula("= SUM( A1 : A10 )"))
	assert.Equal(t, "sum(a1:a10)", NormalizeFormula("sum(a1:a10)"))
	assert.Equal(t, "", NormalizeFormula("   "))
}
