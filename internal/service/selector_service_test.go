package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"excel_interview_backend/internal/model"
	"excel_interview_backend/internal/util"
)

type fakeQuestionStore struct {
	questions []model.Question
}

func (f *fakeQuestionStore) FindByID(id uint) (*model.Question, error) {
	for i := range f.questions {
		if f.questions[i].ID == id {
			return &f.questions[i], nil
		}
	}
	return nil, util.ErrQuestionNotFound
}

func (f *fakeQuestionStore) FindUnseen(difficulty string, excludeIDs []uint) ([]model.Question, error) {
	excluded := make(map[uint]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []model.Question
	for _, q := range f.questions {
		if q.Difficulty == difficulty && !excluded[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func catalogQuestion(id uint, category, difficulty string) model.Question {
	return model.Question{
		BaseModel:    model.BaseModel{ID: id},
		Category:     category,
		Difficulty:   difficulty,
		QuestionText: "question",
		QuestionType: model.QuestionTypeExplanation,
	}
}

func TestSelectorService_NextQuestion(t *testing.T) {
	store := &fakeQuestionStore{questions: []model.Question{
		catalogQuestion(1, "Formulas", model.DifficultyIntermediate),
		catalogQuestion(2, "Pivot Tables", model.DifficultyIntermediate),
		catalogQuestion(3, "Formulas", model.DifficultyAdvanced),
		catalogQuestion(4, "Charts", model.DifficultyBeginner),
	}}
	s := NewSelectorService(store, testTuning())

	t.Run("PrefersUncoveredCategory", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		q, err := s.NextQuestion(session, 0, []string{"Formulas"})
		require.NoError(t, err)
		assert.Equal(t, uint(2), q.ID)
	})

	t.Run("CatalogOrderBreaksTies", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		q, err := s.NextQuestion(session, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, uint(1), q.ID)
	})

	t.Run("NeverRepeatsAskedQuestions", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		session.SetAskedIDs([]uint{1, 2})
		q, err := s.NextQuestion(session, 2, nil)
		require.NoError(t, err)
		assert.NotContains(t, []uint{1, 2}, q.ID)
	})

	t.Run("FallsBackToNearestBandHarderFirst", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		session.SetAskedIDs([]uint{1, 2})
		q, err := s.NextQuestion(session, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, model.DifficultyAdvanced, q.Difficulty)
	})

	t.Run("BudgetSpent", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		_, err := s.NextQuestion(session, 10, nil)
		assert.ErrorIs(t, err, util.ErrBankExhausted)
	})

	t.Run("BankExhausted", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		session.SetAskedIDs([]uint{1, 2, 3, 4})
		_, err := s.NextQuestion(session, 4, nil)
		assert.ErrorIs(t, err, util.ErrBankExhausted)
	})
}

func TestSelectorService_ShouldFollowup(t *testing.T) {
	s := NewSelectorService(&fakeQuestionStore{}, testTuning())

	t.Run("MiddleBandTriggers", func(t *testing.T) {
		prompt, ok := s.ShouldFollowup("What is VLOOKUP?", "it looks things up", 55, false, 0, "")
		require.True(t, ok)
		assert.Contains(t, prompt, "it looks things up")
		assert.Contains(t, prompt, "What is VLOOKUP?")
	})

	t.Run("ModelPromptPreferred", func(t *testing.T) {
		prompt, ok := s.ShouldFollowup("What is VLOOKUP?", "it looks things up", 55, false, 0, "Which argument controls exact matching?")
		require.True(t, ok)
		assert.Equal(t, "Which argument controls exact matching?", prompt)
	})

	t.Run("HighScoreSkips", func(t *testing.T) {
		_, ok := s.ShouldFollowup("q", "a", 85, false, 0, "")
		assert.False(t, ok)
	})

	t.Run("LowScoreSkips", func(t *testing.T) {
		_, ok := s.ShouldFollowup("q", "a", 20, false, 0, "")
		assert.False(t, ok)
	})

	t.Run("BoundariesAreHalfOpen", func(t *testing.T) {
		_, ok := s.ShouldFollowup("q", "a", 40, false, 0, "")
		assert.True(t, ok)
		_, ok = s.ShouldFollowup("q", "a", 70, false, 0, "")
		assert.False(t, ok)
	})

	t.Run("NeverChainsFollowups", func(t *testing.T) {
		_, ok := s.ShouldFollowup("q", "a", 55, true, 0, "")
		assert.False(t, ok)
	})

	t.Run("SessionCapStopsFollowups", func(t *testing.T) {
		_, ok := s.ShouldFollowup("q", "a", 55, false, testTuning().MaxFollowups, "")
		assert.False(t, ok)
	})

	t.Run("LongAnswersAreTruncated", func(t *testing.T) {
		long := make([]byte, 500)
		for i := range long {
			long[i] = 'x'
		}
		prompt, ok := s.ShouldFollowup("q", string(long), 55, false, 0, "")
		require.True(t, ok)
		assert.Less(t, len(prompt), 400)
	})
}

func TestSelectorService_AdjustBand(t *testing.T) {
	s := NewSelectorService(&fakeQuestionStore{}, testTuning())

	mainAnswer := func(score float64, band string) model.Answer {
		return model.Answer{Score: score, Difficulty: band}
	}

	t.Run("PromotesOnHighWindowAverage", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		answers := []model.Answer{
			mainAnswer(80, model.DifficultyIntermediate),
			mainAnswer(85, model.DifficultyIntermediate),
			mainAnswer(90, model.DifficultyIntermediate),
		}
		assert.Equal(t, model.DifficultyAdvanced, s.AdjustBand(session, answers, 3))
	})

	t.Run("DemotesOnLowWindowAverage", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		answers := []model.Answer{
			mainAnswer(20, model.DifficultyIntermediate),
			mainAnswer(30, model.DifficultyIntermediate),
			mainAnswer(35, model.DifficultyIntermediate),
		}
		assert.Equal(t, model.DifficultyBeginner, s.AdjustBand(session, answers, 3))
	})

	t.Run("HoldsInTheMiddle", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		answers := []model.Answer{
			mainAnswer(60, model.DifficultyIntermediate),
			mainAnswer(55, model.DifficultyIntermediate),
			mainAnswer(65, model.DifficultyIntermediate),
		}
		assert.Equal(t, model.DifficultyIntermediate, s.AdjustBand(session, answers, 3))
	})

	t.Run("OnlyEvaluatesAtWindowBoundaries", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		answers := []model.Answer{
			mainAnswer(90, model.DifficultyIntermediate),
			mainAnswer(95, model.DifficultyIntermediate),
		}
		assert.Equal(t, model.DifficultyIntermediate, s.AdjustBand(session, answers, 2))
	})

	t.Run("ClampedAtTheTop", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyAdvanced}
		answers := []model.Answer{
			mainAnswer(95, model.DifficultyAdvanced),
			mainAnswer(95, model.DifficultyAdvanced),
			mainAnswer(95, model.DifficultyAdvanced),
		}
		assert.Equal(t, model.DifficultyAdvanced, s.AdjustBand(session, answers, 3))
	})

	t.Run("FollowupsAndOtherBandsIgnored", func(t *testing.T) {
		session := &model.InterviewSession{CurrentBand: model.DifficultyIntermediate}
		answers := []model.Answer{
			mainAnswer(90, model.DifficultyIntermediate),
			mainAnswer(90, model.DifficultyIntermediate),
			mainAnswer(90, model.DifficultyIntermediate),
			{Score: 5, Difficulty: model.DifficultyIntermediate, IsFollowup: true},
			mainAnswer(5, model.DifficultyBeginner),
		}
		assert.Equal(t, model.DifficultyAdvanced, s.AdjustBand(session, answers, 3))
	})
}
