package service

import (
	"context"
	"encoding/json"
	"strings"

	"excel_interview_backend/internal/model"
	"excel_interview_backend/internal/util"
	"excel_interview_backend/pkg/logger"

	"go.uber.org/zap"
)

// QuestionBankStore is the catalog persistence surface the bank service
// needs.
type QuestionBankStore interface {
	Create(q *model.Question) error
	List(category, difficulty string, page, limit int) ([]model.Question, int64, error)
	CountByDifficulty(difficulty string) (int64, error)
}

// CreateQuestionRequest is one hand-authored catalog entry.
type CreateQuestionRequest struct {
	Category        string   `json:"category" binding:"required"`
	Difficulty      string   `json:"difficulty" binding:"required"`
	QuestionText    string   `json:"question_text" binding:"required"`
	QuestionType    string   `json:"question_type"`
	CanonicalAnswer string   `json:"canonical_answer"`
	Alternatives    []string `json:"alternatives"`
	Explanation     string   `json:"explanation"`
	Hints           []string `json:"hints"`
	Tags            string   `json:"tags"`
}

// GenerateQuestionsRequest asks the model to draft catalog entries for one
// category and band.
type GenerateQuestionsRequest struct {
	Category   string `json:"category" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required"`
	Count      int    `json:"count"`
}

// QuestionService manages the question catalog: listing, manual authoring
// and AI-assisted generation.
type QuestionService struct {
	store     QuestionBankStore
	generator QuestionGenerator
}

func NewQuestionService(store QuestionBankStore, generator QuestionGenerator) *QuestionService {
	return &QuestionService{store: store, generator: generator}
}

func (s *QuestionService) List(category, difficulty string, page, limit int) ([]model.Question, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if difficulty != "" {
		if _, ok := model.DifficultyOrder[difficulty]; !ok {
			return nil, 0, util.ErrInvalidInput
		}
	}
	return s.store.List(category, difficulty, page, limit)
}

func (s *QuestionService) Create(req CreateQuestionRequest) (*model.Question, error) {
	if strings.TrimSpace(req.QuestionText) == "" || strings.TrimSpace(req.Category) == "" {
		return nil, util.ErrInvalidInput
	}
	if _, ok := model.DifficultyOrder[req.Difficulty]; !ok {
		return nil, util.ErrInvalidInput
	}

	questionType := req.QuestionType
	if questionType != model.QuestionTypeFormula {
		questionType = model.QuestionTypeExplanation
	}

	q := &model.Question{
		Category:        strings.TrimSpace(req.Category),
		Difficulty:      req.Difficulty,
		QuestionText:    strings.TrimSpace(req.QuestionText),
		QuestionType:    questionType,
		CanonicalAnswer: req.CanonicalAnswer,
		Explanation:     req.Explanation,
		Tags:            req.Tags,
	}
	if len(req.Alternatives) > 0 {
		if raw, err := json.Marshal(req.Alternatives); err == nil {
			q.Alternatives = raw
		}
	}
	if len(req.Hints) > 0 {
		if raw, err := json.Marshal(req.Hints); err == nil {
			q.Hints = raw
		}
	}

	if err := s.store.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

// Generate drafts up to Count questions with the model and stores the ones
// that come back well-formed. Partial success is success: it returns
// whatever was stored.
func (s *QuestionService) Generate(ctx context.Context, req GenerateQuestionsRequest) ([]model.Question, error) {
	if s.generator == nil {
		return nil, util.ErrGenerationFailed
	}
	if _, ok := model.DifficultyOrder[req.Difficulty]; !ok {
		return nil, util.ErrInvalidInput
	}
	count := req.Count
	if count < 1 {
		count = 1
	}
	if count > 10 {
		count = 10
	}

	var created []model.Question
	for i := 0; i < count; i++ {
		q, err := s.generator.GenerateQuestion(ctx, req.Category, req.Difficulty)
		if err != nil {
			logger.Log.Warn("question generation failed",
				zap.String("category", req.Category),
				zap.String("difficulty", req.Difficulty),
				zap.Error(err))
			continue
		}
		if strings.TrimSpace(q.QuestionText) == "" {
			continue
		}
		if err := s.store.Create(q); err != nil {
			logger.Log.Error("storing generated question failed", zap.Error(err))
			continue
		}
		created = append(created, *q)
	}

	if len(created) == 0 {
		return nil, util.ErrGenerationFailed
	}
	return created, nil
}
