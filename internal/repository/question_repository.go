package repository

import (
	"errors"

	"excel_interview_backend/internal/model"
	"excel_interview_backend/internal/util"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// FindUnseen returns unseen questions of one difficulty band in catalog
// order. The selector applies its category preference on top.
func (r *QuestionRepository) FindUnseen(difficulty string, excludeIDs []uint) ([]model.Question, error) {
	var qs []model.Question
	query := r.DB.Model(&model.Question{}).Where("difficulty = ?", difficulty)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	err := query.Order("id asc").Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) List(category, difficulty string, page, limit int) ([]model.Question, int64, error) {
	var qs []model.Question
	var total int64
	query := r.DB.Model(&model.Question{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("id asc").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}

func (r *QuestionRepository) CountByDifficulty(difficulty string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("difficulty = ?", difficulty).Count(&count).Error
	return count, err
}
