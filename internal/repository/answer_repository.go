package repository

import (
	"excel_interview_backend/internal/model"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

func (r *AnswerRepository) FindBySession(sessionID string) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.Where("session_id = ?", sessionID).Order("id asc").Find(&answers).Error
	return answers, err
}

func (r *AnswerRepository) CountMain(sessionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Answer{}).
		Where("session_id = ? AND is_followup = ?", sessionID, false).
		Count(&count).Error
	return count, err
}
