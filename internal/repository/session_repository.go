package repository

import (
	"errors"

	"excel_interview_backend/internal/model"
	"excel_interview_backend/internal/util"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(s *model.InterviewSession) error {
	return r.DB.Create(s).Error
}

func (r *SessionRepository) FindByID(id string) (*model.InterviewSession, error) {
	var s model.InterviewSession
	err := r.DB.First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Update(s *model.InterviewSession) error {
	return r.DB.Save(s).Error
}

// UpdateWithAnswer saves the session and inserts the answer in one
// transaction, so a partial write cannot leave the session awaiting an
// answer that was already recorded.
func (r *SessionRepository) UpdateWithAnswer(s *model.InterviewSession, a *model.Answer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		return tx.Save(s).Error
	})
}
