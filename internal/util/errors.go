package util

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrSessionCompleted   = errors.New("session already completed")
	ErrNoPendingQuestion  = errors.New("no question pending an answer")
	ErrSessionNotComplete = errors.New("session not completed yet")
	ErrBankExhausted      = errors.New("question bank exhausted")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoAnswerProvided   = errors.New("no answer provided")
	ErrGenerationFailed   = errors.New("question generation produced nothing usable")
)
