package service

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/model"
	"excel_interview_backend/internal/util"
	"excel_interview_backend/pkg/logger"

	"go.uber.org/zap"
)

// Evaluation outcome paths, used for metrics and tests.
const (
	OutcomeModel       = "model"
	OutcomeStrongMatch = "strong_match"
	OutcomeFallback    = "fallback"
	OutcomeEmpty       = "empty"
)

const degradedNotice = "[degraded evaluation] "

// EvaluationResult is a graded answer ready to persist.
type EvaluationResult struct {
	Score     float64
	Feedback  string
	Followup  string
	SubScores map[string]float64
	Outcome   string
}

// EvaluationService converts raw candidate input into a graded result. It
// isolates the orchestrator from provider failures: a score always comes
// back, degraded paths never return an error.
type EvaluationService struct {
	judge       Judge
	transcriber Transcriber

	mu     sync.RWMutex
	tuning config.InterviewConfig

	// retryBackoff is shortened in tests.
	retryBackoff time.Duration
}

func NewEvaluationService(judge Judge, transcriber Transcriber, tuning config.InterviewConfig) *EvaluationService {
	return &EvaluationService{
		judge:        judge,
		transcriber:  transcriber,
		tuning:       tuning,
		retryBackoff: 500 * time.Millisecond,
	}
}

// ReloadTuning swaps the threshold set; called on config hot-reload.
func (s *EvaluationService) ReloadTuning(tuning config.InterviewConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning = tuning
}

func (s *EvaluationService) currentTuning() config.InterviewConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tuning
}

// Transcribe converts an uploaded recording to text. The recording is
// transcoded to wav first; when conversion fails the raw upload is tried
// as-is. Any provider failure surfaces as an error so the orchestrator can
// degrade to an empty transcript.
func (s *EvaluationService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := util.ProbeAudio(audioPath); err != nil {
		return "", err
	}

	path := audioPath
	if wavPath, err := util.ConvertToWav(audioPath); err == nil {
		path = wavPath
		defer os.Remove(wavPath)
	} else {
		logger.Log.Warn("audio conversion failed, transcribing original upload", zap.Error(err))
	}

	text, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Score grades a candidate answer against a question.
//
// Matching policy: formula questions whose normalized answer equals the
// canonical answer or a listed alternative short-circuit to the maximum
// score without invoking the model. Otherwise the judgment model grades,
// with one retry after backoff; on persistent failure a deterministic
// keyword-overlap rubric takes over, marked with a degraded notice.
func (s *EvaluationService) Score(ctx context.Context, question *model.Question, candidateText string) *EvaluationResult {
	candidateText = strings.TrimSpace(candidateText)
	if candidateText == "" {
		return &EvaluationResult{
			Score:    0,
			Feedback: "No answer was captured for this question.",
			Outcome:  OutcomeEmpty,
		}
	}

	if question.QuestionType == model.QuestionTypeFormula && s.isStrongMatch(question, candidateText) {
		return &EvaluationResult{
			Score:    clampScore(s.currentTuning().StrongMatchScore),
			Feedback: "Exact match with the expected answer.",
			Outcome:  OutcomeStrongMatch,
		}
	}

	judgment, err := s.judge.EvaluateAnswer(ctx, question, candidateText)
	if err != nil {
		logger.Log.Warn("judgment model call failed, retrying once", zap.Error(err))
		select {
		case <-time.After(s.retryBackoff):
		case <-ctx.Done():
		}
		judgment, err = s.judge.EvaluateAnswer(ctx, question, candidateText)
	}
	if err != nil {
		logger.Log.Error("judgment model unavailable, using fallback rubric", zap.Error(err))
		return s.fallbackScore(question, candidateText)
	}

	return &EvaluationResult{
		Score:     clampScore(judgment.Score),
		Feedback:  judgment.Feedback,
		Followup:  strings.TrimSpace(judgment.Followup),
		SubScores: clampSubScores(judgment.SubScores),
		Outcome:   OutcomeModel,
	}
}

// isStrongMatch compares the normalized candidate text against the
// canonical answer and every listed alternative.
func (s *EvaluationService) isStrongMatch(question *model.Question, candidateText string) bool {
	normalized := NormalizeFormula(candidateText)
	if normalized == "" {
		return false
	}
	if normalized == NormalizeFormula(question.CanonicalAnswer) {
		return true
	}
	for _, alt := range question.AlternativeList() {
		if normalized == NormalizeFormula(alt) {
			return true
		}
	}
	return false
}

// fallbackScore is the deterministic rubric: token overlap between the
// candidate text and the canonical answer, scaled into the score range.
func (s *EvaluationService) fallbackScore(question *model.Question, candidateText string) *EvaluationResult {
	base := s.currentTuning().FallbackScore
	overlap := keywordOverlap(question.CanonicalAnswer, candidateText)

	// Overlap shifts the configured baseline by up to ±30 points so a
	// totally unrelated answer still lands well below the baseline.
	score := clampScore(base + (overlap-0.5)*60)

	return &EvaluationResult{
		Score:    score,
		Feedback: degradedNotice + "The automated grader was unavailable; this answer was scored by keyword overlap with the expected answer.",
		Outcome:  OutcomeFallback,
	}
}

// NormalizeFormula lowercases, strips all whitespace and the leading equals
// sign, so "= sum(a1:a10)" matches "=SUM(A1:A10)".
func NormalizeFormula(s string) string {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(s, "=")
	return s
}

func keywordOverlap(canonical, candidate string) float64 {
	canonTokens := tokenize(canonical)
	if len(canonTokens) == 0 {
		return 0
	}
	candTokens := make(map[string]bool)
	for _, t := range tokenize(candidate) {
		candTokens[t] = true
	}

	matched := 0
	for _, t := range canonTokens {
		if candTokens[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(canonTokens))
}

func tokenize(s string) []string {
	f := func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}
	return strings.FieldsFunc(strings.ToLower(s), f)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clampSubScores(subScores map[string]float64) map[string]float64 {
	if len(subScores) == 0 {
		return nil
	}
	out := make(map[string]float64, len(subScores))
	for axis, v := range subScores {
		out[axis] = clampScore(v)
	}
	return out
}
