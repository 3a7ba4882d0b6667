package service

import (
	"fmt"
	"strings"
	"sync"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/model"
	"excel_interview_backend/internal/util"
)

// QuestionStore is the read-only catalog view the selector works against.
type QuestionStore interface {
	FindByID(id uint) (*model.Question, error)
	FindUnseen(difficulty string, excludeIDs []uint) ([]model.Question, error)
}

// SelectorService implements the difficulty/topic progression policy: which
// question comes next, whether a follow-up is warranted, and when a session
// changes difficulty band.
type SelectorService struct {
	questions QuestionStore

	mu     sync.RWMutex
	tuning config.InterviewConfig
}

func NewSelectorService(questions QuestionStore, tuning config.InterviewConfig) *SelectorService {
	return &SelectorService{questions: questions, tuning: tuning}
}

func (s *SelectorService) ReloadTuning(tuning config.InterviewConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning = tuning
}

func (s *SelectorService) currentTuning() config.InterviewConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tuning
}

// NextQuestion picks the next unseen catalog question for the session.
// askedCategories are the categories already covered; unseen categories are
// preferred, ties broken by catalog order. When the current band has no
// unseen question the nearest reachable band is tried (harder first). The
// chosen question's band becomes the session's current band.
//
// Returns util.ErrBankExhausted when the question budget is spent or no
// unseen question exists in any reachable band.
func (s *SelectorService) NextQuestion(session *model.InterviewSession, mainAnswered int64, askedCategories []string) (*model.Question, error) {
	if mainAnswered >= int64(s.currentTuning().MaxQuestions) {
		return nil, util.ErrBankExhausted
	}

	asked := session.AskedIDs()
	for _, band := range reachableBands(session.CurrentBand) {
		candidates, err := s.questions.FindUnseen(band, asked)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}

		covered := make(map[string]bool, len(askedCategories))
		for _, c := range askedCategories {
			covered[c] = true
		}
		for i := range candidates {
			if !covered[candidates[i].Category] {
				return &candidates[i], nil
			}
		}
		return &candidates[0], nil
	}

	return nil, util.ErrBankExhausted
}

// reachableBands orders difficulty bands by distance from the current one,
// harder bands first on ties, bounded by the catalog's range.
func reachableBands(current string) []string {
	rank, ok := model.DifficultyOrder[current]
	if !ok {
		rank = model.DifficultyOrder[model.DifficultyIntermediate]
	}

	bands := []string{model.DifficultyByRank[rank]}
	for step := 1; step < len(model.DifficultyByRank); step++ {
		if up := rank + step; up < len(model.DifficultyByRank) {
			bands = append(bands, model.DifficultyByRank[up])
		}
		if down := rank - step; down >= 0 {
			bands = append(bands, model.DifficultyByRank[down])
		}
	}
	return bands
}

// ShouldFollowup decides whether scoring a non-follow-up answer warrants
// one clarifying follow-up: the score has to land in the ambiguous middle
// band, a question gets at most one follow-up, and followupsAsked caps the
// total per session at MaxFollowups.
//
// modelFollowup is the judgment model's suggested prompt; when empty (or
// the evaluation degraded) a deterministic prompt derived from the question
// and the candidate's answer is used, so follow-up behavior never depends
// on provider availability.
func (s *SelectorService) ShouldFollowup(questionText, candidateAnswer string, score float64, wasFollowup bool, followupsAsked int, modelFollowup string) (string, bool) {
	t := s.currentTuning()
	if wasFollowup {
		return "", false
	}
	if followupsAsked >= t.MaxFollowups {
		return "", false
	}
	if score < t.FollowupLow || score >= t.FollowupHigh {
		return "", false
	}

	if modelFollowup != "" {
		return modelFollowup, true
	}
	return synthesizeFollowup(questionText, candidateAnswer), true
}

func synthesizeFollowup(questionText, candidateAnswer string) string {
	snippet := strings.TrimSpace(candidateAnswer)
	if len(snippet) > 120 {
		snippet = snippet[:120] + "..."
	}
	return fmt.Sprintf(
		"You answered: %q. Could you expand on that and walk me through your reasoning step by step for the original question: %s",
		snippet, questionText,
	)
}

// AdjustBand applies the progression policy after a main answer: every
// window of main answers, the rolling average in the current band decides
// whether to step up, hold, or step down, bounded by the catalog's range.
// Returns the (possibly unchanged) band.
func (s *SelectorService) AdjustBand(session *model.InterviewSession, answers []model.Answer, mainAnswered int64) string {
	t := s.currentTuning()
	if t.ProgressionWindow <= 0 || mainAnswered == 0 || mainAnswered%int64(t.ProgressionWindow) != 0 {
		return session.CurrentBand
	}

	var sum float64
	var n int
	for _, a := range answers {
		if a.IsFollowup || a.Difficulty != session.CurrentBand {
			continue
		}
		sum += a.Score
		n++
	}
	if n == 0 {
		return session.CurrentBand
	}

	avg := sum / float64(n)
	rank := model.DifficultyOrder[session.CurrentBand]
	switch {
	case avg >= t.PromoteThreshold && rank < len(model.DifficultyByRank)-1:
		return model.DifficultyByRank[rank+1]
	case avg < t.DemoteThreshold && rank > 0:
		return model.DifficultyByRank[rank-1]
	default:
		return session.CurrentBand
	}
}
