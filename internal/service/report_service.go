package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/model"
)

// ReportRenderer turns a finished report into an external artifact and
// returns its URL. Rendering is a collaborator concern; the engine only
// carries the URL.
type ReportRenderer interface {
	Render(ctx context.Context, report *model.InterviewReport) (string, error)
}

// JSONReportRenderer writes the report JSON through the storage provider.
// PDF rendering, when deployed, is a separate collaborator implementing the
// same interface.
type JSONReportRenderer struct {
	Storage StorageProvider
}

func (r *JSONReportRenderer) Render(ctx context.Context, report *model.InterviewReport) (string, error) {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("reports/report_%s.json", report.SessionID)
	return r.Storage.Upload(ctx, filename, bytes.NewReader(raw), int64(len(raw)), "application/json")
}

// ReportService folds the answers of a completed session into the final
// report. Everything here is deterministic and offline: regenerating a
// report from the same rows yields identical numbers, and no external
// provider is ever invoked.
type ReportService struct {
	mu     sync.RWMutex
	tuning config.InterviewConfig
}

func NewReportService(tuning config.InterviewConfig) *ReportService {
	return &ReportService{tuning: tuning}
}

func (s *ReportService) ReloadTuning(tuning config.InterviewConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning = tuning
}

func (s *ReportService) currentTuning() config.InterviewConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tuning
}

// OverallScore collapses each parent/follow-up pair into one effective
// grade (follow-ups refine at reduced weight) and averages the effective
// grades, rounded to one decimal.
func (s *ReportService) OverallScore(answers []model.Answer) float64 {
	effective := s.effectiveScores(answers)
	if len(effective) == 0 {
		return 0
	}
	var sum float64
	for _, e := range effective {
		sum += e
	}
	return round1(sum / float64(len(effective)))
}

// effectiveScores returns one grade per original question, in asked order.
func (s *ReportService) effectiveScores(answers []model.Answer) []float64 {
	w := s.currentTuning().FollowupWeight

	var scores []float64
	// Index of the effective score owned by each question id, so a
	// follow-up folds into its parent rather than adding a grade.
	owner := make(map[uint]int)

	for _, a := range answers {
		if !a.IsFollowup {
			scores = append(scores, a.Score)
			if a.QuestionID != nil {
				owner[*a.QuestionID] = len(scores) - 1
			}
			continue
		}

		if a.QuestionID != nil {
			if idx, ok := owner[*a.QuestionID]; ok {
				scores[idx] = scores[idx]*(1-w) + a.Score*w
				continue
			}
		}
		// Orphan follow-up; count it at its reduced weight alone.
		scores = append(scores, a.Score*w)
	}
	return scores
}

// BuildReport assembles the full report for a completed session.
func (s *ReportService) BuildReport(session *model.InterviewSession, answers []model.Answer) *model.InterviewReport {
	report := &model.InterviewReport{
		SessionID:      session.ID,
		CandidateName:  session.CandidateName,
		CandidateEmail: session.CandidateEmail,
		CollegeName:    session.CollegeName,
		RollNumber:     session.RollNumber,
		RoleLevel:      session.RoleLevel,
		StartedAt:      session.StartedAt.UTC().Format(time.RFC3339),
		OverallScore:   s.OverallScore(answers),
	}
	if session.CompletedAt != nil {
		report.CompletedAt = session.CompletedAt.UTC().Format(time.RFC3339)
	}

	var totalTime float64
	for _, a := range answers {
		totalTime += a.TimeSpent
		if !a.IsFollowup {
			report.TotalQuestions++
		}
		report.Answers = append(report.Answers, model.ReportAnswer{
			QuestionID: a.QuestionID,
			UserAnswer: a.UserAnswer,
			Score:      a.Score,
			TimeSpent:  a.TimeSpent,
			Feedback:   a.Feedback,
			IsFollowup: a.IsFollowup,
		})
	}
	report.TotalTimeMinutes = round1(totalTime / 60)

	axes := axisMeans(answers)
	report.CommunicationScore = axes[model.AxisCommunication]
	report.PresentationScore = axes[model.AxisPresentation]
	report.ClarityScore = axes[model.AxisClarity]
	report.ConfidenceScore = axes[model.AxisConfidence]
	report.ProblemSolvingScore = axes[model.AxisProblemSolving]

	report.Summary = buildSummary(report.OverallScore, answers)
	report.Suggestions = buildSuggestions(report.OverallScore, answers)

	return report
}

// axisMeans averages each axis over the answers that reported it. Axes with
// no contributing answers stay nil and are never fabricated.
func axisMeans(answers []model.Answer) map[string]*float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, a := range answers {
		for axis, v := range a.SubScoreMap() {
			sums[axis] += v
			counts[axis]++
		}
	}

	out := make(map[string]*float64, len(model.ReportAxes))
	for _, axis := range model.ReportAxes {
		if counts[axis] == 0 {
			out[axis] = nil
			continue
		}
		v := round1(sums[axis] / float64(counts[axis]))
		out[axis] = &v
	}
	return out
}

type categoryStat struct {
	name  string
	avg   float64
	count int
}

// categoryStats averages main-answer scores per category, sorted ascending
// by average with the category name as a stable tie-break.
func categoryStats(answers []model.Answer) []categoryStat {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, a := range answers {
		if a.IsFollowup || a.Category == "" {
			continue
		}
		sums[a.Category] += a.Score
		counts[a.Category]++
	}

	stats := make([]categoryStat, 0, len(sums))
	for name, sum := range sums {
		stats = append(stats, categoryStat{name: name, avg: sum / float64(counts[name]), count: counts[name]})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].avg != stats[j].avg {
			return stats[i].avg < stats[j].avg
		}
		return stats[i].name < stats[j].name
	})
	return stats
}

func buildSummary(overall float64, answers []model.Answer) string {
	var level string
	switch {
	case overall >= 75:
		level = "a strong performance"
	case overall >= 55:
		level = "a solid performance with room to grow"
	default:
		level = "a developing performance"
	}

	stats := categoryStats(answers)
	if len(stats) == 0 {
		return fmt.Sprintf("The interview showed %s with an overall score of %.1f.", level, overall)
	}

	weakest := stats[0]
	strongest := stats[len(stats)-1]
	if weakest.name == strongest.name {
		return fmt.Sprintf("The interview showed %s with an overall score of %.1f, centered on %s.",
			level, overall, weakest.name)
	}
	return fmt.Sprintf("The interview showed %s with an overall score of %.1f. Strongest area: %s (%.1f avg). Weakest area: %s (%.1f avg).",
		level, overall, strongest.name, round1(strongest.avg), weakest.name, round1(weakest.avg))
}

// buildSuggestions derives two improvement suggestions from the score
// distribution, the first targeted at the lowest-performing category.
func buildSuggestions(overall float64, answers []model.Answer) []string {
	suggestions := make([]string, 0, 2)

	if stats := categoryStats(answers); len(stats) > 0 && stats[0].avg < 75 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Practice %s exercises; it was your lowest-scoring area at %.1f on average.",
			stats[0].name, round1(stats[0].avg)))
	}

	switch {
	case overall < 55:
		suggestions = append(suggestions, "Revisit the fundamentals and rehearse explaining each concept out loud before the next attempt.")
	case overall < 75:
		suggestions = append(suggestions, "Structure answers in three steps (what, why, how) to make partially correct answers land fully.")
	default:
		suggestions = append(suggestions, "Keep the momentum: tackle advanced scenarios under time pressure to sharpen the remaining edges.")
	}

	if len(suggestions) < 2 {
		suggestions = append(suggestions, "Practice concise explanations out loud to improve delivery.")
	}
	return suggestions
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
