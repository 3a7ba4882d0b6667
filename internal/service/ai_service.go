package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Judgment is what the judgment model reports for one answer.
type Judgment struct {
	Score     float64            `json:"score"`
	Feedback  string             `json:"feedback"`
	Followup  string             `json:"followup"`
	SubScores map[string]float64 `json:"sub_scores"`
}

// Judge grades candidate answers. Injected so tests can substitute a
// deterministic implementation.
type Judge interface {
	EvaluateAnswer(ctx context.Context, question *model.Question, candidateText string) (*Judgment, error)
}

// QuestionGenerator produces new bank questions from the model.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, category, difficulty string) (*model.Question, error)
}

// AIService talks to an OpenAI-compatible chat endpoint.
type AIService struct {
	client *openai.Client
	cfg    config.AIConfig
}

func NewAIService(cfg config.AIConfig) *AIService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &AIService{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

const evaluatorSystemPrompt = "You are Sarah, a friendly professional Excel interviewer. " +
	"You grade spoken answers that may carry transcription noise (filler words, " +
	"repeated fragments, small spelling mistakes): normalize that noise and grade " +
	"intent and knowledge, never the transcription artifacts. Respond ONLY with valid JSON."

func (s *AIService) EvaluateAnswer(ctx context.Context, question *model.Question, candidateText string) (*Judgment, error) {
	grading := question.CanonicalAnswer
	if alts := question.AlternativeList(); len(alts) > 0 {
		grading += "\nAccepted alternatives: " + strings.Join(alts, " | ")
	}

	prompt := fmt.Sprintf(`Question asked: %q
Expected answer (grading context): %q
Candidate's answer: %q

Return ONLY a JSON object:
{
  "score": <integer 0-100>,
  "feedback": "<one concise sentence on strengths and weaknesses>",
  "followup": "<a single natural clarifying follow-up question, or empty string if the answer was clearly strong or clearly weak>",
  "sub_scores": {
    "communication": <0-100>,
    "clarity": <0-100>,
    "confidence": <0-100>,
    "presentation": <0-100>,
    "problem_solving": <0-100>
  }
}`, question.QuestionText, grading, candidateText)

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("judgment model returned no choices")
	}

	var j Judgment
	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &j); err != nil {
		return nil, fmt.Errorf("judgment model returned malformed JSON: %w", err)
	}
	return &j, nil
}

// GenerateQuestion asks the model for one new bank question of the given
// category and difficulty.
func (s *AIService) GenerateQuestion(ctx context.Context, category, difficulty string) (*model.Question, error) {
	prompt := fmt.Sprintf(`Generate an Excel interview question for %q at %q level.

Requirements:
1. Practical and job-relevant.
2. Include alternative valid answers where applicable.
3. Provide progressive hints that guide without giving away the answer.

Return ONLY valid JSON:
{
  "question_text": "clear, specific question",
  "question_type": "formula or explanation",
  "canonical_answer": "best expected answer",
  "alternatives": ["alternative valid answers"],
  "explanation": "why this matters in real work",
  "hints": ["gentle hint", "more specific hint", "near-solution hint"],
  "tags": "comma,separated,tags"
}`, category, difficulty)

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are an expert Excel interview question writer. Respond ONLY with valid JSON."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("question generation returned no choices")
	}

	var parsed struct {
		QuestionText    string   `json:"question_text"`
		QuestionType    string   `json:"question_type"`
		CanonicalAnswer string   `json:"canonical_answer"`
		Alternatives    []string `json:"alternatives"`
		Explanation     string   `json:"explanation"`
		Hints           []string `json:"hints"`
		Tags            string   `json:"tags"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("question generation returned malformed JSON: %w", err)
	}
	if parsed.QuestionText == "" {
		return nil, fmt.Errorf("question generation returned an empty question")
	}
	if parsed.QuestionType != model.QuestionTypeFormula {
		parsed.QuestionType = model.QuestionTypeExplanation
	}

	alts, _ := json.Marshal(parsed.Alternatives)
	hints, _ := json.Marshal(parsed.Hints)
	return &model.Question{
		Category:        category,
		Difficulty:      difficulty,
		QuestionText:    parsed.QuestionText,
		QuestionType:    parsed.QuestionType,
		CanonicalAnswer: parsed.CanonicalAnswer,
		Alternatives:    alts,
		Explanation:     parsed.Explanation,
		Hints:           hints,
		Tags:            parsed.Tags,
	}, nil
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
