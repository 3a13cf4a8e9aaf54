package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

const (
	defaultTimeout = 30 * time.Second

	// ModelAnswerPlaceholder stands in for a reference answer that could not be generated
	ModelAnswerPlaceholder = "Reference answer unavailable."
)

// Config holds configuration for the LLM-backed evaluator
type Config struct {
	// Timeout bounds each model call (default: 30s)
	Timeout time.Duration
}

// LLMEvaluator scores answers with a language model. It never fails: every
// error degrades to entities.NeutralEvaluation or a placeholder.
type LLMEvaluator struct {
	llm     repositories.LargeLanguageModel
	timeout time.Duration
	logger  *zap.Logger
}

var _ repositories.AnswerEvaluator = (*LLMEvaluator)(nil)

// New creates an evaluator over llm
func New(llm repositories.LargeLanguageModel, config Config, logger *zap.Logger) *LLMEvaluator {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
		logger.Info("Using default evaluation timeout", zap.Duration("timeout", timeout))
	}
	return &LLMEvaluator{
		llm:     llm,
		timeout: timeout,
		logger:  logger,
	}
}

// Evaluate implements repositories.AnswerEvaluator
func (e *LLMEvaluator) Evaluate(ctx context.Context, question, answer string) entities.EvaluationResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.llm.Generate(ctx, evaluationPrompt(question, answer))
	if err != nil {
		e.logger.Warn("Evaluation request failed",
			zap.Error(fmt.Errorf("%w: %v", domain.ErrEvaluationFailure, err)))
		return entities.NeutralEvaluation()
	}

	result, err := ParseEvaluation(raw)
	if err != nil {
		e.logger.Warn("Evaluation response unusable",
			zap.Error(err),
			zap.String("response", truncate(raw, 200)))
		return entities.NeutralEvaluation()
	}
	return result
}

// ModelAnswer implements repositories.AnswerEvaluator
func (e *LLMEvaluator) ModelAnswer(ctx context.Context, question string) string {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.llm.Generate(ctx, modelAnswerPrompt(question))
	if err != nil {
		e.logger.Warn("Reference answer request failed", zap.Error(err))
		return ModelAnswerPlaceholder
	}
	answer := strings.TrimSpace(StripCodeFences(raw))
	if answer == "" {
		return ModelAnswerPlaceholder
	}
	return answer
}

// FollowUp implements repositories.AnswerEvaluator
func (e *LLMEvaluator) FollowUp(ctx context.Context, question, answer string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.llm.Generate(ctx, followUpPrompt(question, answer))
	if err != nil {
		e.logger.Debug("Follow-up request failed", zap.Error(err))
		return "", false
	}
	followUp := strings.TrimSpace(StripCodeFences(raw))
	if followUp == "" || strings.EqualFold(strings.Trim(followUp, "."), "none") {
		return "", false
	}
	return followUp, true
}

func evaluationPrompt(question, answer string) string {
	return fmt.Sprintf(`You are a technical interviewer grading a spoken answer.
Question: %q
Candidate answer: %q

Reply with JSON only, no prose, in this shape:
{"score": <number 0-10>, "isCorrect": <true|false>, "feedback": "<one or two sentences>", "improvement": "<one concrete tip>"}`,
		question, answer)
}

func modelAnswerPrompt(question string) string {
	return fmt.Sprintf(`Write a concise reference answer (at most five sentences) to this interview question.
Question: %q`, question)
}

func followUpPrompt(question, answer string) string {
	return fmt.Sprintf(`Suggest one short follow-up question an interviewer could ask next.
Reply with the question only, or NONE if no follow-up fits.
Question: %q
Candidate answer: %q`, question, answer)
}

// StripCodeFences removes markdown code fences around a model reply
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type evaluationPayload struct {
	Score       any    `json:"score"`
	IsCorrect   any    `json:"isCorrect"`
	Passed      any    `json:"passed"`
	Feedback    string `json:"feedback"`
	Improvement string `json:"improvement"`
}

// ParseEvaluation extracts an EvaluationResult from a model reply. Code fences
// and surrounding prose are tolerated; numbers and booleans may arrive as strings.
func ParseEvaluation(raw string) (entities.EvaluationResult, error) {
	s := StripCodeFences(raw)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return entities.EvaluationResult{}, fmt.Errorf("%w: no JSON object in response", domain.ErrEvaluationFailure)
	}

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(s[start:end+1]), &payload); err != nil {
		return entities.EvaluationResult{}, fmt.Errorf("%w: %v", domain.ErrEvaluationFailure, err)
	}

	score, err := toFloat(payload.Score)
	if err != nil {
		return entities.EvaluationResult{}, fmt.Errorf("%w: score: %v", domain.ErrEvaluationFailure, err)
	}

	verdict := payload.IsCorrect
	if verdict == nil {
		verdict = payload.Passed
	}
	passed, err := toBool(verdict)
	if err != nil {
		return entities.EvaluationResult{}, fmt.Errorf("%w: isCorrect: %v", domain.ErrEvaluationFailure, err)
	}

	return entities.EvaluationResult{
		Score:       score,
		Passed:      passed,
		Feedback:    strings.TrimSpace(payload.Feedback),
		Improvement: strings.TrimSpace(payload.Improvement),
	}.Normalize(), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("non-finite value %q", x)
		}
		return f, nil
	case nil:
		return 0, errors.New("missing")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(strings.ToLower(x)))
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected type %T", v)
	}
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
