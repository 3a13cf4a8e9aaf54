package entities

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of an interview session
type SessionStatus string

const (
	SessionStatusIdle             SessionStatus = "idle"
	SessionStatusLeadIn           SessionStatus = "lead_in"
	SessionStatusSpeaking         SessionStatus = "speaking"
	SessionStatusAwaitingResponse SessionStatus = "awaiting_response"
	SessionStatusListening        SessionStatus = "listening"
	SessionStatusEvaluating       SessionStatus = "evaluating"
	SessionStatusCompleted        SessionStatus = "completed"
	SessionStatusStopped          SessionStatus = "stopped"
)

// IsTerminal reports whether no further transitions are possible
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusStopped
}

// Speaker identifies who produced a transcript entry
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// EntryKind is a display hint for transcript entries
type EntryKind string

const (
	EntryKindQuestion EntryKind = "question"
	EntryKindAnswer   EntryKind = "answer"
	EntryKindFeedback EntryKind = "feedback"
	EntryKindNotice   EntryKind = "notice"
)

// ScoringMode selects the unit accumulated into the session score
type ScoringMode string

const (
	// ScoringModePassCount adds 1 for every passed answer
	ScoringModePassCount ScoringMode = "pass_count"
	// ScoringModeEvaluatorScore adds the evaluator's 0-10 score
	ScoringModeEvaluatorScore ScoringMode = "evaluator_score"
)

// ParseScoringMode converts a configuration string into a ScoringMode
func ParseScoringMode(s string) (ScoringMode, error) {
	switch ScoringMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScoringModePassCount:
		return ScoringModePassCount, nil
	case ScoringModeEvaluatorScore:
		return ScoringModeEvaluatorScore, nil
	default:
		return "", fmt.Errorf("unknown scoring mode: %s", s)
	}
}

// MaxEvaluationScore is the upper bound of a single evaluator score
const MaxEvaluationScore = 10.0

// EvaluationResult is the evaluator's verdict on one answer
type EvaluationResult struct {
	Score       float64 `json:"score" bson:"score"`
	Passed      bool    `json:"passed" bson:"passed"`
	Feedback    string  `json:"feedback" bson:"feedback"`
	Improvement string  `json:"improvement,omitempty" bson:"improvement,omitempty"`
}

// NeutralFeedback is spoken when an answer could not be scored
const NeutralFeedback = "I couldn't evaluate that answer right now. Let's keep going and you can revisit it later."

// NeutralEvaluation is the conservative verdict used whenever scoring fails
func NeutralEvaluation() EvaluationResult {
	return EvaluationResult{Score: 0, Passed: false, Feedback: NeutralFeedback}
}

// Normalize clamps the score into [0, MaxEvaluationScore] and fills empty
// feedback. A NaN score counts as 0.
func (r EvaluationResult) Normalize() EvaluationResult {
	if math.IsNaN(r.Score) || r.Score < 0 {
		r.Score = 0
	}
	if r.Score > MaxEvaluationScore {
		r.Score = MaxEvaluationScore
	}
	if strings.TrimSpace(r.Feedback) == "" {
		r.Feedback = NeutralFeedback
	}
	return r
}

// Points returns the contribution of this result to the session score
func (r EvaluationResult) Points(mode ScoringMode) float64 {
	if mode == ScoringModeEvaluatorScore {
		return r.Score
	}
	if r.Passed {
		return 1
	}
	return 0
}

// TurnEntry is one line of the interview transcript
type TurnEntry struct {
	Speaker            Speaker   `json:"speaker" bson:"speaker"`
	Kind               EntryKind `json:"kind" bson:"kind"`
	Text               string    `json:"text" bson:"text"`
	QuestionIndex      int       `json:"question_index" bson:"question_index"`
	CountdownRemaining *int      `json:"countdown_remaining,omitempty" bson:"countdown_remaining,omitempty"`
	Score              *float64  `json:"score,omitempty" bson:"score,omitempty"`
	Timestamp          time.Time `json:"timestamp" bson:"timestamp"`
}

// IsPending reports whether the entry is a reserved, not yet spoken answer slot
func (e TurnEntry) IsPending() bool {
	return e.Speaker == SpeakerCandidate && e.Text == "" && e.CountdownRemaining != nil
}

func (e TurnEntry) clone() TurnEntry {
	c := e
	if e.CountdownRemaining != nil {
		v := *e.CountdownRemaining
		c.CountdownRemaining = &v
	}
	if e.Score != nil {
		v := *e.Score
		c.Score = &v
	}
	return c
}

// Session is the aggregate owned by the turn controller for one interview
type Session struct {
	ID           string        `json:"id" bson:"_id"`
	Topic        string        `json:"topic" bson:"topic"`
	Questions    []string      `json:"questions" bson:"questions"`
	CurrentIndex int           `json:"current_index" bson:"current_index"`
	Score        float64       `json:"score" bson:"score"`
	Transcript   []TurnEntry   `json:"transcript" bson:"transcript"`
	Status       SessionStatus `json:"status" bson:"status"`
	ScoringMode  ScoringMode   `json:"scoring_mode" bson:"scoring_mode"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
}

var (
	errPendingEntryExists = errors.New("a pending transcript entry already exists")
	errNoPendingEntry     = errors.New("no pending transcript entry")
)

// NewSession creates an idle session for the given topic. The question list is
// copied so the caller cannot mutate it mid-session.
func NewSession(topic string, questions []string, mode ScoringMode) (*Session, error) {
	if len(questions) == 0 {
		return nil, errors.New("at least one question is required")
	}
	if mode == "" {
		mode = ScoringModePassCount
	}

	qs := make([]string, len(questions))
	copy(qs, questions)

	return &Session{
		ID:          uuid.NewString(),
		Topic:       topic,
		Questions:   qs,
		Transcript:  make([]TurnEntry, 0, len(qs)*3),
		Status:      SessionStatusIdle,
		ScoringMode: mode,
		CreatedAt:   time.Now(),
	}, nil
}

// CurrentQuestion returns the question at CurrentIndex
func (s *Session) CurrentQuestion() string {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return ""
	}
	return s.Questions[s.CurrentIndex]
}

// HasNextQuestion reports whether another question follows the current one
func (s *Session) HasNextQuestion() bool {
	return s.CurrentIndex+1 < len(s.Questions)
}

// Advance moves to the next question. It never moves backwards.
func (s *Session) Advance() error {
	if !s.HasNextQuestion() {
		return errors.New("no remaining questions")
	}
	s.CurrentIndex++
	return nil
}

// AddScore accumulates points; negative contributions are ignored so the
// running score never decreases
func (s *Session) AddScore(points float64) {
	if points > 0 {
		s.Score += points
	}
}

// AppendEntry appends a finished entry to the transcript. A pending entry must
// be resolved before anything else is appended.
func (s *Session) AppendEntry(entry TurnEntry) error {
	if s.pendingIndex() >= 0 {
		return errPendingEntryExists
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.CountdownRemaining = nil
	s.Transcript = append(s.Transcript, entry)
	return nil
}

// AppendPending reserves the candidate's answer slot with a live countdown
func (s *Session) AppendPending(countdown int) error {
	if s.pendingIndex() >= 0 {
		return errPendingEntryExists
	}
	remaining := countdown
	s.Transcript = append(s.Transcript, TurnEntry{
		Speaker:            SpeakerCandidate,
		Kind:               EntryKindAnswer,
		QuestionIndex:      s.CurrentIndex,
		CountdownRemaining: &remaining,
		Timestamp:          time.Now(),
	})
	return nil
}

// HasPending reports whether the last entry is a pending answer slot
func (s *Session) HasPending() bool {
	return s.pendingIndex() >= 0
}

// UpdatePendingCountdown rewrites the countdown of the pending entry in place
func (s *Session) UpdatePendingCountdown(remaining int) error {
	i := s.pendingIndex()
	if i < 0 {
		return errNoPendingEntry
	}
	if remaining < 0 {
		remaining = 0
	}
	s.Transcript[i].CountdownRemaining = &remaining
	return nil
}

// FillPending resolves the pending entry with the candidate's words
func (s *Session) FillPending(text string) error {
	i := s.pendingIndex()
	if i < 0 {
		return errNoPendingEntry
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("answer text cannot be empty")
	}
	s.Transcript[i].Text = text
	s.Transcript[i].CountdownRemaining = nil
	s.Transcript[i].Timestamp = time.Now()
	return nil
}

// DropPending removes an unanswered slot, used when the session terminates
func (s *Session) DropPending() {
	if i := s.pendingIndex(); i >= 0 {
		s.Transcript = s.Transcript[:i]
	}
}

// Terminate moves the session into a terminal status
func (s *Session) Terminate(status SessionStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	if s.Status.IsTerminal() {
		return nil
	}
	s.DropPending()
	now := time.Now()
	s.Status = status
	s.EndedAt = &now
	return nil
}

// FeedbackCount returns the number of evaluator feedback entries
func (s *Session) FeedbackCount() int {
	n := 0
	for _, e := range s.Transcript {
		if e.Kind == EntryKindFeedback {
			n++
		}
	}
	return n
}

// Snapshot returns a deep copy safe to hand to other goroutines
func (s *Session) Snapshot() Session {
	c := *s
	c.Questions = append([]string(nil), s.Questions...)
	c.Transcript = make([]TurnEntry, len(s.Transcript))
	for i, e := range s.Transcript {
		c.Transcript[i] = e.clone()
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return c
}

// Validate validates the session data
func (s *Session) Validate() error {
	if len(s.Questions) == 0 {
		return errors.New("questions are required")
	}
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return fmt.Errorf("current index %d out of range", s.CurrentIndex)
	}
	pending := 0
	for i, e := range s.Transcript {
		if e.IsPending() {
			pending++
			if i != len(s.Transcript)-1 {
				return errors.New("pending entry must be the most recent entry")
			}
		}
		if e.CountdownRemaining != nil && e.Text != "" {
			return errors.New("countdown and text are mutually exclusive")
		}
	}
	if pending > 1 {
		return errors.New("at most one pending entry is allowed")
	}
	return nil
}

func (s *Session) pendingIndex() int {
	n := len(s.Transcript)
	if n == 0 {
		return -1
	}
	if s.Transcript[n-1].IsPending() {
		return n - 1
	}
	return -1
}
