package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/arunika/interview/domain/entities"
)

// ReferencePlaceholder stands in for a reference answer that could not be produced
const ReferencePlaceholder = "Reference answer unavailable."

// BlockStyle tells an exporter how to render a block
type BlockStyle int

const (
	StyleTitle BlockStyle = iota
	StyleHeading
	StyleLabel
	StyleBody
	StyleSpacer
)

// Block is one paragraph of the report flow
type Block struct {
	Style BlockStyle
	Text  string
}

// TranscriptLine is one transcript entry as printed in the report
type TranscriptLine struct {
	Speaker   string
	Kind      entities.EntryKind
	Text      string
	Score     *float64
	Timestamp time.Time
}

// QuestionSummary pairs a question with its reference answer
type QuestionSummary struct {
	Number    int
	Question  string
	Reference string
}

// Document is the printable interview report
type Document struct {
	Title       string
	Candidate   entities.Candidate
	Topic       string
	Status      entities.SessionStatus
	ScoringMode entities.ScoringMode
	Score       float64
	Questions   []QuestionSummary
	Transcript  []TranscriptLine
	StartedAt   time.Time
	EndedAt     *time.Time
}

// Compile builds the report document for a finished session. It reads the
// snapshot only; referenceAnswers are matched to questions by index and
// missing ones are replaced with ReferencePlaceholder.
func Compile(snapshot entities.Session, candidate entities.Candidate, referenceAnswers []string) Document {
	doc := Document{
		Title:       fmt.Sprintf("Interview Report: %s", snapshot.Topic),
		Candidate:   candidate,
		Topic:       snapshot.Topic,
		Status:      snapshot.Status,
		ScoringMode: snapshot.ScoringMode,
		Score:       snapshot.Score,
		Questions:   make([]QuestionSummary, len(snapshot.Questions)),
		Transcript:  make([]TranscriptLine, 0, len(snapshot.Transcript)),
		StartedAt:   snapshot.CreatedAt,
	}
	if snapshot.EndedAt != nil {
		ended := *snapshot.EndedAt
		doc.EndedAt = &ended
	}

	for i, q := range snapshot.Questions {
		ref := ReferencePlaceholder
		if i < len(referenceAnswers) && strings.TrimSpace(referenceAnswers[i]) != "" {
			ref = strings.TrimSpace(referenceAnswers[i])
		}
		doc.Questions[i] = QuestionSummary{Number: i + 1, Question: q, Reference: ref}
	}

	for _, e := range snapshot.Transcript {
		if e.IsPending() {
			continue
		}
		line := TranscriptLine{
			Speaker:   speakerLabel(e.Speaker),
			Kind:      e.Kind,
			Text:      e.Text,
			Timestamp: e.Timestamp,
		}
		if e.Score != nil {
			s := *e.Score
			line.Score = &s
		}
		doc.Transcript = append(doc.Transcript, line)
	}

	return doc
}

func speakerLabel(s entities.Speaker) string {
	switch s {
	case entities.SpeakerInterviewer:
		return "Interviewer"
	case entities.SpeakerCandidate:
		return "Candidate"
	default:
		return string(s)
	}
}

// ScoreLabel renders the final score in the unit of the session's scoring mode
func (d Document) ScoreLabel() string {
	if d.ScoringMode == entities.ScoringModeEvaluatorScore {
		max := entities.MaxEvaluationScore * float64(len(d.Questions))
		return fmt.Sprintf("%.1f / %.0f", d.Score, max)
	}
	return fmt.Sprintf("%.0f of %d answers passed", d.Score, len(d.Questions))
}

// Blocks flattens the document into the text flow consumed by exporters
func (d Document) Blocks() []Block {
	blocks := []Block{
		{StyleTitle, d.Title},
		{StyleLabel, "Candidate: " + d.Candidate.Name},
		{StyleLabel, "Email: " + d.Candidate.Email},
	}
	if d.Candidate.Role != "" {
		blocks = append(blocks, Block{StyleLabel, "Role: " + d.Candidate.Role})
	}
	blocks = append(blocks,
		Block{StyleLabel, "Topic: " + d.Topic},
		Block{StyleLabel, "Outcome: " + string(d.Status)},
		Block{StyleLabel, "Score: " + d.ScoreLabel()},
	)
	if !d.StartedAt.IsZero() {
		blocks = append(blocks, Block{StyleLabel, "Date: " + d.StartedAt.Format("2006-01-02 15:04")})
	}
	blocks = append(blocks, Block{StyleSpacer, ""}, Block{StyleHeading, "Questions"})
	for _, q := range d.Questions {
		blocks = append(blocks, Block{StyleBody, fmt.Sprintf("%d. %s", q.Number, q.Question)})
	}

	blocks = append(blocks, Block{StyleSpacer, ""}, Block{StyleHeading, "Transcript"})
	if len(d.Transcript) == 0 {
		blocks = append(blocks, Block{StyleBody, "No conversation was recorded."})
	}
	for _, line := range d.Transcript {
		text := fmt.Sprintf("%s: %s", line.Speaker, line.Text)
		if line.Score != nil {
			text += fmt.Sprintf(" (score %.1f)", *line.Score)
		}
		blocks = append(blocks, Block{StyleBody, text})
	}

	blocks = append(blocks, Block{StyleSpacer, ""}, Block{StyleHeading, "Reference Answers"})
	for _, q := range d.Questions {
		blocks = append(blocks,
			Block{StyleLabel, fmt.Sprintf("%d. %s", q.Number, q.Question)},
			Block{StyleBody, q.Reference},
		)
	}
	return blocks
}
