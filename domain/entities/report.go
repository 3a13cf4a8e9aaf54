package entities

import "time"

// Report is a generated interview report together with its rendered document
type Report struct {
	ID            string        `json:"id" bson:"_id"`
	SessionID     string        `json:"session_id" bson:"session_id"`
	UserID        string        `json:"user_id" bson:"user_id"`
	Candidate     Candidate     `json:"candidate" bson:"candidate"`
	Topic         string        `json:"topic" bson:"topic"`
	Status        SessionStatus `json:"status" bson:"status"`
	Score         float64       `json:"score" bson:"score"`
	QuestionCount int           `json:"question_count" bson:"question_count"`
	ContentType   string        `json:"content_type" bson:"content_type"`
	Content       []byte        `json:"-" bson:"content"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
}
