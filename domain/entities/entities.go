package entities

import (
	"errors"
	"net/mail"
	"strings"
)

// Candidate holds the identity fields captured before the interview starts
type Candidate struct {
	UserID string `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Name   string `json:"name" bson:"name"`
	Email  string `json:"email" bson:"email"`
	Role   string `json:"role,omitempty" bson:"role,omitempty"`
}

// AnonymousUserID tags reports whose user could not be resolved
const AnonymousUserID = "anonymous"

// Topic is one selectable entry of the question catalog
type Topic struct {
	ID        string   `json:"id" yaml:"id" bson:"_id"`
	Topic     string   `json:"topic" yaml:"topic" bson:"topic"`
	Category  string   `json:"category" yaml:"category" bson:"category"`
	Questions []string `json:"questions" yaml:"questions" bson:"questions"`
}

// Domain validation methods
func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if c.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return errors.New("email is invalid")
	}
	return nil
}

// Selectable reports whether the topic can start an interview
func (t *Topic) Selectable() bool {
	return len(t.Questions) > 0
}
