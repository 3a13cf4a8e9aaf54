package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/arunika/interview/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Messages sent by the candidate's client
const (
	MessageTypeCandidate      MessageType = "candidate"
	MessageTypeSelectTopic    MessageType = "select_topic"
	MessageTypePermissions    MessageType = "permissions"
	MessageTypeStart          MessageType = "start"
	MessageTypeListeningStart MessageType = "listening_start"
	MessageTypeListeningEnd   MessageType = "listening_end"
	MessageTypeAnswerText     MessageType = "answer_text"
	MessageTypeStop           MessageType = "stop"
	MessageTypeConfirmStop    MessageType = "confirm_stop"
	MessageTypePing           MessageType = "ping"
)

// Messages pushed by the server
const (
	MessageTypeState            MessageType = "state"
	MessageTypeCountdown        MessageType = "countdown"
	MessageTypeStatusMessage    MessageType = "status_message"
	MessageTypeSpeakingStart    MessageType = "speaking_start"
	MessageTypeSpeakingEnd      MessageType = "speaking_end"
	MessageTypeStopConfirmation MessageType = "stop_confirmation"
	MessageTypeReportReady      MessageType = "report_ready"
	MessageTypeError            MessageType = "error"
	MessageTypePong             MessageType = "pong"
)

// Error codes carried by ErrorMessage
const (
	ErrorCodeInvalidMessage    = "invalid_message"
	ErrorCodeInvalidCandidate  = "invalid_candidate"
	ErrorCodeCandidateRequired = "candidate_required"
	ErrorCodeTopicRequired     = "topic_required"
	ErrorCodeTopicUnavailable  = "topic_unavailable"
	ErrorCodeBusy              = "busy"
	ErrorCodeDevice            = "device_error"
	ErrorCodeNotStarted        = "not_started"
	ErrorCodeRejected          = "rejected"
	ErrorCodeReportFailed      = "report_failed"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

// CandidateMessage carries the identity fields captured before the interview
type CandidateMessage struct {
	BaseMessage
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// SelectTopicMessage picks a catalog topic
type SelectTopicMessage struct {
	BaseMessage
	TopicID string `json:"topic_id"`
}

// PermissionsMessage confirms or cancels camera and microphone access
type PermissionsMessage struct {
	BaseMessage
	Camera     bool `json:"camera"`
	Microphone bool `json:"microphone"`
}

// StartMessage begins the interview. TextOnly skips server-side speech.
type StartMessage struct {
	BaseMessage
	TextOnly bool `json:"text_only,omitempty"`
}

// ControlMessage is a message without payload: listening_start,
// listening_end and stop
type ControlMessage struct {
	BaseMessage
}

// AnswerTextMessage submits a typed answer
type AnswerTextMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ConfirmStopMessage answers a stop confirmation prompt
type ConfirmStopMessage struct {
	BaseMessage
	Confirm bool `json:"confirm"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// StateMessage mirrors the interview session after every transition
type StateMessage struct {
	BaseMessage
	SessionID    string                 `json:"session_id"`
	Topic        string                 `json:"topic"`
	Status       entities.SessionStatus `json:"status"`
	CurrentIndex int                    `json:"current_index"`
	Total        int                    `json:"total_questions"`
	Score        float64                `json:"score"`
	Transcript   []entities.TurnEntry   `json:"transcript"`
}

// CountdownMessage reports a countdown tick
type CountdownMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Remaining int    `json:"remaining"`
}

// TextMessage carries a human readable line: status_message, speaking_start,
// speaking_end and stop_confirmation
type TextMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Text      string `json:"text,omitempty"`
}

// ReportReadyMessage points the client at the generated report
type ReportReadyMessage struct {
	BaseMessage
	SessionID string  `json:"session_id"`
	ReportID  string  `json:"report_id"`
	URL       string  `json:"url"`
	Score     float64 `json:"score"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage decodes and validates an inbound message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeCandidate:
		var msg CandidateMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid candidate message: %w", err)
		}
		if err := v.validateCandidate(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeSelectTopic:
		var msg SelectTopicMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid select_topic message: %w", err)
		}
		if strings.TrimSpace(msg.TopicID) == "" {
			return nil, fmt.Errorf("topic_id is required")
		}
		return &msg, nil

	case MessageTypePermissions:
		var msg PermissionsMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid permissions message: %w", err)
		}
		return &msg, nil

	case MessageTypeStart:
		var msg StartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid start message: %w", err)
		}
		return &msg, nil

	case MessageTypeListeningStart, MessageTypeListeningEnd, MessageTypeStop:
		var msg ControlMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid %s message: %w", base.Type, err)
		}
		return &msg, nil

	case MessageTypeAnswerText:
		var msg AnswerTextMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid answer_text message: %w", err)
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, fmt.Errorf("text is required")
		}
		return &msg, nil

	case MessageTypeConfirmStop:
		var msg ConfirmStopMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid confirm_stop message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func (v *MessageValidator) validateCandidate(msg *CandidateMessage) error {
	candidate := entities.Candidate{Name: msg.Name, Email: msg.Email, Role: msg.Role}
	return candidate.Validate()
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{BaseMessage: newBase(MessageTypePong), Data: data}
}

// CreateStateMessage snapshots the session for the client
func CreateStateMessage(s entities.Session) *StateMessage {
	transcript := s.Transcript
	if transcript == nil {
		transcript = []entities.TurnEntry{}
	}
	return &StateMessage{
		BaseMessage:  newBase(MessageTypeState),
		SessionID:    s.ID,
		Topic:        s.Topic,
		Status:       s.Status,
		CurrentIndex: s.CurrentIndex,
		Total:        len(s.Questions),
		Score:        s.Score,
		Transcript:   transcript,
	}
}

// CreateCountdownMessage creates a countdown tick message
func CreateCountdownMessage(sessionID string, remaining int) *CountdownMessage {
	return &CountdownMessage{BaseMessage: newBase(MessageTypeCountdown), SessionID: sessionID, Remaining: remaining}
}

// CreateTextMessage creates a message of a text-carrying type
func CreateTextMessage(t MessageType, sessionID, text string) *TextMessage {
	return &TextMessage{BaseMessage: newBase(t), SessionID: sessionID, Text: text}
}

// CreateReportReadyMessage announces a stored report
func CreateReportReadyMessage(report *entities.Report, url string) *ReportReadyMessage {
	return &ReportReadyMessage{
		BaseMessage: newBase(MessageTypeReportReady),
		SessionID:   report.SessionID,
		ReportID:    report.ID,
		URL:         url,
		Score:       report.Score,
	}
}
