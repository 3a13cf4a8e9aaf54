package websocket

import (
	"encoding/json"
	"testing"

	"github.com/satriahrh/arunika/interview/domain/entities"
)

func TestMessageValidator_ValidateMessage(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name     string
		message  string
		wantErr  bool
		wantType interface{}
	}{
		{
			name:     "valid candidate",
			message:  `{"type": "candidate", "name": "Ada Lovelace", "email": "ada@example.com"}`,
			wantType: &CandidateMessage{},
		},
		{
			name:    "candidate without email",
			message: `{"type": "candidate", "name": "Ada Lovelace"}`,
			wantErr: true,
		},
		{
			name:    "candidate with malformed email",
			message: `{"type": "candidate", "name": "Ada", "email": "not-an-email"}`,
			wantErr: true,
		},
		{
			name:     "valid select_topic",
			message:  `{"type": "select_topic", "topic_id": "arrays"}`,
			wantType: &SelectTopicMessage{},
		},
		{
			name:    "select_topic without topic",
			message: `{"type": "select_topic", "topic_id": "  "}`,
			wantErr: true,
		},
		{
			name:     "permissions",
			message:  `{"type": "permissions", "camera": true, "microphone": false}`,
			wantType: &PermissionsMessage{},
		},
		{
			name:     "start",
			message:  `{"type": "start", "text_only": true}`,
			wantType: &StartMessage{},
		},
		{
			name:     "listening_start",
			message:  `{"type": "listening_start"}`,
			wantType: &ControlMessage{},
		},
		{
			name:     "stop",
			message:  `{"type": "stop"}`,
			wantType: &ControlMessage{},
		},
		{
			name:     "answer_text",
			message:  `{"type": "answer_text", "text": "O of n"}`,
			wantType: &AnswerTextMessage{},
		},
		{
			name:    "empty answer_text",
			message: `{"type": "answer_text", "text": ""}`,
			wantErr: true,
		},
		{
			name:     "confirm_stop",
			message:  `{"type": "confirm_stop", "confirm": true}`,
			wantType: &ConfirmStopMessage{},
		},
		{
			name:     "ping",
			message:  `{"type": "ping", "data": "hello"}`,
			wantType: &PingMessage{},
		},
		{
			name:    "missing type",
			message: `{"name": "Ada"}`,
			wantErr: true,
		},
		{
			name:    "unsupported type",
			message: `{"type": "audio_chunk"}`,
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			message: `{"type": "ping"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			switch tt.wantType.(type) {
			case *CandidateMessage:
				msg, ok := result.(*CandidateMessage)
				if !ok {
					t.Fatalf("Expected *CandidateMessage, got %T", result)
				}
				if msg.Email != "ada@example.com" {
					t.Errorf("Expected email ada@example.com, got %s", msg.Email)
				}
			case *SelectTopicMessage:
				if _, ok := result.(*SelectTopicMessage); !ok {
					t.Errorf("Expected *SelectTopicMessage, got %T", result)
				}
			case *PermissionsMessage:
				msg, ok := result.(*PermissionsMessage)
				if !ok {
					t.Fatalf("Expected *PermissionsMessage, got %T", result)
				}
				if !msg.Camera || msg.Microphone {
					t.Errorf("Expected camera only, got %+v", msg)
				}
			case *StartMessage:
				msg, ok := result.(*StartMessage)
				if !ok {
					t.Fatalf("Expected *StartMessage, got %T", result)
				}
				if !msg.TextOnly {
					t.Error("Expected text_only to be decoded")
				}
			case *ControlMessage:
				if _, ok := result.(*ControlMessage); !ok {
					t.Errorf("Expected *ControlMessage, got %T", result)
				}
			case *AnswerTextMessage:
				msg, ok := result.(*AnswerTextMessage)
				if !ok {
					t.Fatalf("Expected *AnswerTextMessage, got %T", result)
				}
				if msg.Text != "O of n" {
					t.Errorf("Expected text 'O of n', got %q", msg.Text)
				}
			case *ConfirmStopMessage:
				msg, ok := result.(*ConfirmStopMessage)
				if !ok {
					t.Fatalf("Expected *ConfirmStopMessage, got %T", result)
				}
				if !msg.Confirm {
					t.Error("Expected confirm to be true")
				}
			case *PingMessage:
				msg, ok := result.(*PingMessage)
				if !ok {
					t.Fatalf("Expected *PingMessage, got %T", result)
				}
				if msg.Data != "hello" {
					t.Errorf("Expected data hello, got %s", msg.Data)
				}
			}
		})
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage(ErrorCodeBusy, "Another interview is in progress", "")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal error message: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal error message: %v", err)
	}
	if decoded["type"] != "error" {
		t.Errorf("Expected type error, got %v", decoded["type"])
	}
	if decoded["error_code"] != ErrorCodeBusy {
		t.Errorf("Expected error_code %s, got %v", ErrorCodeBusy, decoded["error_code"])
	}
	if _, ok := decoded["details"]; ok {
		t.Error("Expected empty details to be omitted")
	}
	if decoded["timestamp"] == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestCreateStateMessage(t *testing.T) {
	s, err := entities.NewSession("Arrays", []string{"What is Big-O?", "Reverse an array"}, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	msg := CreateStateMessage(s.Snapshot())
	if msg.Type != MessageTypeState {
		t.Errorf("Expected type %s, got %s", MessageTypeState, msg.Type)
	}
	if msg.Total != 2 {
		t.Errorf("Expected 2 questions, got %d", msg.Total)
	}
	if msg.Status != entities.SessionStatusIdle {
		t.Errorf("Expected status idle, got %s", msg.Status)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal state message: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal state message: %v", err)
	}
	transcript, ok := decoded["transcript"].([]interface{})
	if !ok {
		t.Fatalf("Expected transcript array, got %T", decoded["transcript"])
	}
	if len(transcript) != 0 {
		t.Errorf("Expected empty transcript, got %d entries", len(transcript))
	}
}

func TestCreateReportReadyMessage(t *testing.T) {
	report := &entities.Report{ID: "rep-1", SessionID: "sess-1", Score: 2}
	msg := CreateReportReadyMessage(report, "/api/v1/reports/rep-1")

	if msg.Type != MessageTypeReportReady {
		t.Errorf("Expected type %s, got %s", MessageTypeReportReady, msg.Type)
	}
	if msg.ReportID != "rep-1" || msg.SessionID != "sess-1" {
		t.Errorf("Expected report rep-1 for session sess-1, got %+v", msg)
	}
	if msg.URL != "/api/v1/reports/rep-1" {
		t.Errorf("Expected URL /api/v1/reports/rep-1, got %s", msg.URL)
	}
	if msg.Score != 2 {
		t.Errorf("Expected score 2, got %v", msg.Score)
	}
}

func TestCreateTextMessage(t *testing.T) {
	msg := CreateTextMessage(MessageTypeSpeakingStart, "sess-1", "What is Big-O?")
	if msg.Type != MessageTypeSpeakingStart {
		t.Errorf("Expected type %s, got %s", MessageTypeSpeakingStart, msg.Type)
	}
	if msg.Text != "What is Big-O?" {
		t.Errorf("Expected question text, got %q", msg.Text)
	}
}
