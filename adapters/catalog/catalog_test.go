package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/arunika/interview/domain"
)

func TestHTTPCatalogListTopics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "topic": "Arrays", "category": "DS", "questions": ["What is Big-O?", "Reverse an array"]},
			{"id": "2", "topic": "Broken", "category": "DS", "questions": "not a list"},
			{"id": "3", "topic": "Missing", "category": "DS"}
		]`))
	}))
	defer server.Close()

	c, err := NewHTTPCatalog(HTTPConfig{URL: server.URL, Token: "secret"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create catalog: %v", err)
	}

	topics, err := c.ListTopics(context.Background())
	if err != nil {
		t.Fatalf("ListTopics failed: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("Expected 3 topics, got %d", len(topics))
	}
	if topics[0].ID != "1" || len(topics[0].Questions) != 2 {
		t.Errorf("Expected first topic with 2 questions, got %+v", topics[0])
	}
	for _, topic := range topics[1:] {
		if topic.Questions == nil || len(topic.Questions) != 0 {
			t.Errorf("Expected empty question list for %s, got %v", topic.Topic, topic.Questions)
		}
		if topic.Selectable() {
			t.Errorf("Expected %s not to be selectable", topic.Topic)
		}
	}
}

func TestHTTPCatalogInvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"scalar", `"hello"`},
		{"object without list", `{"message": "ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewHTTPCatalog(HTTPConfig{URL: server.URL}, zaptest.NewLogger(t))
			topics, err := c.ListTopics(context.Background())
			if !errors.Is(err, domain.ErrInvalidCatalog) {
				t.Errorf("Expected ErrInvalidCatalog, got %v", err)
			}
			if topics == nil || len(topics) != 0 {
				t.Errorf("Expected empty topic list, got %v", topics)
			}
		})
	}
}

func TestHTTPCatalogWrappedList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"id": "a", "topic": "Arrays", "questions": ["q"]}]}`))
	}))
	defer server.Close()

	c, _ := NewHTTPCatalog(HTTPConfig{URL: server.URL}, zaptest.NewLogger(t))
	topics, err := c.ListTopics(context.Background())
	if err != nil || len(topics) != 1 {
		t.Errorf("Expected one topic, got %v (%v)", topics, err)
	}
}

func TestFileCatalog(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/packs/arrays.yaml", []byte(`
topics:
  - id: arrays
    topic: Arrays
    category: Data Structures
    questions:
      - What is Big-O?
      - Reverse an array
`), 0644)

	c := NewFileCatalog(fs, "/packs/arrays.yaml", zaptest.NewLogger(t))
	topics, err := c.ListTopics(context.Background())
	if err != nil {
		t.Fatalf("ListTopics failed: %v", err)
	}
	if len(topics) != 1 || topics[0].Topic != "Arrays" || len(topics[0].Questions) != 2 {
		t.Errorf("Unexpected topics: %+v", topics)
	}

	missing := NewFileCatalog(fs, "/packs/missing.yaml", zaptest.NewLogger(t))
	if _, err := missing.ListTopics(context.Background()); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseYAMLInvalid(t *testing.T) {
	if _, err := ParseYAML([]byte("just a string")); !errors.Is(err, domain.ErrInvalidCatalog) {
		t.Errorf("Expected ErrInvalidCatalog, got %v", err)
	}
}

func TestBuiltinCatalog(t *testing.T) {
	topics, _ := BuiltinCatalog{}.ListTopics(context.Background())
	if len(topics) == 0 {
		t.Fatal("Expected built-in topics")
	}
	topics[0].Questions[0] = "mutated"

	again, _ := BuiltinCatalog{}.ListTopics(context.Background())
	if again[0].Questions[0] == "mutated" {
		t.Error("Expected built-in topics to be copied")
	}
}
