package main

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/usecase/interview"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	for _, name := range []string{"serve", "practice", "topics", "smoke"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %s, got %v (%v)", name, cmd, err)
		}
	}
	if root.PersistentFlags().Lookup("debug") == nil {
		t.Error("Expected persistent --debug flag")
	}
}

func TestIsYes(t *testing.T) {
	tests := map[string]bool{
		"yes":     true,
		"Y":       true,
		"confirm": true,
		"no":      false,
		"keep":    false,
	}
	for input, want := range tests {
		if got := isYes(input); got != want {
			t.Errorf("isYes(%q): expected %v, got %v", input, want, got)
		}
	}
}

func TestExtensionFor(t *testing.T) {
	if ext := extensionFor("application/pdf"); ext != ".pdf" {
		t.Errorf("Expected .pdf, got %s", ext)
	}
	if ext := extensionFor("text/plain; charset=utf-8"); ext != ".txt" {
		t.Errorf("Expected .txt, got %s", ext)
	}
}

func TestConsoleObserver(t *testing.T) {
	var out bytes.Buffer
	var confirming atomic.Bool
	console := &consoleObserver{out: &out, confirming: &confirming}

	console.observe(interview.Notification{Kind: interview.NotifySpeakingStart, Message: "What is Big-O?"})
	console.observe(interview.Notification{Kind: interview.NotifyStopConfirmation, Message: "End the interview?"})
	if !confirming.Load() {
		t.Error("Expected stop confirmation to switch input to confirm mode")
	}

	console.observe(interview.Notification{
		Kind:    interview.NotifyState,
		Session: entities.Session{Status: entities.SessionStatusAwaitingResponse},
	})
	if confirming.Load() {
		t.Error("Expected awaiting response to leave confirm mode")
	}

	printed := out.String()
	if !strings.Contains(printed, "Interviewer: What is Big-O?") {
		t.Errorf("Expected question to be printed, got %q", printed)
	}
	if !strings.Contains(printed, "End the interview? (yes/no)") {
		t.Errorf("Expected confirmation prompt, got %q", printed)
	}
}
