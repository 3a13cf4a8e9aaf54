package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/arunika/interview/adapters"
	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
	"github.com/satriahrh/arunika/interview/internal/countdown"
)

const waitTimeout = 3 * time.Second

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) since(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls[n:]...)
}

func (l *callLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type fakeSpeech struct {
	log *callLog

	mu           sync.Mutex
	spoken       []string
	speaking     bool
	listening    bool
	violations   int
	onTranscript func(string)
	speakErr     error
	listenErr    error
}

func (s *fakeSpeech) Speak(ctx context.Context, text string, onSpeechEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.speakErr != nil {
		s.spoken = append(s.spoken, text)
		return s.speakErr
	}
	if s.listening {
		s.violations++
	}
	s.spoken = append(s.spoken, text)
	s.speaking = true
	go func() {
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
		onSpeechEnd()
	}()
	return nil
}

func (s *fakeSpeech) CancelSpeech() {
	s.log.add("speech.cancel")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = false
}

func (s *fakeSpeech) Listen(ctx context.Context, mic repositories.MediaStream, onTranscript func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listenErr != nil {
		return s.listenErr
	}
	if s.speaking {
		s.violations++
	}
	s.listening = true
	s.onTranscript = onTranscript
	return nil
}

func (s *fakeSpeech) StopListening() {
	s.say("")
}

func (s *fakeSpeech) CancelListening() {
	s.log.add("speech.cancel_listening")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = false
	s.onTranscript = nil
}

// say finalizes the active listen session with text
func (s *fakeSpeech) say(text string) {
	s.mu.Lock()
	cb := s.onTranscript
	s.onTranscript = nil
	s.listening = false
	s.mu.Unlock()
	if cb != nil {
		cb(text)
	}
}

func (s *fakeSpeech) spokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type fakeMedia struct {
	log     *callLog
	devices *adapters.MemoryMediaDevices

	mu       sync.Mutex
	err      error
	releases int
}

func (m *fakeMedia) Acquire(ctx context.Context) (repositories.MediaStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.devices.Open(ctx, repositories.MediaConstraints{Camera: true, Microphone: true})
}

func (m *fakeMedia) Release() {
	m.log.add("media.release")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
}

type loggingCountdown struct {
	*countdown.Timer
	log *callLog
}

func (c loggingCountdown) Cancel() {
	c.log.add("countdown.cancel")
	c.Timer.Cancel()
}

type fakeEvaluator struct {
	mu      sync.Mutex
	results map[string]entities.EvaluationResult
	calls   int
	block   bool
	aborted chan struct{}
}

func (e *fakeEvaluator) Evaluate(ctx context.Context, question, answer string) entities.EvaluationResult {
	e.mu.Lock()
	e.calls++
	block := e.block
	result, ok := e.results[answer]
	e.mu.Unlock()

	if block {
		<-ctx.Done()
		if e.aborted != nil {
			close(e.aborted)
		}
		return entities.NeutralEvaluation()
	}
	if !ok {
		return entities.NeutralEvaluation()
	}
	return result
}

func (e *fakeEvaluator) ModelAnswer(ctx context.Context, question string) string {
	return "Reference for " + question
}

func (e *fakeEvaluator) FollowUp(ctx context.Context, question, answer string) (string, bool) {
	return "How would you test it?", true
}

func (e *fakeEvaluator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type harness struct {
	t         *testing.T
	ctrl      *Controller
	clock     *clock.Mock
	speech    *fakeSpeech
	media     *fakeMedia
	evaluator *fakeEvaluator
	log       *callLog

	mu            sync.Mutex
	notifications []Notification
}

func newHarness(t *testing.T, config Config) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	log := &callLog{}
	mock := clock.NewMock()

	h := &harness{
		t:         t,
		clock:     mock,
		speech:    &fakeSpeech{log: log},
		media:     &fakeMedia{log: log, devices: adapters.NewMemoryMediaDevices(logger)},
		evaluator: &fakeEvaluator{results: map[string]entities.EvaluationResult{}},
		log:       log,
	}

	config.Clock = mock
	ctrl, err := New(config, Dependencies{
		Media:     h.media,
		Speech:    h.speech,
		Countdown: loggingCountdown{Timer: countdown.New(mock, logger), log: log},
		Evaluator: h.evaluator,
	}, h.observe, logger)
	if err != nil {
		t.Fatalf("Failed to create controller: %v", err)
	}
	h.ctrl = ctrl

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		<-ctrl.Done()
	})
	go ctrl.Run(ctx)
	return h
}

func (h *harness) observe(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifications = append(h.notifications, n)
}

func (h *harness) notificationsOf(kind NotificationKind) []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Notification
	for _, n := range h.notifications {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// waitFor polls the snapshot, advancing the mock clock one tick per poll
func (h *harness) waitFor(desc string, cond func(s entities.Session) bool) entities.Session {
	h.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if s := h.ctrl.Snapshot(); cond(s) {
			return s
		}
		h.clock.Add(time.Second)
		time.Sleep(2 * time.Millisecond)
	}
	h.t.Fatalf("Timed out waiting for %s; last state %s", desc, h.ctrl.Snapshot().Status)
	return entities.Session{}
}

// waitQuietly polls without moving the clock
func (h *harness) waitQuietly(desc string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	h.t.Fatalf("Timed out waiting for %s", desc)
}

func (h *harness) start() {
	h.t.Helper()
	if err := h.ctrl.Start(context.Background()); err != nil {
		h.t.Fatalf("Start failed: %v", err)
	}
}

func (h *harness) awaitQuestion(index int) entities.Session {
	h.t.Helper()
	return h.waitFor("awaiting response", func(s entities.Session) bool {
		return s.Status == entities.SessionStatusAwaitingResponse && s.CurrentIndex == index && s.HasPending()
	})
}

// answer speaks text as the candidate
func (h *harness) answer(text string) {
	h.t.Helper()
	if err := h.ctrl.BeginAnswer(); err != nil {
		h.t.Fatalf("BeginAnswer failed: %v", err)
	}
	h.speech.say(text)
}

func (h *harness) waitDone() entities.Session {
	h.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		select {
		case <-h.ctrl.Done():
			return h.ctrl.Snapshot()
		default:
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("Timed out waiting for termination; last state %s", h.ctrl.Snapshot().Status)
		}
		h.clock.Add(time.Second)
		time.Sleep(2 * time.Millisecond)
	}
}

func TestArraysScenario(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"What is Big-O?", "Reverse an array"}})
	h.evaluator.results["O of n"] = entities.EvaluationResult{Score: 8, Passed: true, Feedback: "Correct."}

	h.start()
	h.awaitQuestion(0)
	h.answer("O of n")

	h.awaitQuestion(1)
	h.answer("skip")

	final := h.waitDone()

	if final.Status != entities.SessionStatusCompleted {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusCompleted, final.Status)
	}
	if final.CurrentIndex != 1 {
		t.Errorf("Expected currentIndex 1, got %d", final.CurrentIndex)
	}
	if got := final.FeedbackCount(); got != 1 {
		t.Errorf("Expected exactly one feedback entry, got %d", got)
	}
	if h.evaluator.callCount() != 1 {
		t.Errorf("Expected one evaluation, got %d", h.evaluator.callCount())
	}
	if final.Score != 1 {
		t.Errorf("Expected score 1, got %v", final.Score)
	}
	if final.HasPending() {
		t.Error("Expected no pending entry after completion")
	}

	last := final.Transcript[len(final.Transcript)-1]
	if last.Speaker != entities.SpeakerCandidate || last.Text != "skip" {
		t.Errorf("Expected final entry to be the skip command, got %+v", last)
	}
}

func TestRepeatScenario(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"What is Big-O?", "Reverse an array"}})

	h.start()
	h.awaitQuestion(0)
	h.answer("repeat")

	s := h.waitFor("second ask", func(s entities.Session) bool {
		return s.Status == entities.SessionStatusAwaitingResponse && len(s.Transcript) == 4
	})

	if s.CurrentIndex != 0 {
		t.Errorf("Expected currentIndex 0, got %d", s.CurrentIndex)
	}

	var questions []string
	for _, e := range s.Transcript {
		if e.Score != nil {
			t.Errorf("Expected no scored entry, got %+v", e)
		}
		if e.Speaker == entities.SpeakerInterviewer {
			questions = append(questions, e.Text)
		}
	}
	if len(questions) != 2 || questions[0] != questions[1] || questions[0] != "What is Big-O?" {
		t.Errorf("Expected two identical interviewer entries, got %v", questions)
	}

	spoken := h.speech.spokenTexts()
	if len(spoken) != 2 || spoken[0] != spoken[1] {
		t.Errorf("Expected the question spoken twice, got %v", spoken)
	}
	if h.evaluator.callCount() != 0 {
		t.Errorf("Expected no evaluation, got %d", h.evaluator.callCount())
	}
	if s.Score != 0 {
		t.Errorf("Expected score 0, got %v", s.Score)
	}
}

func TestScoreAccumulation(t *testing.T) {
	results := map[string]entities.EvaluationResult{
		"right": {Score: 8, Passed: true, Feedback: "Good."},
		"wrong": {Score: 3, Passed: false, Feedback: "Not quite."},
		"great": {Score: 9, Passed: true, Feedback: "Excellent."},
	}

	tests := []struct {
		mode entities.ScoringMode
		want float64
	}{
		{entities.ScoringModePassCount, 2},
		{entities.ScoringModeEvaluatorScore, 20},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			h := newHarness(t, Config{
				Topic:       "Mixed",
				Questions:   []string{"q1", "q2", "q3", "q4"},
				ScoringMode: tt.mode,
			})
			for k, v := range results {
				h.evaluator.results[k] = v
			}

			h.start()
			h.awaitQuestion(0)
			h.answer("right")

			h.awaitQuestion(1)
			h.answer("repeat")
			h.waitFor("repeated question", func(s entities.Session) bool {
				return s.Status == entities.SessionStatusAwaitingResponse && s.Transcript[len(s.Transcript)-2].Kind == entities.EntryKindQuestion && s.CurrentIndex == 1 && countQuestions(s, 1) == 2
			})
			h.answer("wrong")

			h.awaitQuestion(2)
			h.answer("skip")

			h.awaitQuestion(3)
			h.answer("great")

			final := h.waitDone()
			if final.Score != tt.want {
				t.Errorf("Expected score %v, got %v", tt.want, final.Score)
			}
			if final.FeedbackCount() != 3 {
				t.Errorf("Expected 3 feedback entries, got %d", final.FeedbackCount())
			}
		})
	}
}

func countQuestions(s entities.Session, index int) int {
	n := 0
	for _, e := range s.Transcript {
		if e.Kind == entities.EntryKindQuestion && e.QuestionIndex == index {
			n++
		}
	}
	return n
}

func TestEvaluatorFailureResilience(t *testing.T) {
	questions := []string{"q1", "q2", "q3"}
	h := newHarness(t, Config{Topic: "Failing", Questions: questions})

	h.start()
	for i := range questions {
		h.awaitQuestion(i)
		h.answer("some answer")
	}

	final := h.waitDone()
	if final.Status != entities.SessionStatusCompleted {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusCompleted, final.Status)
	}
	if final.Score != 0 {
		t.Errorf("Expected default score 0, got %v", final.Score)
	}
	// question, answer and feedback per evaluated turn
	if len(final.Transcript) != len(questions)*3 {
		t.Errorf("Expected %d transcript entries, got %d", len(questions)*3, len(final.Transcript))
	}
	for _, e := range final.Transcript {
		if e.Kind == entities.EntryKindFeedback && !strings.HasPrefix(e.Text, entities.NeutralFeedback) {
			t.Errorf("Expected neutral feedback, got %q", e.Text)
		}
	}
}

func TestEvaluationTimeoutUsesDefault(t *testing.T) {
	h := newHarness(t, Config{Topic: "Slow", Questions: []string{"q1"}, EvaluationTimeout: 20 * time.Millisecond})
	h.evaluator.block = true

	h.start()
	h.awaitQuestion(0)
	h.answer("an answer")

	final := h.waitDone()
	if final.Status != entities.SessionStatusCompleted {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusCompleted, final.Status)
	}
	if final.FeedbackCount() != 1 {
		t.Errorf("Expected one feedback entry, got %d", final.FeedbackCount())
	}
}

func TestTurnMonotonicityAndMutualExclusion(t *testing.T) {
	h := newHarness(t, Config{Topic: "Trace", Questions: []string{"q1", "q2", "q3"}})
	h.evaluator.results["right"] = entities.EvaluationResult{Score: 7, Passed: true, Feedback: "Fine."}

	h.start()
	h.awaitQuestion(0)
	h.answer("again please")
	h.waitFor("repeat", func(s entities.Session) bool { return countQuestions(s, 0) == 2 && s.HasPending() })
	h.answer("right")
	h.awaitQuestion(1)
	h.answer("skip")
	h.awaitQuestion(2)
	h.answer("right")
	h.waitDone()

	prev := 0
	for _, n := range h.notificationsOf(NotifyState) {
		step := n.Session.CurrentIndex - prev
		if step != 0 && step != 1 {
			t.Errorf("Expected index to change by 0 or 1, went %d -> %d", prev, n.Session.CurrentIndex)
		}
		prev = n.Session.CurrentIndex
	}

	trace := h.ctrl.Trace()
	for i := 1; i < len(trace); i++ {
		if !CanTransition(trace[i-1], trace[i]) {
			t.Errorf("Illegal transition %s -> %s", trace[i-1], trace[i])
		}
	}
	if trace[len(trace)-1] != entities.SessionStatusCompleted {
		t.Errorf("Expected trace to end in %s, got %s", entities.SessionStatusCompleted, trace[len(trace)-1])
	}

	h.speech.mu.Lock()
	violations := h.speech.violations
	h.speech.mu.Unlock()
	if violations != 0 {
		t.Errorf("Expected speaking and listening never to overlap, got %d violations", violations)
	}
}

func TestStartBlockedByDevice(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"q1"}})
	h.media.err = domain.ErrDevice

	if err := h.ctrl.Start(context.Background()); !errors.Is(err, domain.ErrDevice) {
		t.Fatalf("Expected ErrDevice, got %v", err)
	}
	if s := h.ctrl.Snapshot(); s.Status != entities.SessionStatusIdle {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusIdle, s.Status)
	}

	h.media.mu.Lock()
	h.media.err = nil
	h.media.mu.Unlock()

	h.start()
	if err := h.ctrl.Start(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on second start, got %v", err)
	}
}

func TestLeadInPrecedesFirstQuestion(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"q1"}})
	h.start()

	if s := h.ctrl.Snapshot(); s.Status != entities.SessionStatusLeadIn {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusLeadIn, s.Status)
	}
	time.Sleep(20 * time.Millisecond)
	if spoken := h.speech.spokenTexts(); len(spoken) != 0 {
		t.Errorf("Expected nothing spoken during lead-in, got %v", spoken)
	}

	h.awaitQuestion(0)
	if len(h.notificationsOf(NotifyCountdown)) == 0 {
		t.Error("Expected lead-in countdown notifications")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"q1", "q2"}})
	h.start()
	h.awaitQuestion(0)

	mark := h.log.len()
	if err := h.ctrl.Stop(); err != nil {
		t.Fatalf("First stop failed: %v", err)
	}
	if err := h.ctrl.Stop(); err != nil {
		t.Fatalf("Second stop failed: %v", err)
	}

	want := []string{"countdown.cancel", "speech.cancel", "speech.cancel_listening", "media.release"}
	got := h.log.since(mark)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected teardown order %v, got %v", want, got)
	}

	final := h.ctrl.Snapshot()
	if final.Status != entities.SessionStatusStopped {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusStopped, final.Status)
	}
	if final.HasPending() {
		t.Error("Expected pending entry to be dropped")
	}
	h.media.mu.Lock()
	releases := h.media.releases
	h.media.mu.Unlock()
	if releases != 1 {
		t.Errorf("Expected one media release, got %d", releases)
	}
	if n := len(h.notificationsOf(NotifyTerminated)); n != 1 {
		t.Errorf("Expected one termination notification, got %d", n)
	}
	if err := h.ctrl.BeginAnswer(); !errors.Is(err, domain.ErrSessionTerminated) {
		t.Errorf("Expected ErrSessionTerminated after stop, got %v", err)
	}
}

func TestStopCancelsPendingEvaluation(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"q1"}, EvaluationTimeout: time.Minute})
	h.evaluator.block = true
	h.evaluator.aborted = make(chan struct{})

	h.start()
	h.awaitQuestion(0)
	h.answer("an answer")
	h.waitQuietly("evaluation", func() bool { return h.evaluator.callCount() == 1 })

	h.ctrl.Stop()

	select {
	case <-h.evaluator.aborted:
	case <-time.After(waitTimeout):
		t.Fatal("Expected evaluation context to be cancelled")
	}
	if s := h.ctrl.Snapshot(); s.FeedbackCount() != 0 {
		t.Errorf("Expected no feedback after stop, got %d", s.FeedbackCount())
	}
}

func TestStopCancelsPendingAdvance(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"q1", "q2"}})
	h.evaluator.results["O of n"] = entities.EvaluationResult{Score: 8, Passed: true, Feedback: "Correct."}

	h.start()
	h.awaitQuestion(0)
	h.answer("O of n")

	// question end, then feedback end
	h.waitQuietly("feedback spoken", func() bool { return len(h.notificationsOf(NotifySpeakingEnd)) == 2 })

	if err := h.ctrl.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	h.clock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)

	if spoken := h.speech.spokenTexts(); len(spoken) != 2 {
		t.Errorf("Expected question and feedback only, got %v", spoken)
	}
	if s := h.ctrl.Snapshot(); s.CurrentIndex != 0 || s.Status != entities.SessionStatusStopped {
		t.Errorf("Expected stopped at index 0, got %s at %d", s.Status, s.CurrentIndex)
	}
}

func TestSpokenStopNeedsConfirmation(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"q1"}})
	h.start()
	h.awaitQuestion(0)

	h.answer("I want to stop")
	h.waitQuietly("confirmation prompt", func() bool { return len(h.notificationsOf(NotifyStopConfirmation)) == 1 })

	if err := h.ctrl.BeginAnswer(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Expected answering to be blocked while confirming, got %v", err)
	}

	if err := h.ctrl.ConfirmStop(false); err != nil {
		t.Fatalf("Decline failed: %v", err)
	}
	s := h.ctrl.Snapshot()
	if s.Status != entities.SessionStatusAwaitingResponse || !s.HasPending() {
		t.Errorf("Expected fresh pending entry after decline, got %s pending=%v", s.Status, s.HasPending())
	}

	h.answer("end")
	h.waitQuietly("second confirmation", func() bool { return len(h.notificationsOf(NotifyStopConfirmation)) == 2 })
	if err := h.ctrl.ConfirmStop(true); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	final := h.waitDone()
	if final.Status != entities.SessionStatusStopped {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusStopped, final.Status)
	}
	if h.evaluator.callCount() != 0 {
		t.Errorf("Expected control phrases never to be evaluated, got %d calls", h.evaluator.callCount())
	}
}

func TestEmptyTranscriptReturnsToAwaiting(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"q1"}})
	h.start()
	h.awaitQuestion(0)

	h.answer("   ")
	h.waitQuietly("retry message", func() bool {
		for _, n := range h.notificationsOf(NotifyStatus) {
			if strings.Contains(n.Message, "didn't catch") {
				return true
			}
		}
		return false
	})

	s := h.ctrl.Snapshot()
	if s.Status != entities.SessionStatusAwaitingResponse || !s.HasPending() {
		t.Errorf("Expected awaiting response with pending entry, got %s", s.Status)
	}
	if h.evaluator.callCount() != 0 {
		t.Errorf("Expected no evaluation of silence, got %d", h.evaluator.callCount())
	}
}

func TestTextOnlyDegradedMode(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"What is Big-O?"}, FollowUp: true})
	h.speech.speakErr = domain.ErrUnsupportedCapability
	h.speech.listenErr = domain.ErrUnsupportedCapability
	h.evaluator.results["O of n"] = entities.EvaluationResult{Score: 8, Passed: true, Feedback: "Correct.", Improvement: "Mention worst case."}

	h.start()
	h.awaitQuestion(0)

	if err := h.ctrl.BeginAnswer(); err != nil {
		t.Fatalf("BeginAnswer failed: %v", err)
	}
	if err := h.ctrl.SubmitAnswer("O of n"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	final := h.waitDone()
	if final.Status != entities.SessionStatusCompleted {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusCompleted, final.Status)
	}

	messages := h.notificationsOf(NotifyStatus)
	if len(messages) < 2 {
		t.Errorf("Expected degraded-mode status messages, got %d", len(messages))
	}

	feedback := final.Transcript[len(final.Transcript)-1]
	if !strings.Contains(feedback.Text, "Mention worst case.") || !strings.Contains(feedback.Text, "How would you test it?") {
		t.Errorf("Expected improvement and follow-up in feedback, got %q", feedback.Text)
	}
}

func TestSubmitAnswerWhileAwaiting(t *testing.T) {
	h := newHarness(t, Config{Topic: "Arrays", Questions: []string{"q1"}})
	h.start()
	h.awaitQuestion(0)

	if err := h.ctrl.SubmitAnswer("skip"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	final := h.waitDone()
	if final.Status != entities.SessionStatusCompleted {
		t.Errorf("Expected status %s, got %s", entities.SessionStatusCompleted, final.Status)
	}
}

func TestNewRejectsEmptyQuestions(t *testing.T) {
	_, err := New(Config{Topic: "Empty"}, Dependencies{
		Media:     &fakeMedia{},
		Speech:    &fakeSpeech{},
		Countdown: countdown.New(clock.NewMock(), zaptest.NewLogger(t)),
		Evaluator: &fakeEvaluator{},
	}, nil, zaptest.NewLogger(t))
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Errorf("Expected ErrNoQuestions, got %v", err)
	}
}
