package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

const (
	// LeadInTicks is the countdown before the first question
	LeadInTicks = 10
	// ReadyTicks is the window after a question before the candidate starts answering
	ReadyTicks = 3
	// FeedbackDelay separates spoken feedback from the next question
	FeedbackDelay = 2 * time.Second
	// DefaultEvaluationTimeout bounds a single evaluator call
	DefaultEvaluationTimeout = 30 * time.Second

	eventBufferSize = 64
)

// Speech is the speech I/O the controller drives each turn
type Speech interface {
	Speak(ctx context.Context, text string, onSpeechEnd func()) error
	CancelSpeech()
	Listen(ctx context.Context, mic repositories.MediaStream, onTranscript func(text string)) error
	StopListening()
	CancelListening()
}

// Media owns the candidate's camera and microphone
type Media interface {
	Acquire(ctx context.Context) (repositories.MediaStream, error)
	Release()
}

// Countdown is a single live one-second-tick timer
type Countdown interface {
	Start(seconds int, onTick func(remaining int), onComplete func())
	Cancel()
}

// Config describes one interview
type Config struct {
	Topic             string
	Questions         []string
	ScoringMode       entities.ScoringMode
	EvaluationTimeout time.Duration
	FollowUp          bool
	Clock             clock.Clock
}

// Dependencies are the collaborators owned by the controller for the session
type Dependencies struct {
	Media     Media
	Speech    Speech
	Countdown Countdown
	Evaluator repositories.AnswerEvaluator
}

// NotificationKind classifies observer notifications
type NotificationKind string

const (
	NotifyState            NotificationKind = "state"
	NotifyCountdown        NotificationKind = "countdown"
	NotifyStatus           NotificationKind = "status_message"
	NotifySpeakingStart    NotificationKind = "speaking_start"
	NotifySpeakingEnd      NotificationKind = "speaking_end"
	NotifyStopConfirmation NotificationKind = "stop_confirmation"
	NotifyTerminated       NotificationKind = "terminated"
)

// Notification is delivered to the observer from the controller's run loop
type Notification struct {
	Kind      NotificationKind
	Session   entities.Session
	Message   string
	Remaining int
}

// Observer receives notifications. It runs on the control goroutine and must
// not block or call back into the controller synchronously.
type Observer func(Notification)

// Controller is the turn state machine for one interview. Every mutation of
// the session happens on the goroutine running Run; commands and collaborator
// callbacks are queued as events.
type Controller struct {
	media     Media
	speech    Speech
	countdown Countdown
	evaluator repositories.AnswerEvaluator
	clock     clock.Clock
	logger    *zap.Logger
	observer  Observer

	evaluationTimeout time.Duration
	followUp          bool

	events chan event
	done   chan struct{}

	// owned by the run loop
	ctx            context.Context
	session        *entities.Session
	mic            repositories.MediaStream
	gen            uint64
	speaking       speakPurpose
	confirmingStop bool
	textOnly       bool
	advance        *clock.Timer
	evalCancel     context.CancelFunc

	mu       sync.RWMutex
	snapshot entities.Session
	trace    []entities.SessionStatus
}

type speakPurpose int

const (
	speakNone speakPurpose = iota
	speakQuestion
	speakFeedback
)

// New creates an idle controller. Run must be started before any command.
func New(config Config, deps Dependencies, observer Observer, logger *zap.Logger) (*Controller, error) {
	if deps.Media == nil || deps.Speech == nil || deps.Countdown == nil || deps.Evaluator == nil {
		return nil, errors.New("media, speech, countdown and evaluator are required")
	}

	session, err := entities.NewSession(config.Topic, config.Questions, config.ScoringMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoQuestions, err)
	}

	timeout := config.EvaluationTimeout
	if timeout <= 0 {
		timeout = DefaultEvaluationTimeout
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}
	if observer == nil {
		observer = func(Notification) {}
	}

	c := &Controller{
		media:             deps.Media,
		speech:            deps.Speech,
		countdown:         deps.Countdown,
		evaluator:         deps.Evaluator,
		clock:             clk,
		logger:            logger.With(zap.String("sessionID", session.ID)),
		observer:          observer,
		evaluationTimeout: timeout,
		followUp:          config.FollowUp,
		events:            make(chan event, eventBufferSize),
		done:              make(chan struct{}),
		ctx:               context.Background(),
		session:           session,
		snapshot:          session.Snapshot(),
		trace:             []entities.SessionStatus{session.Status},
	}
	return c, nil
}

// Run processes events until the session reaches a terminal state or ctx is
// cancelled, in which case the session is stopped.
func (c *Controller) Run(ctx context.Context) {
	c.ctx = ctx
	defer close(c.done)

	c.logger.Info("Interview controller started",
		zap.String("topic", c.session.Topic),
		zap.Int("questions", len(c.session.Questions)),
		zap.String("scoringMode", string(c.session.ScoringMode)))

	for {
		select {
		case <-ctx.Done():
			c.terminate(entities.SessionStatusStopped)
			return
		case ev := <-c.events:
			c.handle(ev)
			if c.session.Status.IsTerminal() {
				return
			}
		}
	}
}

// Done is closed once the run loop has exited
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// SessionID returns the identifier of the controlled session
func (c *Controller) SessionID() string {
	return c.session.ID
}

// Snapshot returns a copy of the session as of the last processed event
func (c *Controller) Snapshot() entities.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Trace returns every status the session has been in, in order
func (c *Controller) Trace() []entities.SessionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]entities.SessionStatus(nil), c.trace...)
}

// Start acquires media and begins the lead-in. A device failure is returned
// and leaves the controller idle so the caller can retry.
func (c *Controller) Start(ctx context.Context) error {
	return c.request(func(reply chan error) event { return startCmd{ctx: ctx, reply: reply} })
}

// BeginAnswer is the candidate's explicit trigger to start listening
func (c *Controller) BeginAnswer() error {
	return c.request(func(reply chan error) event { return beginAnswerCmd{reply: reply} })
}

// FinishAnswer forces early finalization of the active listen session
func (c *Controller) FinishAnswer() error {
	return c.request(func(reply chan error) event { return finishAnswerCmd{reply: reply} })
}

// SubmitAnswer delivers a typed answer, used when speech recognition is not
// available
func (c *Controller) SubmitAnswer(text string) error {
	return c.request(func(reply chan error) event { return submitAnswerCmd{text: text, reply: reply} })
}

// ConfirmStop answers a pending stop confirmation
func (c *Controller) ConfirmStop(confirm bool) error {
	return c.request(func(reply chan error) event { return confirmStopCmd{confirm: confirm, reply: reply} })
}

// Stop ends the interview from any non-terminal state. Stopping an already
// terminated session is a no-op.
func (c *Controller) Stop() error {
	err := c.request(func(reply chan error) event { return stopCmd{reply: reply} })
	if errors.Is(err, domain.ErrSessionTerminated) {
		return nil
	}
	return err
}

func (c *Controller) request(build func(reply chan error) event) error {
	reply := make(chan error, 1)
	select {
	case c.events <- build(reply):
	case <-c.done:
		return domain.ErrSessionTerminated
	}

	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return domain.ErrSessionTerminated
		}
	}
}

// post queues a collaborator callback; it is dropped once the loop has exited
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
