package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
)

type event interface{}

// commands
type (
	startCmd struct {
		ctx   context.Context
		reply chan error
	}
	beginAnswerCmd  struct{ reply chan error }
	finishAnswerCmd struct{ reply chan error }
	submitAnswerCmd struct {
		text  string
		reply chan error
	}
	confirmStopCmd struct {
		confirm bool
		reply   chan error
	}
	stopCmd struct{ reply chan error }
)

// collaborator callbacks, tagged with the generation they were issued in
type (
	leadInTick struct {
		gen       uint64
		remaining int
	}
	leadInDone  struct{ gen uint64 }
	speechEnded struct{ gen uint64 }
	readyTick   struct {
		gen       uint64
		remaining int
	}
	readyDone        struct{ gen uint64 }
	transcriptResult struct {
		gen  uint64
		text string
	}
	evaluationDone struct {
		gen      uint64
		result   entities.EvaluationResult
		followUp string
	}
	advanceDue struct{ gen uint64 }
)

var transitions = map[entities.SessionStatus][]entities.SessionStatus{
	entities.SessionStatusIdle:             {entities.SessionStatusLeadIn},
	entities.SessionStatusLeadIn:           {entities.SessionStatusSpeaking},
	entities.SessionStatusSpeaking:         {entities.SessionStatusAwaitingResponse, entities.SessionStatusSpeaking, entities.SessionStatusCompleted},
	entities.SessionStatusAwaitingResponse: {entities.SessionStatusListening, entities.SessionStatusAwaitingResponse},
	entities.SessionStatusListening:        {entities.SessionStatusEvaluating, entities.SessionStatusSpeaking, entities.SessionStatusAwaitingResponse, entities.SessionStatusCompleted},
	entities.SessionStatusEvaluating:       {entities.SessionStatusSpeaking},
}

// CanTransition reports whether the state machine allows from -> to. Stopped is
// reachable from every non-terminal state.
func CanTransition(from, to entities.SessionStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == entities.SessionStatusStopped {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (c *Controller) handle(ev event) {
	switch e := ev.(type) {
	case startCmd:
		e.reply <- c.onStart(e.ctx)
	case beginAnswerCmd:
		e.reply <- c.onBeginAnswer()
	case finishAnswerCmd:
		e.reply <- c.onFinishAnswer()
	case submitAnswerCmd:
		e.reply <- c.onSubmitAnswer(e.text)
	case confirmStopCmd:
		e.reply <- c.onConfirmStop(e.confirm)
	case stopCmd:
		c.terminate(entities.SessionStatusStopped)
		e.reply <- nil

	case leadInTick:
		if c.current(e.gen, entities.SessionStatusLeadIn) {
			c.observer(Notification{Kind: NotifyCountdown, Session: c.Snapshot(), Remaining: e.remaining})
		}
	case leadInDone:
		if c.current(e.gen, entities.SessionStatusLeadIn) {
			c.askCurrentQuestion()
		}
	case speechEnded:
		if c.current(e.gen, entities.SessionStatusSpeaking) {
			c.onSpeechEnded()
		}
	case readyTick:
		if c.current(e.gen, entities.SessionStatusAwaitingResponse) && c.session.HasPending() {
			c.session.UpdatePendingCountdown(e.remaining)
			c.publish()
		}
	case readyDone:
		if c.current(e.gen, entities.SessionStatusAwaitingResponse) && c.session.HasPending() {
			c.session.UpdatePendingCountdown(0)
			c.publish()
			c.status("Ready when you are. Start answering whenever you like.")
		}
	case transcriptResult:
		if c.current(e.gen, entities.SessionStatusListening) {
			c.handleTranscript(e.text)
		}
	case evaluationDone:
		if c.current(e.gen, entities.SessionStatusEvaluating) {
			c.onEvaluated(e.result, e.followUp)
		}
	case advanceDue:
		if c.current(e.gen, entities.SessionStatusSpeaking) && c.speaking == speakFeedback {
			c.advanceOrComplete()
		}
	default:
		c.logger.Warn("Unknown event dropped", zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

// current reports whether a callback still belongs to the live phase
func (c *Controller) current(gen uint64, status entities.SessionStatus) bool {
	if gen != c.gen || c.session.Status != status {
		c.logger.Debug("Dropping stale event", zap.Uint64("eventGen", gen), zap.Uint64("gen", c.gen))
		return false
	}
	return true
}

func (c *Controller) transition(to entities.SessionStatus) error {
	from := c.session.Status
	if !CanTransition(from, to) {
		c.logger.Error("Rejected state transition",
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	c.gen++
	c.session.Status = to

	c.mu.Lock()
	c.trace = append(c.trace, to)
	c.mu.Unlock()

	c.logger.Debug("State transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("questionIndex", c.session.CurrentIndex))
	return nil
}

func (c *Controller) publish() {
	snap := c.session.Snapshot()
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
	c.observer(Notification{Kind: NotifyState, Session: snap})
}

func (c *Controller) status(message string) {
	c.observer(Notification{Kind: NotifyStatus, Session: c.Snapshot(), Message: message})
}

func (c *Controller) onStart(ctx context.Context) error {
	if c.session.Status != entities.SessionStatusIdle {
		return fmt.Errorf("%w: interview already started", domain.ErrInvalidTransition)
	}
	if ctx == nil {
		ctx = c.ctx
	}

	mic, err := c.media.Acquire(ctx)
	if err != nil {
		c.logger.Warn("Interview start blocked by media", zap.Error(err))
		return err
	}
	c.mic = mic

	c.transition(entities.SessionStatusLeadIn)
	c.session.CreatedAt = c.clock.Now()
	c.publish()

	gen := c.gen
	c.observer(Notification{Kind: NotifyCountdown, Session: c.Snapshot(), Remaining: LeadInTicks})
	c.countdown.Start(LeadInTicks,
		func(remaining int) { c.post(leadInTick{gen: gen, remaining: remaining}) },
		func() { c.post(leadInDone{gen: gen}) })
	return nil
}

func (c *Controller) askCurrentQuestion() {
	if err := c.transition(entities.SessionStatusSpeaking); err != nil {
		return
	}
	question := c.session.CurrentQuestion()
	c.session.AppendEntry(entities.TurnEntry{
		Speaker:       entities.SpeakerInterviewer,
		Kind:          entities.EntryKindQuestion,
		Text:          question,
		QuestionIndex: c.session.CurrentIndex,
		Timestamp:     c.clock.Now(),
	})
	c.publish()
	c.say(question, speakQuestion)
}

// say speaks text in the current Speaking phase. Without speech synthesis the
// utterance counts as finished immediately.
func (c *Controller) say(text string, purpose speakPurpose) {
	c.speaking = purpose
	gen := c.gen

	c.observer(Notification{Kind: NotifySpeakingStart, Session: c.Snapshot(), Message: text})
	err := c.speech.Speak(c.ctx, text, func() { c.post(speechEnded{gen: gen}) })
	if err == nil {
		return
	}

	if errors.Is(err, domain.ErrUnsupportedCapability) {
		if !c.textOnly {
			c.textOnly = true
			c.status("Speech playback is unavailable. Continuing in text mode.")
		}
	} else {
		c.logger.Warn("Failed to speak", zap.Error(err))
	}
	c.onSpeechEnded()
}

func (c *Controller) onSpeechEnded() {
	c.observer(Notification{Kind: NotifySpeakingEnd, Session: c.Snapshot()})

	switch c.speaking {
	case speakQuestion:
		c.speaking = speakNone
		if err := c.transition(entities.SessionStatusAwaitingResponse); err != nil {
			return
		}
		c.session.AppendPending(ReadyTicks)
		c.publish()
		c.startReadyCountdown()
	case speakFeedback:
		gen := c.gen
		c.stopAdvance()
		c.advance = c.clock.AfterFunc(FeedbackDelay, func() { c.post(advanceDue{gen: gen}) })
	}
}

func (c *Controller) startReadyCountdown() {
	gen := c.gen
	c.countdown.Start(ReadyTicks,
		func(remaining int) { c.post(readyTick{gen: gen, remaining: remaining}) },
		func() { c.post(readyDone{gen: gen}) })
}

func (c *Controller) awaitingAnswer() bool {
	return c.session.Status == entities.SessionStatusAwaitingResponse && !c.confirmingStop && c.session.HasPending()
}

func (c *Controller) onBeginAnswer() error {
	if !c.awaitingAnswer() {
		return fmt.Errorf("%w: not awaiting an answer", domain.ErrInvalidTransition)
	}

	c.countdown.Cancel()
	if err := c.transition(entities.SessionStatusListening); err != nil {
		return err
	}
	c.publish()

	gen := c.gen
	err := c.speech.Listen(c.ctx, c.mic, func(text string) { c.post(transcriptResult{gen: gen, text: text}) })
	if err != nil {
		c.logger.Warn("Speech recognition unavailable", zap.Error(err))
		c.textOnly = true
		c.status("Speech recognition is unavailable. Please type your answer.")
	}
	return nil
}

func (c *Controller) onFinishAnswer() error {
	if c.session.Status != entities.SessionStatusListening {
		return fmt.Errorf("%w: not listening", domain.ErrInvalidTransition)
	}
	c.speech.StopListening()
	return nil
}

func (c *Controller) onSubmitAnswer(text string) error {
	switch {
	case c.awaitingAnswer():
		c.countdown.Cancel()
		if err := c.transition(entities.SessionStatusListening); err != nil {
			return err
		}
	case c.session.Status == entities.SessionStatusListening:
		c.speech.CancelListening()
	default:
		return fmt.Errorf("%w: not awaiting an answer", domain.ErrInvalidTransition)
	}

	c.handleTranscript(text)
	return nil
}

func (c *Controller) handleTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		c.transition(entities.SessionStatusAwaitingResponse)
		c.session.UpdatePendingCountdown(ReadyTicks)
		c.publish()
		c.status("We didn't catch that. Press start and try again.")
		c.startReadyCountdown()
		return
	}

	if err := c.session.FillPending(text); err != nil {
		c.logger.Error("Failed to record answer", zap.Error(err))
		return
	}

	command := ParseCommand(text)
	c.logger.Info("Transcript received",
		zap.Int("questionIndex", c.session.CurrentIndex),
		zap.String("command", command.String()))

	switch command {
	case CommandStop:
		c.requestStopConfirmation()
	case CommandRepeat:
		c.askCurrentQuestion()
	case CommandSkip:
		c.advanceOrComplete()
	default:
		c.evaluate(text)
	}
}

func (c *Controller) requestStopConfirmation() {
	if err := c.transition(entities.SessionStatusAwaitingResponse); err != nil {
		return
	}
	c.confirmingStop = true

	prompt := "Do you want to end the interview now?"
	c.session.AppendEntry(entities.TurnEntry{
		Speaker:       entities.SpeakerInterviewer,
		Kind:          entities.EntryKindNotice,
		Text:          prompt,
		QuestionIndex: c.session.CurrentIndex,
		Timestamp:     c.clock.Now(),
	})
	c.publish()
	c.observer(Notification{Kind: NotifyStopConfirmation, Session: c.Snapshot(), Message: prompt})
}

func (c *Controller) onConfirmStop(confirm bool) error {
	if !c.confirmingStop || c.session.Status != entities.SessionStatusAwaitingResponse {
		return fmt.Errorf("%w: no stop confirmation pending", domain.ErrInvalidTransition)
	}
	c.confirmingStop = false

	if confirm {
		c.terminate(entities.SessionStatusStopped)
		return nil
	}

	c.transition(entities.SessionStatusAwaitingResponse)
	c.session.AppendPending(ReadyTicks)
	c.publish()
	c.startReadyCountdown()
	return nil
}

func (c *Controller) evaluate(answer string) {
	if err := c.transition(entities.SessionStatusEvaluating); err != nil {
		return
	}
	c.publish()

	gen := c.gen
	question := c.session.CurrentQuestion()
	ctx, cancel := context.WithTimeout(c.ctx, c.evaluationTimeout)
	c.evalCancel = cancel

	go func() {
		defer cancel()

		results := make(chan entities.EvaluationResult, 1)
		go func() { results <- c.evaluator.Evaluate(ctx, question, answer) }()

		var result entities.EvaluationResult
		select {
		case result = <-results:
		case <-ctx.Done():
			c.logger.Warn("Evaluation timed out", zap.Error(ctx.Err()))
			result = entities.NeutralEvaluation()
		}

		var followUp string
		if c.followUp && ctx.Err() == nil {
			if q, ok := c.evaluator.FollowUp(ctx, question, answer); ok {
				followUp = q
			}
		}

		c.post(evaluationDone{gen: gen, result: result.Normalize(), followUp: followUp})
	}()
}

func (c *Controller) onEvaluated(result entities.EvaluationResult, followUp string) {
	c.evalCancel = nil
	points := result.Points(c.session.ScoringMode)
	score := result.Score

	text := feedbackText(result, followUp)
	c.session.AppendEntry(entities.TurnEntry{
		Speaker:       entities.SpeakerInterviewer,
		Kind:          entities.EntryKindFeedback,
		Text:          text,
		QuestionIndex: c.session.CurrentIndex,
		Score:         &score,
		Timestamp:     c.clock.Now(),
	})
	c.session.AddScore(points)

	c.logger.Info("Answer evaluated",
		zap.Int("questionIndex", c.session.CurrentIndex),
		zap.Float64("score", score),
		zap.Bool("passed", result.Passed),
		zap.Float64("total", c.session.Score))

	if err := c.transition(entities.SessionStatusSpeaking); err != nil {
		return
	}
	c.publish()
	c.say(text, speakFeedback)
}

func feedbackText(result entities.EvaluationResult, followUp string) string {
	parts := []string{strings.TrimSpace(result.Feedback)}
	if tip := strings.TrimSpace(result.Improvement); tip != "" {
		parts = append(parts, "To improve: "+tip)
	}
	if followUp = strings.TrimSpace(followUp); followUp != "" {
		parts = append(parts, "Follow-up to think about: "+followUp)
	}
	return strings.Join(parts, " ")
}

func (c *Controller) advanceOrComplete() {
	c.stopAdvance()
	c.speaking = speakNone

	if !c.session.HasNextQuestion() {
		c.terminate(entities.SessionStatusCompleted)
		return
	}
	c.session.Advance()
	c.askCurrentQuestion()
}

func (c *Controller) stopAdvance() {
	if c.advance != nil {
		c.advance.Stop()
		c.advance = nil
	}
}

// terminate tears down collaborators in a fixed order before the session
// enters its terminal state. Calling it again is a no-op.
func (c *Controller) terminate(status entities.SessionStatus) {
	if c.session.Status.IsTerminal() {
		return
	}

	c.countdown.Cancel()
	c.speech.CancelSpeech()
	c.speech.CancelListening()
	c.media.Release()
	c.mic = nil

	c.stopAdvance()
	if c.evalCancel != nil {
		c.evalCancel()
		c.evalCancel = nil
	}
	c.confirmingStop = false
	c.speaking = speakNone

	c.gen++
	c.session.Terminate(status)
	now := c.clock.Now()
	c.session.EndedAt = &now

	c.mu.Lock()
	c.trace = append(c.trace, status)
	c.mu.Unlock()

	c.logger.Info("Interview terminated",
		zap.String("status", string(status)),
		zap.Int("questionIndex", c.session.CurrentIndex),
		zap.Float64("score", c.session.Score),
		zap.Int("transcriptEntries", len(c.session.Transcript)))

	c.publish()
	c.observer(Notification{Kind: NotifyTerminated, Session: c.Snapshot()})
}
