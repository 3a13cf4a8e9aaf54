package saga

import (
	"context"
	"time"
)

// State represents the current state of a saga execution
type State string

const (
	StateStarted     State = "started"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateCompensated State = "compensated"
)

// IsFinal reports whether the saga has stopped running
func (s State) IsFinal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCompensated
}

// StepState represents the state of an individual step
type StepState string

const (
	StepStatePending     StepState = "pending"
	StepStateRunning     StepState = "running"
	StepStateCompleted   StepState = "completed"
	StepStateFailed      StepState = "failed"
	StepStateCompensated StepState = "compensated"
)

// ID uniquely identifies a saga instance
type ID string

// StepID uniquely identifies a step within a saga
type StepID string

// Data is the shared state passed from step to step
type Data map[string]any

// Value reads a typed entry from d
func Value[T any](d Data, key string) (T, bool) {
	v, ok := d[key].(T)
	return v, ok
}

// Step is one unit of work of a saga. Compensate undoes a completed Execute
// when a later step fails.
type Step interface {
	ID() StepID
	Execute(ctx context.Context, data Data) (result any, err error)
	Compensate(ctx context.Context, data Data) error
}

// Definition names an ordered list of steps
type Definition interface {
	Name() string
	Steps() []Step
	Timeout() time.Duration
}

// Instance is one execution of a definition
type Instance struct {
	ID          ID              `json:"id"`
	Definition  string          `json:"definition"`
	State       State           `json:"state"`
	Data        Data            `json:"-"`
	Steps       []StepExecution `json:"steps"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// StepExecution represents the execution state of a step
type StepExecution struct {
	ID          StepID     `json:"id"`
	State       StepState  `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Event is emitted on every lifecycle change
type Event struct {
	SagaID    ID        `json:"saga_id"`
	StepID    StepID    `json:"step_id,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Event types
const (
	EventSagaStarted     = "saga_started"
	EventSagaCompleted   = "saga_completed"
	EventSagaFailed      = "saga_failed"
	EventSagaCompensated = "saga_compensated"
	EventStepStarted     = "step_started"
	EventStepCompleted   = "step_completed"
	EventStepFailed      = "step_failed"
	EventStepCompensated = "step_compensated"
)
