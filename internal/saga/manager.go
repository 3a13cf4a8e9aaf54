package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager runs saga definitions and keeps their execution history
type Manager struct {
	logger      *zap.Logger
	instances   map[ID]*Instance
	definitions map[string]Definition
	listeners   []func(Event)
	mu          sync.RWMutex
}

// NewManager creates a new saga manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:      logger,
		instances:   make(map[ID]*Instance),
		definitions: make(map[string]Definition),
	}
}

// Register makes a definition runnable by name
func (m *Manager) Register(def Definition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions[def.Name()] = def
	m.logger.Info("Saga definition registered", zap.String("name", def.Name()))
}

// Subscribe adds a listener for lifecycle events. Listeners run on the
// executing goroutine and must not block.
func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Run executes the named definition to the end. When a step fails the
// completed steps are compensated in reverse order and the step error is
// returned together with the final instance.
func (m *Manager) Run(ctx context.Context, name string, data Data) (*Instance, error) {
	def, instance, err := m.prepare(name, data)
	if err != nil {
		return nil, err
	}
	runErr := m.execute(ctx, instance.ID, def)
	final, _ := m.Get(instance.ID)
	return final, runErr
}

// Start executes the named definition in the background
func (m *Manager) Start(ctx context.Context, name string, data Data) (ID, error) {
	def, instance, err := m.prepare(name, data)
	if err != nil {
		return "", err
	}
	go m.execute(ctx, instance.ID, def)
	return instance.ID, nil
}

func (m *Manager) prepare(name string, data Data) (Definition, *Instance, error) {
	m.mu.Lock()
	def, exists := m.definitions[name]
	if !exists {
		m.mu.Unlock()
		return nil, nil, fmt.Errorf("saga definition not found: %s", name)
	}
	if data == nil {
		data = Data{}
	}

	steps := def.Steps()
	execs := make([]StepExecution, len(steps))
	for i, step := range steps {
		execs[i] = StepExecution{ID: step.ID(), State: StepStatePending}
	}

	instance := &Instance{
		ID:         ID(name + "_" + uuid.NewString()),
		Definition: name,
		State:      StateStarted,
		Data:       data,
		Steps:      execs,
		StartedAt:  time.Now(),
	}
	m.instances[instance.ID] = instance
	m.mu.Unlock()

	m.emit(Event{SagaID: instance.ID, Type: EventSagaStarted, Timestamp: instance.StartedAt})
	m.logger.Info("Saga started", zap.String("sagaID", string(instance.ID)), zap.String("definition", name))
	return def, instance, nil
}

// Get returns a copy of a saga instance. Data is only included once the saga
// has finished, since steps write to it while running.
func (m *Manager) Get(id ID) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	instance, exists := m.instances[id]
	if !exists {
		return nil, false
	}
	c := *instance
	c.Steps = append([]StepExecution(nil), instance.Steps...)
	c.Data = nil
	if instance.State.IsFinal() {
		c.Data = make(Data, len(instance.Data))
		for k, v := range instance.Data {
			c.Data[k] = v
		}
	}
	return &c, true
}

// Prune forgets finished instances that completed before cutoff
func (m *Manager) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, instance := range m.instances {
		if instance.State.IsFinal() && instance.CompletedAt != nil && instance.CompletedAt.Before(cutoff) {
			delete(m.instances, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) execute(ctx context.Context, id ID, def Definition) error {
	m.update(id, func(i *Instance) { i.State = StateRunning })

	if timeout := def.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m.mu.RLock()
	data := m.instances[id].Data
	m.mu.RUnlock()

	steps := def.Steps()
	lastCompleted := -1
	var failure error
	for i, step := range steps {
		if err := m.executeStep(ctx, id, i, step, data); err != nil {
			m.logger.Error("Step failed",
				zap.String("sagaID", string(id)),
				zap.String("stepID", string(step.ID())),
				zap.Error(err))
			failure = fmt.Errorf("step %s: %w", step.ID(), err)
			break
		}
		lastCompleted = i
	}

	if failure == nil {
		m.finish(id, StateCompleted, EventSagaCompleted, "")
		return nil
	}

	if lastCompleted < 0 {
		m.finish(id, StateFailed, EventSagaFailed, failure.Error())
		return failure
	}

	m.logger.Info("Starting compensation", zap.String("sagaID", string(id)))
	// Compensation runs even if the saga context has expired
	m.compensate(context.WithoutCancel(ctx), id, steps, lastCompleted, data)
	m.finish(id, StateCompensated, EventSagaCompensated, failure.Error())
	return failure
}

func (m *Manager) executeStep(ctx context.Context, id ID, index int, step Step, data Data) error {
	now := time.Now()
	m.update(id, func(i *Instance) {
		i.Steps[index].State = StepStateRunning
		i.Steps[index].StartedAt = &now
	})
	m.emit(Event{SagaID: id, StepID: step.ID(), Type: EventStepStarted, Timestamp: now})

	if err := ctx.Err(); err != nil {
		m.failStep(id, index, step, err)
		return err
	}

	if _, err := step.Execute(ctx, data); err != nil {
		m.failStep(id, index, step, err)
		return err
	}

	now = time.Now()
	m.update(id, func(i *Instance) {
		i.Steps[index].State = StepStateCompleted
		i.Steps[index].CompletedAt = &now
	})
	m.emit(Event{SagaID: id, StepID: step.ID(), Type: EventStepCompleted, Timestamp: now})

	m.logger.Debug("Step completed",
		zap.String("sagaID", string(id)),
		zap.String("stepID", string(step.ID())))
	return nil
}

func (m *Manager) failStep(id ID, index int, step Step, err error) {
	now := time.Now()
	m.update(id, func(i *Instance) {
		i.Steps[index].State = StepStateFailed
		i.Steps[index].CompletedAt = &now
		i.Steps[index].Error = err.Error()
	})
	m.emit(Event{SagaID: id, StepID: step.ID(), Type: EventStepFailed, Timestamp: now, Error: err.Error()})
}

func (m *Manager) compensate(ctx context.Context, id ID, steps []Step, lastCompleted int, data Data) {
	for i := lastCompleted; i >= 0; i-- {
		step := steps[i]

		m.logger.Info("Compensating step",
			zap.String("sagaID", string(id)),
			zap.String("stepID", string(step.ID())))

		if err := step.Compensate(ctx, data); err != nil {
			m.logger.Error("Compensation failed",
				zap.String("sagaID", string(id)),
				zap.String("stepID", string(step.ID())),
				zap.Error(err))
			continue
		}

		index := i
		m.update(id, func(inst *Instance) { inst.Steps[index].State = StepStateCompensated })
		m.emit(Event{SagaID: id, StepID: step.ID(), Type: EventStepCompensated, Timestamp: time.Now()})
	}
}

func (m *Manager) finish(id ID, state State, eventType, errMsg string) {
	now := time.Now()
	m.update(id, func(i *Instance) {
		i.State = state
		i.CompletedAt = &now
		i.Error = errMsg
	})
	m.logger.Info("Saga finished", zap.String("sagaID", string(id)), zap.String("state", string(state)))
	m.emit(Event{SagaID: id, Type: eventType, Timestamp: now, Error: errMsg})
}

func (m *Manager) update(id ID, fn func(*Instance)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if instance, exists := m.instances[id]; exists {
		fn(instance)
	}
}

func (m *Manager) emit(event Event) {
	m.mu.RLock()
	listeners := append([]func(Event)(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(event)
	}
}
