package saga

import (
	"context"
	"time"
)

type definition struct {
	name    string
	timeout time.Duration
	steps   []Step
}

// NewDefinition builds a definition from a fixed step list
func NewDefinition(name string, timeout time.Duration, steps ...Step) Definition {
	return &definition{name: name, timeout: timeout, steps: steps}
}

func (d *definition) Name() string           { return d.name }
func (d *definition) Timeout() time.Duration { return d.timeout }
func (d *definition) Steps() []Step          { return d.steps }

// FuncStep adapts plain functions to Step. A nil Undo makes compensation a no-op.
type FuncStep struct {
	Name StepID
	Do   func(ctx context.Context, data Data) (any, error)
	Undo func(ctx context.Context, data Data) error
}

func (s FuncStep) ID() StepID { return s.Name }

func (s FuncStep) Execute(ctx context.Context, data Data) (any, error) {
	return s.Do(ctx, data)
}

func (s FuncStep) Compensate(ctx context.Context, data Data) error {
	if s.Undo == nil {
		return nil
	}
	return s.Undo(ctx, data)
}
