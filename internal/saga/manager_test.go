package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type+":"+string(e.StepID))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestRunCompletes(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	rec := &recorder{}
	m.Subscribe(rec.record)

	m.Register(NewDefinition("sum", time.Second,
		FuncStep{Name: "one", Do: func(ctx context.Context, d Data) (any, error) {
			d["total"] = 1
			return nil, nil
		}},
		FuncStep{Name: "two", Do: func(ctx context.Context, d Data) (any, error) {
			total, _ := Value[int](d, "total")
			d["total"] = total + 2
			return nil, nil
		}},
	))

	instance, err := m.Run(context.Background(), "sum", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if instance.State != StateCompleted {
		t.Errorf("Expected state %s, got %s", StateCompleted, instance.State)
	}
	if total, _ := Value[int](instance.Data, "total"); total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	for _, s := range instance.Steps {
		if s.State != StepStateCompleted {
			t.Errorf("Expected step %s completed, got %s", s.ID, s.State)
		}
	}

	want := []string{"saga_started:", "step_started:one", "step_completed:one", "step_started:two", "step_completed:two", "saga_completed:"}
	got := rec.list()
	if len(got) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRunCompensatesInReverse(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))

	var undone []StepID
	undo := func(id StepID) func(context.Context, Data) error {
		return func(ctx context.Context, d Data) error {
			undone = append(undone, id)
			return nil
		}
	}
	ok := func(ctx context.Context, d Data) (any, error) { return nil, nil }
	boom := errors.New("boom")

	m.Register(NewDefinition("failing", time.Second,
		FuncStep{Name: "a", Do: ok, Undo: undo("a")},
		FuncStep{Name: "b", Do: ok, Undo: undo("b")},
		FuncStep{Name: "c", Do: func(ctx context.Context, d Data) (any, error) { return nil, boom }, Undo: undo("c")},
	))

	instance, err := m.Run(context.Background(), "failing", Data{})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom error, got %v", err)
	}
	if instance.State != StateCompensated {
		t.Errorf("Expected state %s, got %s", StateCompensated, instance.State)
	}
	if len(undone) != 2 || undone[0] != "b" || undone[1] != "a" {
		t.Errorf("Expected compensation b then a, got %v", undone)
	}
	if instance.Steps[2].State != StepStateFailed || instance.Steps[2].Error != "boom" {
		t.Errorf("Unexpected failed step: %+v", instance.Steps[2])
	}
	if instance.Steps[0].State != StepStateCompensated {
		t.Errorf("Expected first step compensated, got %s", instance.Steps[0].State)
	}
}

func TestRunFirstStepFailure(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	m.Register(NewDefinition("early", 0,
		FuncStep{Name: "a", Do: func(ctx context.Context, d Data) (any, error) { return nil, errors.New("nope") }},
	))

	instance, err := m.Run(context.Background(), "early", nil)
	if err == nil {
		t.Fatal("Expected error")
	}
	if instance.State != StateFailed {
		t.Errorf("Expected state %s, got %s", StateFailed, instance.State)
	}
}

func TestRunUnknownDefinition(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	if _, err := m.Run(context.Background(), "missing", nil); err == nil {
		t.Error("Expected error for unknown definition")
	}
}

func TestStartAndPrune(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	done := make(chan struct{})
	m.Subscribe(func(e Event) {
		if e.Type == EventSagaCompleted {
			close(done)
		}
	})
	m.Register(NewDefinition("bg", time.Second,
		FuncStep{Name: "a", Do: func(ctx context.Context, d Data) (any, error) { return nil, nil }},
	))

	id, err := m.Start(context.Background(), "bg", nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Saga did not complete")
	}

	if _, ok := m.Get(id); !ok {
		t.Fatal("Expected instance to be tracked")
	}
	if n := m.Prune(time.Now().Add(time.Minute)); n != 1 {
		t.Errorf("Expected 1 pruned instance, got %d", n)
	}
	if _, ok := m.Get(id); ok {
		t.Error("Expected instance to be pruned")
	}
}
