package orchestrator

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Run states. These must remain untyped string constants for
// statekit.StateID compatibility.
const (
	StatePending    = "pending"
	StateDispatched = "dispatched"
	StateComplete   = "complete"
	StatePartial    = "partial"
	StateAllFailed  = "all_failed"
	StateAggregated = "aggregated"
	StateFailed     = "failed"
)

const (
	eventDispatch     = "dispatch"
	eventJoinComplete = "join_complete"
	eventJoinPartial  = "join_partial"
	eventJoinFailed   = "join_failed"
	eventAggregate    = "aggregate"
	eventReject       = "reject"
	eventAbort        = "abort"
)

type runContext struct {
	RunID string
}

// runMachine tracks the lifecycle of one run. It is driven only by the
// goroutine executing Run.
type runMachine struct {
	interpreter *statekit.Interpreter[runContext]
}

func newRunMachine(runID string) (*runMachine, error) {
	builder := statekit.NewMachine[runContext]("review-run").
		WithInitial(statekit.StateID(StatePending)).
		WithContext(runContext{RunID: runID})

	builder.State(StatePending).
		On(eventDispatch).Target(StateDispatched).
		Done()

	builder.State(StateDispatched).
		On(eventJoinComplete).Target(StateComplete).
		On(eventJoinPartial).Target(StatePartial).
		On(eventJoinFailed).Target(StateAllFailed).
		Done()

	builder.State(StateComplete).
		On(eventAggregate).Target(StateAggregated).
		On(eventReject).Target(StateFailed).
		Done()

	builder.State(StatePartial).
		On(eventAggregate).Target(StateAggregated).
		On(eventReject).Target(StateFailed).
		Done()

	builder.State(StateAllFailed).
		On(eventAbort).Target(StateFailed).
		Done()

	builder.State(StateAggregated).Done()
	builder.State(StateFailed).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building run state machine: %w", err)
	}
	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &runMachine{interpreter: interpreter}, nil
}

// transition sends event and reports an error when the state did not move.
func (m *runMachine) transition(event string) error {
	before := m.current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.current() != before {
		return nil
	}
	return fmt.Errorf("event %q not allowed in run state %q", event, before)
}

func (m *runMachine) current() string {
	return string(m.interpreter.State().Value)
}
