package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingObserver records every event it receives.
type recordingObserver struct {
	NoOpObserver
	cfg     ObserverConfig
	Steps   []StepEvent
	Calls   []CallEvent
	Returns []ReturnEvent
}

func (o *recordingObserver) Config() ObserverConfig { return o.cfg }

func (o *recordingObserver) OnStep(event StepEvent) bool {
	o.Steps = append(o.Steps, event)
	return true
}

func (o *recordingObserver) OnCall(event CallEvent) bool {
	o.Calls = append(o.Calls, event)
	return true
}

func (o *recordingObserver) OnReturn(event ReturnEvent) bool {
	o.Returns = append(o.Returns, event)
	return true
}

func TestObserverOnStep(t *testing.T) {
	observer := &recordingObserver{cfg: NewObserverConfig(StepAll)}
	run(t, "x = 1 + 2", WithObserver(observer))
	require.NotEmpty(t, observer.Steps)
	for _, step := range observer.Steps {
		require.NotEmpty(t, step.OpcodeName)
		require.Equal(t, "<module>", step.Function)
		require.Equal(t, 1, step.FrameDepth)
	}
}

func TestObserverOnCallAndReturn(t *testing.T) {
	source := `
def add(a, b):
    return a + b

def fail():
    raise ValueError('x')

result = add(1, b=2)
try:
    fail()
except ValueError:
    pass
`
	observer := &recordingObserver{cfg: NewObserverConfig(StepNone)}
	run(t, source, WithObserver(observer))
	require.Empty(t, observer.Steps)

	require.Len(t, observer.Calls, 2)
	require.Equal(t, "add", observer.Calls[0].FunctionName)
	require.Equal(t, 2, observer.Calls[0].ArgCount)
	require.Equal(t, 2, observer.Calls[0].Location.Line)
	require.Equal(t, 2, observer.Calls[0].FrameDepth)

	require.Len(t, observer.Returns, 2)
	require.Equal(t, "add", observer.Returns[0].FunctionName)
	require.False(t, observer.Returns[0].Raised)
	require.Equal(t, "fail", observer.Returns[1].FunctionName)
	require.True(t, observer.Returns[1].Raised)
}

func TestObserverStepOnLine(t *testing.T) {
	observer := &recordingObserver{cfg: NewObserverConfig(StepOnLine)}
	run(t, "a = 1\nb = a + 1\nc = b * 2\n", WithObserver(observer))
	var lines []int
	for _, step := range observer.Steps {
		lines = append(lines, step.Location.Line)
	}
	require.Equal(t, []int{1, 2, 3}, lines[:3])
}

func TestObserverSampled(t *testing.T) {
	cfg := NewObserverConfig(StepSampled)
	cfg.SampleInterval = 5
	observer := &recordingObserver{cfg: cfg}
	run(t, "total = 0\nfor i in range(20):\n    total += i\n", WithObserver(observer))
	require.NotEmpty(t, observer.Steps)

	all := &recordingObserver{cfg: NewObserverConfig(StepAll)}
	run(t, "total = 0\nfor i in range(20):\n    total += i\n", WithObserver(all))
	require.Equal(t, len(all.Steps)/5, len(observer.Steps))
}

func TestNormalizeConfig(t *testing.T) {
	cfg := NormalizeConfig(ObserverConfig{StepMode: StepSampled})
	require.Equal(t, 1, cfg.SampleInterval)
}

type haltingObserver struct {
	NoOpObserver
	limit int
	steps int
}

func (o *haltingObserver) OnStep(event StepEvent) bool {
	o.steps++
	return o.steps < o.limit
}

func TestObserverHaltOnStep(t *testing.T) {
	observer := &haltingObserver{limit: 10}
	machine, _ := newVM(t, "while True:\n    pass", WithObserver(observer))
	err := machine.Run(context.Background())
	require.ErrorIs(t, err, ErrHalted)
	require.Equal(t, 10, observer.steps)
}

func TestObserverHaltCannotBeCaught(t *testing.T) {
	observer := &haltingObserver{limit: 50}
	source := "while True:\n    try:\n        x = 1\n    except BaseException:\n        pass"
	machine, _ := newVM(t, source, WithObserver(observer))
	require.ErrorIs(t, machine.Run(context.Background()), ErrHalted)
}
