package vm

import (
	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/op"
)

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	// Use for: profilers that only need Call/Return events.
	StepNone

	// StepSampled calls OnStep every N instructions.
	StepSampled

	// StepOnLine calls OnStep when the source line changes.
	// Use for: coverage tools and line tracers.
	StepOnLine
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	SampleInterval int

	// ObserveCalls enables OnCall callbacks.
	ObserveCalls bool

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool
}

// NewObserverConfig creates a config with ObserveCalls and ObserveReturns
// enabled.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer receives VM execution events. Implementations can embed
// NoOpObserver and override only the methods they need.
//
// Observer methods are called synchronously during execution. Returning
// false from any of them halts execution with ErrHalted.
type Observer interface {
	// Config returns the observer's configuration. It is read once when
	// a run starts.
	Config() ObserverConfig

	OnStep(event StepEvent) bool
	OnCall(event CallEvent) bool
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes one instruction about to execute.
type StepEvent struct {
	IP         int
	Opcode     op.Code
	OpcodeName string
	Function   string
	Location   bytecode.SourceLocation
	StackDepth int
	FrameDepth int
}

// CallEvent describes a call of a bytecode function.
type CallEvent struct {
	// FunctionName is the qualified name of the function being called.
	FunctionName string
	ArgCount     int
	// Location is where the function body starts.
	Location   bytecode.SourceLocation
	FrameDepth int
}

// ReturnEvent describes a function returning, normally or by exception.
type ReturnEvent struct {
	FunctionName string
	Location     bytecode.SourceLocation
	FrameDepth   int
	// Raised is set when the function exits with an exception.
	Raised bool
}

// NoOpObserver is an Observer that does nothing. It uses StepAll mode with
// calls and returns enabled.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}

// stepper decides which instructions are reported to an observer.
type stepper struct {
	cfg      ObserverConfig
	count    int
	lastLine int
	lastCode *code
}

func (s *stepper) shouldStep(c *code, ip int) bool {
	switch s.cfg.StepMode {
	case StepAll:
		return true
	case StepSampled:
		s.count++
		if s.count >= s.cfg.SampleInterval {
			s.count = 0
			return true
		}
		return false
	case StepOnLine:
		line := c.LocationAt(ip).Line
		if line == s.lastLine && c == s.lastCode {
			return false
		}
		s.lastLine, s.lastCode = line, c
		return true
	}
	return false
}
