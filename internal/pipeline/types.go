package pipeline

import (
	"github.com/san-kum/rigid2d/internal/broadphase"
	"github.com/san-kum/rigid2d/internal/island"
	"github.com/san-kum/rigid2d/internal/store"
)

// Config carries the recognized per-step options. Iteration counts bound
// solver cost; there is no residual-driven early exit.
type Config struct {
	VelocityIterations int
	PositionIterations int

	CCD           bool
	Deterministic bool
	Parallel      bool
	Workers       int

	WarmStarting       bool
	WarmStartTolerance float64

	Sleep island.SleepConfig
}

func DefaultConfig() Config {
	return Config{
		VelocityIterations: 8,
		PositionIterations: 3,
		CCD:                true,
		Deterministic:      false,
		Parallel:           true,
		Workers:            4,
		WarmStarting:       true,
		WarmStartTolerance: 0.02,
		Sleep:              island.DefaultSleepConfig(),
	}
}

// EventKind labels the step events a caller can react to.
type EventKind uint8

const (
	ContactBegin EventKind = iota
	ContactEnd
	BodySleep
	BodyWake
)

func (k EventKind) String() string {
	switch k {
	case ContactBegin:
		return "contact-begin"
	case ContactEnd:
		return "contact-end"
	case BodySleep:
		return "body-sleep"
	case BodyWake:
		return "body-wake"
	}
	return "unknown"
}

// Event is one state transition observed during a step. Contact events
// carry the collider pair; sleep/wake events carry the body handle.
type Event struct {
	Kind EventKind
	Pair broadphase.Pair
	Body store.Handle
}

// Result reports what one step did. Errors holds the recoverable per-pair
// and per-body failures; the step itself always completes.
type Result struct {
	Events []Event
	Errors []error

	Islands  int
	Contacts int
}
