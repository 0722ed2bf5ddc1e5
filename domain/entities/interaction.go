package entities

import (
	"errors"
	"fmt"
)

// InteractionState is the single source of truth for what the assistant is
// doing from the user's point of view.
type InteractionState int

const (
	StateIdle InteractionState = iota
	StateListening
	StateProcessing
	StateSpeaking
)

var (
	// ErrInvalidTransition is returned when an event is not allowed in the
	// current state.
	ErrInvalidTransition = errors.New("invalid interaction transition")

	// ErrStaleGeneration is returned when an asynchronous result belongs to an
	// interaction that has since been cancelled or replaced.
	ErrStaleGeneration = errors.New("stale interaction generation")
)

func (s InteractionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// StatusText is the status line shown to the user.
func (s InteractionState) StatusText() string {
	switch s {
	case StateListening:
		return "Listening..."
	case StateProcessing:
		return "Processing..."
	case StateSpeaking:
		return "AI is speaking"
	default:
		return "Ready"
	}
}

// Indicator names the status indicator style for the state.
func (s InteractionState) Indicator() string {
	if s == StateIdle {
		return "connected"
	}
	return s.String()
}

// Interaction is the listening/processing/speaking state machine.
//
// Every recording starts a new generation. Asynchronous results (relay
// responses, synthesis completion) carry the generation they were started
// under and are rejected once the generation is no longer current, so a late
// response can never resurrect Processing or Speaking after a cancel.
//
// Interaction is not safe for concurrent use; callers serialize access.
type Interaction struct {
	state      InteractionState
	generation uint64
}

// NewInteraction returns an idle state machine.
func NewInteraction() *Interaction {
	return &Interaction{state: StateIdle}
}

func (i *Interaction) State() InteractionState {
	return i.state
}

func (i *Interaction) Generation() uint64 {
	return i.generation
}

// StopEnabled reports whether the global stop affordance is active.
func (i *Interaction) StopEnabled() bool {
	return i.state != StateIdle
}

// Start moves Idle to Listening and opens a new generation.
func (i *Interaction) Start() (uint64, error) {
	if i.state != StateIdle {
		return 0, i.invalid("start")
	}
	i.generation++
	i.state = StateListening
	return i.generation, nil
}

// Finish moves Listening to Processing once the recording is finalized.
func (i *Interaction) Finish(gen uint64) error {
	if err := i.check(gen); err != nil {
		return err
	}
	if i.state != StateListening {
		return i.invalid("finish")
	}
	i.state = StateProcessing
	return nil
}

// Respond moves Processing to Speaking after a successful relay response.
func (i *Interaction) Respond(gen uint64) error {
	if err := i.check(gen); err != nil {
		return err
	}
	if i.state != StateProcessing {
		return i.invalid("respond")
	}
	i.state = StateSpeaking
	return nil
}

// Fail returns to Idle from Listening (capture failure) or Processing (relay
// failure).
func (i *Interaction) Fail(gen uint64) error {
	if err := i.check(gen); err != nil {
		return err
	}
	if i.state != StateListening && i.state != StateProcessing {
		return i.invalid("fail")
	}
	i.state = StateIdle
	return nil
}

// Done returns to Idle when speech finishes or errors.
func (i *Interaction) Done(gen uint64) error {
	if err := i.check(gen); err != nil {
		return err
	}
	if i.state != StateSpeaking {
		return i.invalid("done")
	}
	i.state = StateIdle
	return nil
}

// Cancel forces Idle from any state and invalidates the current generation.
// It returns the state that was cancelled; cancelling Idle is a no-op.
func (i *Interaction) Cancel() InteractionState {
	previous := i.state
	if previous == StateIdle {
		return previous
	}
	i.generation++
	i.state = StateIdle
	return previous
}

func (i *Interaction) check(gen uint64) error {
	if gen != i.generation {
		return fmt.Errorf("%w: got %d, current %d", ErrStaleGeneration, gen, i.generation)
	}
	return nil
}

func (i *Interaction) invalid(event string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, i.state)
}
