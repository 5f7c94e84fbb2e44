package mqtt

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// Connection lifecycle states.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateReconnecting = "reconnecting"
	StateClosed       = "closed"
)

// Connection lifecycle events.
const (
	eventDial  = "dial"
	eventUp    = "up"
	eventDown  = "down"
	eventClose = "close"
)

// connState tracks the broker connection. autopaho reconnects on its own; the
// state machine only mirrors what its callbacks report so that readiness and
// metrics have something to look at.
type connState struct {
	machine *fsm.FSM
}

func newConnState(onChange func(from, to string)) *connState {
	callbacks := fsm.Callbacks{}
	if onChange != nil {
		callbacks["enter_state"] = func(_ context.Context, e *fsm.Event) {
			onChange(e.Src, e.Dst)
		}
	}

	return &connState{
		machine: fsm.NewFSM(
			StateDisconnected,
			fsm.Events{
				{Name: eventDial, Src: []string{StateDisconnected}, Dst: StateConnecting},
				{Name: eventUp, Src: []string{StateConnecting, StateReconnecting}, Dst: StateConnected},
				{Name: eventDown, Src: []string{StateConnected}, Dst: StateReconnecting},
				{Name: eventClose, Src: []string{StateDisconnected, StateConnecting, StateConnected, StateReconnecting}, Dst: StateClosed},
			},
			callbacks,
		),
	}
}

// fire applies an event, treating transitions that do not apply from the
// current state as no-ops. paho can report the same drop more than once.
func (s *connState) fire(event string) error {
	err := s.machine.Event(context.Background(), event)
	if err == nil {
		return nil
	}

	var invalid fsm.InvalidEventError
	var noop fsm.NoTransitionError
	if errors.As(err, &invalid) || errors.As(err, &noop) {
		return nil
	}
	return err
}

func (s *connState) current() string {
	return s.machine.Current()
}

func (s *connState) is(state string) bool {
	return s.machine.Is(state)
}
