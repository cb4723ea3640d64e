/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package difftest

import (
	"fmt"
	"strings"

	"github.com/andreas-jonsson/rvlockstep/emulator/processor/validator"
)

// Policy decides what happens to the run after a mismatch.
type Policy int

const (
	// PolicyContinue logs the mismatch and keeps comparing.
	PolicyContinue Policy = iota
	// PolicyRecord logs the mismatch and hands it to the recorder.
	PolicyRecord
	// PolicyAbort stops the run with ErrMismatch.
	PolicyAbort
	// PolicyPause asks the DecisionHook.
	PolicyPause
)

var policyNames = [...]string{
	PolicyContinue: "continue",
	PolicyRecord:   "record",
	PolicyAbort:    "abort",
	PolicyPause:    "pause",
}

func (p Policy) String() string {
	if p >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	for i, name := range policyNames {
		if strings.EqualFold(s, name) {
			return Policy(i), nil
		}
	}
	return PolicyContinue, fmt.Errorf("unknown mismatch policy: %s", s)
}

// Set implements flag.Value.
func (p *Policy) Set(s string) error {
	v, err := ParsePolicy(s)
	if err == nil {
		*p = v
	}
	return err
}

type Decision int

const (
	DecisionContinue Decision = iota
	DecisionRecord
	DecisionAbort
)

func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionRecord:
		return "record"
	case DecisionAbort:
		return "abort"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// DecisionHook is called with the session paused on a mismatch. It may
// block, for example on operator input.
type DecisionHook func(m *validator.Mismatch) Decision

// State of the comparison state machine.
type State int

const (
	StateWarmup State = iota
	StateRunning
	StateMismatch
	StatePaused
	StateFailed
	StateDone
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "WARMUP"
	case StateRunning:
		return "RUNNING"
	case StateMismatch:
		return "MISMATCH"
	case StatePaused:
		return "PAUSED"
	case StateFailed:
		return "FAILED"
	case StateDone:
		return "DONE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
