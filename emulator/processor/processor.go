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

package processor

import (
	"errors"

	"github.com/andreas-jonsson/rvlockstep/emulator/memory"
)

type Stats struct {
	NumInstructions uint64
	RX, TX          uint64
}

var (
	ErrCPUHalt             = errors.New("CPU HALT")
	ErrIllegalInstruction  = errors.New("illegal instruction")
	ErrInvalidRegister     = errors.New("invalid register")
	ErrMisalignedExecution = errors.New("misaligned instruction fetch")
)

// Register ids follow the unicorn RISC-V numbering where 0 is invalid.
const (
	RegInvalid = 0
	RegX0      = 1
	RegX31     = RegX0 + NumRegisters - 1
	RegPC      = RegX31 + 1
)

// Processor is a golden instruction set model that the DUT is compared against.
type Processor interface {
	// Step executes exactly one instruction at pc and returns the next pc.
	Step(pc uint32) (uint32, error)

	ReadRegister(id int) (uint32, error)
	WriteRegister(id int, v uint32) error

	ReadMemory(addr memory.Address, buf []byte) error
	WriteMemory(addr memory.Address, data []byte) error

	GetStats() Stats
}
