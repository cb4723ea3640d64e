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
	"encoding/binary"
	"fmt"

	"github.com/andreas-jonsson/rvlockstep/emulator/memory"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor"
)

// Window is a word in the reference address space that mirrors a DUT I/O
// signal. Windows are written before every reference step and never read
// back.
type Window uint32

const (
	WindowRxData  Window = 0xFFFFF000
	WindowRxValid Window = 0xFFFFF008
	WindowTxReady Window = 0xFFFFF00C
)

func (w Window) String() string {
	switch w {
	case WindowRxData:
		return "rx data"
	case WindowRxValid:
		return "rx valid"
	case WindowTxReady:
		return "tx ready"
	}
	return fmt.Sprintf("window(0x%08X)", uint32(w))
}

// Reference adapts a golden processor model to the lockstep loop.
type Reference struct {
	p processor.Processor
}

func NewReference(p processor.Processor) *Reference {
	return &Reference{p: p}
}

func (r *Reference) Processor() processor.Processor {
	return r.p
}

func (r *Reference) LoadImage(base uint32, data []byte) error {
	if err := r.p.WriteMemory(memory.Address(base), data); err != nil {
		return fmt.Errorf("reference image at 0x%08X: %w", base, err)
	}
	return nil
}

// StepOne executes exactly one instruction at pc.
func (r *Reference) StepOne(pc uint32) (uint32, error) {
	return r.p.Step(pc)
}

// ReadState reads the register file. DUT register i is reference
// register processor.RegX0+i.
func (r *Reference) ReadState() (processor.State, error) {
	var s processor.State
	for i := range s.Regs {
		v, err := r.p.ReadRegister(processor.RegX0 + i)
		if err != nil {
			return s, err
		}
		s.Regs[i] = v
	}

	pc, err := r.p.ReadRegister(processor.RegPC)
	s.PC = pc
	return s, err
}

func (r *Reference) WriteMMIO(w Window, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	if err := r.p.WriteMemory(memory.Address(w), buf[:]); err != nil {
		return fmt.Errorf("%v window: %w", w, err)
	}
	return nil
}
