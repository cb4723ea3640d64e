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

package cpu

import (
	"fmt"
	"log"

	"github.com/andreas-jonsson/rvlockstep/emulator/memory"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor"
)

// Default memory layout of the board.
const (
	MainBase = 0x00000000
	MainSize = 2 * 1024 * 1024
	MMIOBase = 0xFFFC0000
	MMIOSize = 4096 * 64
)

type CPU struct {
	instructionState

	pc    uint32
	regs  [processor.NumRegisters]uint32
	stats processor.Stats
	mem   *memory.Map
}

func NewCPU(mem *memory.Map) *CPU {
	return &CPU{mem: mem}
}

// NewDefaultCPU maps main memory and the MMIO window of the board.
func NewDefaultCPU() (*CPU, error) {
	mem := memory.NewMap()
	if err := mem.Map(MainBase, MainSize); err != nil {
		return nil, err
	}
	if err := mem.Map(MMIOBase, MMIOSize); err != nil {
		return nil, err
	}
	return NewCPU(mem), nil
}

func (p *CPU) Reset() {
	log.Print("CPU reset!")
	p.pc = 0
	p.regs = [processor.NumRegisters]uint32{}
	p.stats = processor.Stats{}
}

func (p *CPU) Memory() *memory.Map {
	return p.mem
}

func (p *CPU) GetStats() processor.Stats {
	s := p.stats
	p.stats = processor.Stats{}
	return s
}

func (p *CPU) PC() uint32 {
	return p.pc
}

func (p *CPU) ReadRegister(id int) (uint32, error) {
	switch {
	case id == processor.RegPC:
		return p.pc, nil
	case id >= processor.RegX0 && id <= processor.RegX31:
		return p.regs[id-processor.RegX0], nil
	}
	return 0, fmt.Errorf("%w: %d", processor.ErrInvalidRegister, id)
}

func (p *CPU) WriteRegister(id int, v uint32) error {
	switch {
	case id == processor.RegPC:
		p.pc = v
	case id == processor.RegX0:
	case id > processor.RegX0 && id <= processor.RegX31:
		p.regs[id-processor.RegX0] = v
	default:
		return fmt.Errorf("%w: %d", processor.ErrInvalidRegister, id)
	}
	return nil
}

func (p *CPU) ReadMemory(addr memory.Address, buf []byte) error {
	return p.mem.Read(addr, buf)
}

func (p *CPU) WriteMemory(addr memory.Address, data []byte) error {
	return p.mem.Write(addr, data)
}

// Step executes one instruction at pc. Registers and memory are left
// untouched when an error other than processor.ErrCPUHalt is returned.
func (p *CPU) Step(pc uint32) (uint32, error) {
	p.pc = pc
	if pc&3 != 0 {
		return pc, fmt.Errorf("%w: 0x%08X", processor.ErrMisalignedExecution, pc)
	}

	inst, err := p.mem.ReadWord(memory.Address(pc))
	if err != nil {
		return pc, err
	}
	p.stats.RX++

	p.decode(inst)
	next, err := p.execute()
	if err != nil && err != processor.ErrCPUHalt {
		return pc, fmt.Errorf("0x%08X at 0x%08X: %w", inst, pc, err)
	}

	p.regs[0] = 0
	p.pc = next
	p.stats.NumInstructions++
	return next, err
}

func (p *CPU) reg(i uint32) uint32 {
	return p.regs[i]
}

func (p *CPU) setReg(i, v uint32) {
	if i != 0 {
		p.regs[i] = v
	}
}
