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
	"github.com/andreas-jonsson/rvlockstep/emulator/memory"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor"
)

const (
	opLoad    = 0x03
	opMiscMem = 0x0F
	opImm     = 0x13
	opAUIPC   = 0x17
	opStore   = 0x23
	opReg     = 0x33
	opLUI     = 0x37
	opBranch  = 0x63
	opJALR    = 0x67
	opJAL     = 0x6F
	opSystem  = 0x73
)

type instructionState struct {
	inst, opcode,
	rd, rs1, rs2,
	funct3, funct7 uint32
}

func (p *CPU) decode(inst uint32) {
	p.inst = inst
	p.opcode = inst & 0x7F
	p.rd = (inst >> 7) & 0x1F
	p.funct3 = (inst >> 12) & 7
	p.rs1 = (inst >> 15) & 0x1F
	p.rs2 = (inst >> 20) & 0x1F
	p.funct7 = inst >> 25
}

func (p *CPU) immI() uint32 {
	return uint32(int32(p.inst) >> 20)
}

func (p *CPU) immS() uint32 {
	return uint32(int32(p.inst)>>25)<<5 | (p.inst>>7)&0x1F
}

func (p *CPU) immB() uint32 {
	i := p.inst
	return uint32(int32(i)>>31)<<12 | (i>>7&1)<<11 | (i>>25&0x3F)<<5 | (i>>8&0xF)<<1
}

func (p *CPU) immU() uint32 {
	return p.inst & 0xFFFFF000
}

func (p *CPU) immJ() uint32 {
	i := p.inst
	return uint32(int32(i)>>31)<<20 | (i>>12&0xFF)<<12 | (i>>20&1)<<11 | (i>>21&0x3FF)<<1
}

func (p *CPU) execute() (uint32, error) {
	pc := p.pc
	next := pc + 4

	switch p.opcode {
	case opLUI:
		p.setReg(p.rd, p.immU())
	case opAUIPC:
		p.setReg(p.rd, pc+p.immU())
	case opJAL:
		p.setReg(p.rd, next)
		return pc + p.immJ(), nil
	case opJALR:
		if p.funct3 != 0 {
			return pc, processor.ErrIllegalInstruction
		}
		target := (p.reg(p.rs1) + p.immI()) &^ 1
		p.setReg(p.rd, next)
		return target, nil
	case opBranch:
		taken, ok := p.branch()
		if !ok {
			return pc, processor.ErrIllegalInstruction
		}
		if taken {
			return pc + p.immB(), nil
		}
	case opLoad:
		return next, p.load()
	case opStore:
		return next, p.store()
	case opImm:
		v, ok := p.aluImm()
		if !ok {
			return pc, processor.ErrIllegalInstruction
		}
		p.setReg(p.rd, v)
	case opReg:
		v, ok := p.alu()
		if !ok {
			return pc, processor.ErrIllegalInstruction
		}
		p.setReg(p.rd, v)
	case opMiscMem:
		// FENCE and FENCE.I are no-ops on a single hart without caches.
	case opSystem:
		if p.inst == 0x00000073 || p.inst == 0x00100073 {
			return next, processor.ErrCPUHalt
		}
		return pc, processor.ErrIllegalInstruction
	default:
		return pc, processor.ErrIllegalInstruction
	}
	return next, nil
}

func (p *CPU) branch() (bool, bool) {
	a, b := p.reg(p.rs1), p.reg(p.rs2)
	switch p.funct3 {
	case 0:
		return a == b, true
	case 1:
		return a != b, true
	case 4:
		return int32(a) < int32(b), true
	case 5:
		return int32(a) >= int32(b), true
	case 6:
		return a < b, true
	case 7:
		return a >= b, true
	}
	return false, false
}

func (p *CPU) load() error {
	addr := memory.Address(p.reg(p.rs1) + p.immI())

	var v uint32
	switch p.funct3 {
	case 0, 4:
		b, err := p.mem.ReadByte(addr)
		if err != nil {
			return err
		}
		if v = uint32(b); p.funct3 == 0 {
			v = uint32(int32(int8(b)))
		}
	case 1, 5:
		h, err := p.mem.ReadHalf(addr)
		if err != nil {
			return err
		}
		if v = uint32(h); p.funct3 == 1 {
			v = uint32(int32(int16(h)))
		}
	case 2:
		w, err := p.mem.ReadWord(addr)
		if err != nil {
			return err
		}
		v = w
	default:
		return processor.ErrIllegalInstruction
	}

	p.stats.RX++
	p.setReg(p.rd, v)
	return nil
}

func (p *CPU) store() error {
	addr := memory.Address(p.reg(p.rs1) + p.immS())
	v := p.reg(p.rs2)

	var err error
	switch p.funct3 {
	case 0:
		err = p.mem.WriteByte(addr, byte(v))
	case 1:
		err = p.mem.WriteHalf(addr, uint16(v))
	case 2:
		err = p.mem.WriteWord(addr, v)
	default:
		return processor.ErrIllegalInstruction
	}
	if err == nil {
		p.stats.TX++
	}
	return err
}

func (p *CPU) aluImm() (uint32, bool) {
	a, imm := p.reg(p.rs1), p.immI()
	shamt := p.rs2

	switch p.funct3 {
	case 0:
		return a + imm, true
	case 1:
		if p.funct7 != 0 {
			return 0, false
		}
		return a << shamt, true
	case 2:
		return boolToWord(int32(a) < int32(imm)), true
	case 3:
		return boolToWord(a < imm), true
	case 4:
		return a ^ imm, true
	case 5:
		switch p.funct7 {
		case 0x00:
			return a >> shamt, true
		case 0x20:
			return uint32(int32(a) >> shamt), true
		}
		return 0, false
	case 6:
		return a | imm, true
	case 7:
		return a & imm, true
	}
	return 0, false
}

func (p *CPU) alu() (uint32, bool) {
	a, b := p.reg(p.rs1), p.reg(p.rs2)

	switch p.funct7 {
	case 0x00:
		switch p.funct3 {
		case 0:
			return a + b, true
		case 1:
			return a << (b & 0x1F), true
		case 2:
			return boolToWord(int32(a) < int32(b)), true
		case 3:
			return boolToWord(a < b), true
		case 4:
			return a ^ b, true
		case 5:
			return a >> (b & 0x1F), true
		case 6:
			return a | b, true
		case 7:
			return a & b, true
		}
	case 0x20:
		switch p.funct3 {
		case 0:
			return a - b, true
		case 5:
			return uint32(int32(a) >> (b & 0x1F)), true
		}
	case 0x01:
		return mulDiv(p.funct3, a, b), true
	}
	return 0, false
}

// mulDiv implements the M extension, including the defined results for
// division by zero and signed overflow.
func mulDiv(funct3, a, b uint32) uint32 {
	switch funct3 {
	case 0:
		return a * b
	case 1:
		return uint32(uint64(int64(int32(a))*int64(int32(b))) >> 32)
	case 2:
		return uint32(uint64(int64(int32(a))*int64(uint64(b))) >> 32)
	case 3:
		return uint32((uint64(a) * uint64(b)) >> 32)
	case 4:
		if b == 0 {
			return 0xFFFFFFFF
		}
		if int32(a) == -1<<31 && int32(b) == -1 {
			return a
		}
		return uint32(int32(a) / int32(b))
	case 5:
		if b == 0 {
			return 0xFFFFFFFF
		}
		return a / b
	case 6:
		if b == 0 {
			return a
		}
		if int32(a) == -1<<31 && int32(b) == -1 {
			return 0
		}
		return uint32(int32(a) % int32(b))
	default:
		if b == 0 {
			return a
		}
		return a % b
	}
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
