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

package board

import (
	"github.com/andreas-jonsson/rvlockstep/emulator/memory"
)

// MMIO registers seen by the core.
const (
	RegRxData   = 0xFFFFF000
	RegTxData   = 0xFFFFF004
	RegRxValid  = 0xFFFFF008
	RegTxReady  = 0xFFFFF00C
	mmioEnd     = 0xFFFFF010
	mmioDecoder = 0xFFFC0000
)

type aluOp int

const (
	aluAdd aluOp = iota
	aluSub
	aluSll
	aluSlt
	aluSltu
	aluXor
	aluSrl
	aluSra
	aluOr
	aluAnd
	aluPassB
)

const (
	srcReg = iota
	srcPC
	srcImm
	srcZero
)

const (
	wbALU = iota
	wbMem
	wbLink
)

// control holds the decoded control lines of one instruction.
type control struct {
	rd, rs1, rs2 uint32
	imm          uint32

	op         aluOp
	srcA, srcB int
	wb         int
	regWrite   bool

	load, store bool
	width       uint32

	branch, jump, jumpReg bool
	cond                  uint32
	halt                  bool
}

func immediate(inst uint32) (i, s, b, u, j uint32) {
	i = uint32(int32(inst) >> 20)
	s = uint32(int32(inst)>>25)<<5 | inst>>7&0x1F
	b = uint32(int32(inst)>>31)<<12 | inst<<4&0x800 | inst>>20&0x7E0 | inst>>7&0x1E
	u = inst & 0xFFFFF000
	j = uint32(int32(inst)>>31)<<20 | inst&0xFF000 | inst>>9&0x800 | inst>>20&0x7FE
	return
}

// decode drives the control lines. Opcodes outside RV32I leave every
// enable low, so the instruction retires without side effects.
func decode(inst uint32) control {
	immI, immS, immB, immU, immJ := immediate(inst)
	funct3 := inst >> 12 & 7
	funct7 := inst >> 25

	c := control{
		rd:    inst >> 7 & 0x1F,
		rs1:   inst >> 15 & 0x1F,
		rs2:   inst >> 20 & 0x1F,
		width: funct3,
		cond:  funct3,
	}

	switch inst & 0x7F {
	case 0x37: // LUI
		c.imm, c.srcA, c.srcB, c.op, c.regWrite = immU, srcZero, srcImm, aluAdd, true
	case 0x17: // AUIPC
		c.imm, c.srcA, c.srcB, c.op, c.regWrite = immU, srcPC, srcImm, aluAdd, true
	case 0x6F: // JAL
		c.imm, c.jump, c.wb, c.regWrite = immJ, true, wbLink, true
	case 0x67: // JALR
		if funct3 == 0 {
			c.imm, c.jumpReg, c.wb, c.regWrite = immI, true, wbLink, true
		}
	case 0x63:
		if funct3 != 2 && funct3 != 3 {
			c.imm, c.branch = immB, true
		}
	case 0x03:
		if funct3 != 3 && funct3 < 6 {
			c.imm, c.srcB, c.op, c.load, c.wb, c.regWrite = immI, srcImm, aluAdd, true, wbMem, true
		}
	case 0x23:
		if funct3 < 3 {
			c.imm, c.srcB, c.op, c.store = immS, srcImm, aluAdd, true
		}
	case 0x13:
		c.imm, c.srcB, c.regWrite = immI, srcImm, true
		c.op = aluFunction(funct3, funct7&0x20 != 0 && funct3 == 5)
		if funct3 == 1 && funct7 != 0 || funct3 == 5 && funct7&^0x20 != 0 {
			c.regWrite = false
		}
	case 0x33:
		if funct7 == 0 || funct7 == 0x20 && (funct3 == 0 || funct3 == 5) {
			c.op, c.regWrite = aluFunction(funct3, funct7 == 0x20), true
		}
	case 0x73:
		c.halt = inst == 0x00000073 || inst == 0x00100073
	}
	return c
}

func aluFunction(funct3 uint32, alt bool) aluOp {
	switch funct3 {
	case 0:
		if alt {
			return aluSub
		}
		return aluAdd
	case 1:
		return aluSll
	case 2:
		return aluSlt
	case 3:
		return aluSltu
	case 4:
		return aluXor
	case 5:
		if alt {
			return aluSra
		}
		return aluSrl
	case 6:
		return aluOr
	default:
		return aluAnd
	}
}

func alu(op aluOp, a, b uint32) uint32 {
	switch op {
	case aluSub:
		return a - b
	case aluSll:
		return a << (b & 31)
	case aluSlt:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case aluSltu:
		if a < b {
			return 1
		}
		return 0
	case aluXor:
		return a ^ b
	case aluSrl:
		return a >> (b & 31)
	case aluSra:
		return uint32(int32(a) >> (b & 31))
	case aluOr:
		return a | b
	case aluAnd:
		return a & b
	case aluPassB:
		return b
	default:
		return a + b
	}
}

func compare(cond, a, b uint32) bool {
	switch cond {
	case 0:
		return a == b
	case 1:
		return a != b
	case 4:
		return int32(a) < int32(b)
	case 5:
		return int32(a) >= int32(b)
	case 6:
		return a < b
	default:
		return a >= b
	}
}

// mmio is the I/O state latched by the core on the fetch edge. The execute
// edge only ever observes this snapshot.
type mmio struct {
	rxData  uint32
	rxValid uint32
	txReady uint32
}

// core is a multicycle RV32I implementation. Even edges fetch, odd edges
// execute, so every instruction takes two clock cycles.
type core struct {
	pc, pcOld uint32
	inst      uint32
	execute   bool
	halted    bool
	entry     uint32

	regs    [32]uint32
	cycles  uint32
	instret uint32
	snap    mmio

	ram *memory.Map
	rx  *receiver
	tx  *transmitter
}

func (c *core) reset() {
	c.pc = c.entry
	c.pcOld = 0
	c.inst = 0
	c.execute = false
	c.halted = false
	c.cycles = 0
	c.instret = 0
	c.snap = mmio{}
}

func (c *core) clock() {
	if c.halted {
		return
	}
	c.cycles++

	if !c.execute {
		c.inst, _ = c.ram.ReadWord(memory.Address(c.pc))
		data, valid := c.rx.queue.peek()
		c.snap = mmio{rxData: uint32(data), rxValid: boolToWord(valid), txReady: boolToWord(c.tx.ready())}
		c.execute = true
		return
	}
	c.execute = false

	ctl := decode(c.inst)
	rs1, rs2 := c.regs[ctl.rs1], c.regs[ctl.rs2]

	var a, b uint32
	switch ctl.srcA {
	case srcPC:
		a = c.pc
	case srcZero:
		a = 0
	default:
		a = rs1
	}
	if ctl.srcB == srcImm {
		b = ctl.imm
	} else {
		b = rs2
	}
	result := alu(ctl.op, a, b)

	next := c.pc + 4
	switch {
	case ctl.jump:
		next = c.pc + ctl.imm
	case ctl.jumpReg:
		next = (rs1 + ctl.imm) &^ 1
	case ctl.branch && compare(ctl.cond, rs1, rs2):
		next = c.pc + ctl.imm
	}

	var wb uint32
	switch ctl.wb {
	case wbMem:
		wb = c.load(result, ctl.width)
	case wbLink:
		wb = c.pc + 4
	default:
		wb = result
	}
	if ctl.store {
		c.store(result, ctl.width, rs2)
	}
	if ctl.regWrite && ctl.rd != 0 {
		c.regs[ctl.rd] = wb
	}

	c.pcOld = c.pc
	c.pc = next
	c.instret++
	c.halted = ctl.halt
}

func (c *core) readByte(addr uint32) byte {
	if addr >= mmioDecoder {
		if addr >= RegRxData && addr < mmioEnd {
			var word uint32
			switch addr &^ 3 {
			case RegRxData:
				word = c.snap.rxData
			case RegRxValid:
				word = c.snap.rxValid
			case RegTxReady:
				word = c.snap.txReady
			}
			return byte(word >> (8 * (addr & 3)))
		}
		return 0
	}
	v, _ := c.ram.ReadByte(memory.Address(addr))
	return v
}

func (c *core) load(addr, width uint32) uint32 {
	size := uint32(1) << (width & 3)
	var v uint32
	for i := uint32(0); i < size; i++ {
		v |= uint32(c.readByte(addr+i)) << (8 * i)
	}

	if addr < RegRxData+4 && addr+size > RegRxData && c.snap.rxValid != 0 {
		c.rx.queue.pop()
	}

	switch width {
	case 0:
		return uint32(int32(int8(v)))
	case 1:
		return uint32(int32(int16(v)))
	}
	return v
}

func (c *core) store(addr, width, v uint32) {
	if addr >= mmioDecoder {
		if addr&^3 == RegTxData {
			c.tx.write(byte(v))
		}
		return
	}

	size := 1 << (width & 3)
	for i := 0; i < size; i++ {
		c.ram.WriteByte(memory.Address(addr+uint32(i)), byte(v>>(8*i)))
	}
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
