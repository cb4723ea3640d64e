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

// Package asm is a tiny RV32IM assembler used to build self test programs.
package asm

import (
	"encoding/binary"
	"fmt"
)

// Register numbers using the ABI names.
const (
	Zero uint32 = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

func R(op, f3, f7, rd, rs1, rs2 uint32) uint32 {
	return f7<<25 | rs2<<20 | rs1<<15 | f3<<12 | rd<<7 | op
}

func I(op, f3, rd, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | rs1<<15 | f3<<12 | rd<<7 | op
}

func S(op, f3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm) & 0xFFF
	return (u>>5)<<25 | rs2<<20 | rs1<<15 | f3<<12 | (u&0x1F)<<7 | op
}

func B(op, f3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>12&1)<<31 | (u>>5&0x3F)<<25 | rs2<<20 | rs1<<15 | f3<<12 | (u>>1&0xF)<<8 | (u>>11&1)<<7 | op
}

func U(op, rd, imm uint32) uint32 {
	return imm&0xFFFFF000 | rd<<7 | op
}

func J(op, rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>20&1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&1)<<20 | (u>>12&0xFF)<<12 | rd<<7 | op
}

type fixup struct {
	index int
	label string
	patch func(off int32) uint32
}

// Program assembles instructions at a fixed base address. Branch targets
// are labels resolved by Bytes.
type Program struct {
	Base   uint32
	words  []uint32
	labels map[string]int
	fixups []fixup
}

func New(base uint32) *Program {
	return &Program{Base: base, labels: make(map[string]int)}
}

func (p *Program) PC() uint32 {
	return p.Base + uint32(len(p.words))*4
}

func (p *Program) Emit(words ...uint32) *Program {
	p.words = append(p.words, words...)
	return p
}

func (p *Program) Label(name string) *Program {
	p.labels[name] = len(p.words)
	return p
}

func (p *Program) branch(label string, patch func(int32) uint32) *Program {
	p.fixups = append(p.fixups, fixup{len(p.words), label, patch})
	return p.Emit(0)
}

// Bytes resolves labels and returns the little endian image.
func (p *Program) Bytes() ([]byte, error) {
	for _, f := range p.fixups {
		target, ok := p.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label: %s", f.label)
		}
		p.words[f.index] = f.patch(int32(target-f.index) * 4)
	}

	buf := make([]byte, len(p.words)*4)
	for i, w := range p.words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf, nil
}

// MustBytes is like Bytes but panics on undefined labels.
func (p *Program) MustBytes() []byte {
	b, err := p.Bytes()
	if err != nil {
		panic(err)
	}
	return b
}

func (p *Program) LUI(rd, imm uint32) *Program             { return p.Emit(U(0x37, rd, imm)) }
func (p *Program) AUIPC(rd, imm uint32) *Program           { return p.Emit(U(0x17, rd, imm)) }
func (p *Program) ADDI(rd, rs1 uint32, imm int32) *Program { return p.Emit(I(0x13, 0, rd, rs1, imm)) }
func (p *Program) SLTI(rd, rs1 uint32, imm int32) *Program { return p.Emit(I(0x13, 2, rd, rs1, imm)) }
func (p *Program) XORI(rd, rs1 uint32, imm int32) *Program { return p.Emit(I(0x13, 4, rd, rs1, imm)) }
func (p *Program) ORI(rd, rs1 uint32, imm int32) *Program  { return p.Emit(I(0x13, 6, rd, rs1, imm)) }
func (p *Program) ANDI(rd, rs1 uint32, imm int32) *Program { return p.Emit(I(0x13, 7, rd, rs1, imm)) }
func (p *Program) SLLI(rd, rs1, sh uint32) *Program        { return p.Emit(I(0x13, 1, rd, rs1, int32(sh))) }
func (p *Program) SRLI(rd, rs1, sh uint32) *Program        { return p.Emit(I(0x13, 5, rd, rs1, int32(sh))) }
func (p *Program) SRAI(rd, rs1, sh uint32) *Program        { return p.Emit(I(0x13, 5, rd, rs1, int32(sh|0x400))) }
func (p *Program) ADD(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 0, 0, rd, rs1, rs2)) }
func (p *Program) SUB(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 0, 0x20, rd, rs1, rs2)) }
func (p *Program) SLL(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 1, 0, rd, rs1, rs2)) }
func (p *Program) SLT(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 2, 0, rd, rs1, rs2)) }
func (p *Program) SLTU(rd, rs1, rs2 uint32) *Program       { return p.Emit(R(0x33, 3, 0, rd, rs1, rs2)) }
func (p *Program) XOR(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 4, 0, rd, rs1, rs2)) }
func (p *Program) SRL(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 5, 0, rd, rs1, rs2)) }
func (p *Program) SRA(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 5, 0x20, rd, rs1, rs2)) }
func (p *Program) OR(rd, rs1, rs2 uint32) *Program         { return p.Emit(R(0x33, 6, 0, rd, rs1, rs2)) }
func (p *Program) AND(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 7, 0, rd, rs1, rs2)) }
func (p *Program) MUL(rd, rs1, rs2 uint32) *Program        { return p.Emit(R(0x33, 0, 1, rd, rs1, rs2)) }
func (p *Program) DIVU(rd, rs1, rs2 uint32) *Program       { return p.Emit(R(0x33, 5, 1, rd, rs1, rs2)) }
func (p *Program) REMU(rd, rs1, rs2 uint32) *Program       { return p.Emit(R(0x33, 7, 1, rd, rs1, rs2)) }

func (p *Program) LB(rd, rs1 uint32, off int32) *Program  { return p.Emit(I(0x03, 0, rd, rs1, off)) }
func (p *Program) LH(rd, rs1 uint32, off int32) *Program  { return p.Emit(I(0x03, 1, rd, rs1, off)) }
func (p *Program) LW(rd, rs1 uint32, off int32) *Program  { return p.Emit(I(0x03, 2, rd, rs1, off)) }
func (p *Program) LBU(rd, rs1 uint32, off int32) *Program { return p.Emit(I(0x03, 4, rd, rs1, off)) }
func (p *Program) LHU(rd, rs1 uint32, off int32) *Program { return p.Emit(I(0x03, 5, rd, rs1, off)) }
func (p *Program) SB(rs2, rs1 uint32, off int32) *Program { return p.Emit(S(0x23, 0, rs1, rs2, off)) }
func (p *Program) SH(rs2, rs1 uint32, off int32) *Program { return p.Emit(S(0x23, 1, rs1, rs2, off)) }
func (p *Program) SW(rs2, rs1 uint32, off int32) *Program { return p.Emit(S(0x23, 2, rs1, rs2, off)) }

func (p *Program) BEQ(rs1, rs2 uint32, label string) *Program {
	return p.branch(label, func(off int32) uint32 { return B(0x63, 0, rs1, rs2, off) })
}

func (p *Program) BNE(rs1, rs2 uint32, label string) *Program {
	return p.branch(label, func(off int32) uint32 { return B(0x63, 1, rs1, rs2, off) })
}

func (p *Program) BLT(rs1, rs2 uint32, label string) *Program {
	return p.branch(label, func(off int32) uint32 { return B(0x63, 4, rs1, rs2, off) })
}

func (p *Program) BGE(rs1, rs2 uint32, label string) *Program {
	return p.branch(label, func(off int32) uint32 { return B(0x63, 5, rs1, rs2, off) })
}

func (p *Program) BLTU(rs1, rs2 uint32, label string) *Program {
	return p.branch(label, func(off int32) uint32 { return B(0x63, 6, rs1, rs2, off) })
}

func (p *Program) BGEU(rs1, rs2 uint32, label string) *Program {
	return p.branch(label, func(off int32) uint32 { return B(0x63, 7, rs1, rs2, off) })
}

func (p *Program) JAL(rd uint32, label string) *Program {
	return p.branch(label, func(off int32) uint32 { return J(0x6F, rd, off) })
}

func (p *Program) JALR(rd, rs1 uint32, off int32) *Program {
	return p.Emit(I(0x67, 0, rd, rs1, off))
}

func (p *Program) J(label string) *Program {
	return p.JAL(Zero, label)
}

// LI loads a 32 bit constant using LUI/ADDI as needed.
func (p *Program) LI(rd uint32, v uint32) *Program {
	lo := int32(v<<20) >> 20
	hi := v - uint32(lo)
	if hi == 0 {
		return p.ADDI(rd, Zero, lo)
	}
	p.LUI(rd, hi)
	if lo != 0 {
		p.ADDI(rd, rd, lo)
	}
	return p
}

func (p *Program) NOP() *Program    { return p.ADDI(Zero, Zero, 0) }
func (p *Program) ECALL() *Program  { return p.Emit(0x00000073) }
func (p *Program) EBREAK() *Program { return p.Emit(0x00100073) }
