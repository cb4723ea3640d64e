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

package main

import (
	"github.com/andreas-jonsson/rvlockstep/emulator/board"
	"github.com/andreas-jonsson/rvlockstep/emulator/difftest"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral/vga"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/asm"
)

// selftestImage fills video memory with a colour ramp and then echoes the
// serial line.
func selftestImage() []byte {
	return asm.New(difftest.LoaderBase).
		LI(asm.S0, board.VRAMBase).
		LI(asm.S1, board.VRAMBase+vga.Width*vga.Height).
		LI(asm.T0, 0x03020100).
		LI(asm.T1, 0x04040404).
		Label("fill").
		SW(asm.T0, asm.S0, 0).
		ADD(asm.T0, asm.T0, asm.T1).
		ADDI(asm.S0, asm.S0, 4).
		BLTU(asm.S0, asm.S1, "fill").
		LI(asm.S0, uint32(difftest.WindowRxData)).
		Label("poll").
		LW(asm.T0, asm.S0, 8).
		BEQ(asm.T0, asm.Zero, "poll").
		LBU(asm.A0, asm.S0, 0).
		Label("wait").
		LW(asm.T1, asm.S0, 12).
		BEQ(asm.T1, asm.Zero, "wait").
		SW(asm.A0, asm.S0, 4).
		J("poll").
		MustBytes()
}
