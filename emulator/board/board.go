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

// Package board is a cycle accurate model of the FPGA board the firmware
// runs on: a multicycle RV32I core, 2 MiB of RAM, a UART and an 800x600 VGA
// scan out. It implements dut.Model.
package board

import (
	"fmt"

	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/memory"
)

const (
	RAMBase = 0x00000000
	RAMSize = 2 * 1024 * 1024
)

type Option func(*Board)

// WithEntry sets the pc the core starts from when it leaves reset.
func WithEntry(pc uint32) Option {
	return func(b *Board) {
		b.core.entry = pc
	}
}

type Board struct {
	ports   dut.Ports
	signals *dut.SignalMap

	lastClock bool
	resetSync [2]bool

	ram     *memory.Map
	core    core
	rx      receiver
	tx      transmitter
	display display
}

func New(opts ...Option) *Board {
	b := &Board{ram: memory.NewMap()}
	if err := b.ram.Map(RAMBase, RAMSize); err != nil {
		panic(err)
	}

	b.core.ram = b.ram
	b.core.rx = &b.rx
	b.core.tx = &b.tx
	for _, opt := range opts {
		opt(b)
	}

	b.resetSync = [2]bool{true, true}
	b.core.reset()
	b.rx.reset()
	b.tx.reset()
	b.display.reset()
	b.ports.UartRX = true
	b.updateOutputs()

	b.signals = b.buildSignals()
	return b
}

// LoadImage copies data into RAM, as the FPGA bitstream does with the
// initial block RAM contents.
func (b *Board) LoadImage(base uint32, data []byte) error {
	if err := b.ram.Write(memory.Address(base), data); err != nil {
		return fmt.Errorf("board image at 0x%08X: %w", base, err)
	}
	return nil
}

func (b *Board) Memory() memory.Memory {
	return b.ram
}

func (b *Board) Ports() *dut.Ports {
	return &b.ports
}

func (b *Board) Signals() dut.Namespace {
	return b.signals
}

// Finished reports that the core retired ECALL or EBREAK.
func (b *Board) Finished() bool {
	return b.core.halted
}

// Eval settles the design. State only changes on a rising clock edge.
func (b *Board) Eval() {
	rising := b.ports.Clock && !b.lastClock
	b.lastClock = b.ports.Clock
	if rising {
		b.posedge()
	}
	b.updateOutputs()
}

func (b *Board) posedge() {
	inReset := b.resetSync[1]
	b.resetSync[1] = b.resetSync[0]
	b.resetSync[0] = b.ports.Reset

	if inReset {
		b.core.reset()
		b.rx.reset()
		b.tx.reset()
		b.display.reset()
		return
	}

	b.core.clock()
	b.rx.clock(b.ports.UartRX)
	b.tx.clock()
	b.display.clock()
}

func (b *Board) updateOutputs() {
	b.ports.UartTX = b.tx.line
	if !b.display.enable {
		b.ports.VgaR, b.ports.VgaG, b.ports.VgaB = 0, 0, 0
		return
	}
	p, _ := b.ram.ReadByte(memory.Address(VRAMBase + b.display.y*ScreenWidth + b.display.x))
	b.ports.VgaR, b.ports.VgaG, b.ports.VgaB = expand(p)
}

func (b *Board) buildSignals() *dut.SignalMap {
	ns := dut.NewSignalMap()
	bit := func(v *bool) func() uint32 {
		return func() uint32 { return boolToWord(*v) }
	}
	word := func(v *uint32) func() uint32 {
		return func() uint32 { return *v }
	}

	ns.Add("TOP.clock", 1, bit(&b.ports.Clock))
	ns.Add("TOP.reset", 1, bit(&b.ports.Reset))
	ns.Add("TOP.io_uart_rx", 1, bit(&b.ports.UartRX))
	ns.Add("TOP.io_uart_tx", 1, bit(&b.ports.UartTX))
	ns.Add("TOP.io_vga_r", 4, func() uint32 { return uint32(b.ports.VgaR) })
	ns.Add("TOP.io_vga_g", 4, func() uint32 { return uint32(b.ports.VgaG) })
	ns.Add("TOP.io_vga_b", 4, func() uint32 { return uint32(b.ports.VgaB) })
	ns.Add("TOP.Top.reset", 1, bit(&b.resetSync[1]))

	c := &b.core
	ns.Add("TOP.Top.core.pc", 32, word(&c.pc))
	ns.Add("TOP.Top.core.pcOld", 32, word(&c.pcOld))
	ns.Add("TOP.Top.core.inst", 32, word(&c.inst))
	ns.Add("TOP.Top.core.execute", 1, bit(&c.execute))
	ns.Add("TOP.Top.core.halted", 1, bit(&c.halted))
	ns.Add("TOP.Top.core.cycles", 32, word(&c.cycles))
	ns.Add("TOP.Top.core.instret", 32, word(&c.instret))
	ns.Add("TOP.Top.core.mem.inner.dequeueData", 32, word(&c.snap.rxData))
	ns.Add("TOP.Top.core.mem.io_external_uartIn_valid", 1, word(&c.snap.rxValid))
	ns.Add("TOP.Top.core.mem.io_external_uartOut_ready", 1, word(&c.snap.txReady))
	for i := range c.regs {
		ns.Add(fmt.Sprintf("TOP.Top.core.reg_0.mem_ext.Register%d", i), 32, word(&c.regs[i]))
	}

	ns.Add("TOP.Top.board.uart.uart.rx.busy", 1, bit(&b.rx.busy))
	ns.Add("TOP.Top.board.uart.uart.rx.count", 5, func() uint32 { return uint32(b.rx.queue.size) })
	ns.Add("TOP.Top.board.uart.uart.tx.tick", 1, bit(&b.tx.tick))
	ns.Add("TOP.Top.board.uart.uart.tx.ready", 1, func() uint32 { return boolToWord(b.tx.ready()) })

	d := &b.display
	ns.Add("TOP.Top.board.display.vga._timing_io_dataEnable", 1, bit(&d.enable))
	ns.Add("TOP.Top.board.display.vga._timing_io_hSync", 1, bit(&d.hsync))
	ns.Add("TOP.Top.board.display.vga._timing_io_vSync", 1, bit(&d.vsync))
	ns.Add("TOP.Top.board.display.vga.io_info_x", 11, word(&d.x))
	ns.Add("TOP.Top.board.display.vga.io_info_y", 10, word(&d.y))
	return ns
}
