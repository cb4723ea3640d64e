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
	"bytes"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/andreas-jonsson/rvlockstep/emulator/board"
	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/memory"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral/uart"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/asm"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/cpu"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/validator"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = log.New(io.Discard, "", 0)

func init() {
	log.SetOutput(io.Discard)
}

// spyProcessor records the DUT cycle of every reference step.
type spyProcessor struct {
	processor.Processor
	cycle func() uint64
	steps []uint64
}

func (p *spyProcessor) Step(pc uint32) (uint32, error) {
	p.steps = append(p.steps, p.cycle())
	return p.Processor.Step(pc)
}

// resetProbe records the reset pin as seen during each cycle.
type resetProbe struct {
	peripheral.NullDevice
	ports  *dut.Ports
	resets []bool
}

func (p *resetProbe) Install(h peripheral.Harness) error {
	p.ports = h.Ports()
	return nil
}

func (p *resetProbe) Step(uint64) error {
	p.resets = append(p.resets, p.ports.Reset)
	return nil
}

type sliceSink struct {
	events []validator.Mismatch
}

func (s *sliceSink) Record(m validator.Mismatch) {
	s.events = append(s.events, m)
}

type fixture struct {
	board  *board.Board
	driver *dut.Driver
	ref    *Reference
	cpu    *cpu.CPU
}

func newFixture(t *testing.T, prog *asm.Program) *fixture {
	t.Helper()
	c, err := cpu.NewDefaultCPU()
	require.NoError(t, err)

	f := &fixture{board: board.New(), cpu: c, ref: NewReference(c)}
	f.driver = dut.NewDriver(f.board)

	image := prog.MustBytes()
	require.NoError(t, f.ref.LoadImage(prog.Base, image))
	require.NoError(t, f.board.LoadImage(prog.Base, image))
	return f
}

func (f *fixture) session(t *testing.T, cfg Config, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(cfg, f.driver, f.ref, append([]Option{WithLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	return s
}

// checksum exercises loads, stores, branches and calls.
func checksum() *asm.Program {
	return asm.New(0).
		LI(asm.SP, 0x10000).
		LI(asm.S0, 0x2000).
		LI(asm.T0, 0).
		LI(asm.T1, 64).
		Label("fill").
		SLLI(asm.T2, asm.T0, 2).
		ADD(asm.T2, asm.T2, asm.S0).
		XORI(asm.T3, asm.T0, 0x5A).
		SW(asm.T3, asm.T2, 0).
		ADDI(asm.T0, asm.T0, 1).
		BLT(asm.T0, asm.T1, "fill").
		JAL(asm.RA, "sum").
		SW(asm.A0, asm.SP, -4).
		LH(asm.A1, asm.SP, -4).
		SRAI(asm.A2, asm.A0, 3).
		SLTU(asm.A3, asm.A2, asm.A0).
		ECALL().
		Label("sum").
		LI(asm.A0, 0).
		LI(asm.T0, 0).
		Label("loop").
		SLLI(asm.T2, asm.T0, 2).
		ADD(asm.T2, asm.T2, asm.S0).
		LW(asm.T3, asm.T2, 0).
		ADD(asm.A0, asm.A0, asm.T3).
		SLL(asm.A0, asm.A0, asm.T0).
		LBU(asm.T4, asm.T2, 1).
		OR(asm.A0, asm.A0, asm.T4).
		ADDI(asm.T0, asm.T0, 1).
		BNE(asm.T0, asm.T1, "loop").
		JALR(asm.Zero, asm.RA, 0)
}

func TestWarmupTiming(t *testing.T) {
	f := newFixture(t, checksum())
	spy := &spyProcessor{Processor: f.cpu, cycle: f.driver.Cycle}
	f.ref = NewReference(spy)

	rp := &resetProbe{}
	s := f.session(t, DefaultConfig(), WithPeripherals(rp))

	for s.Cycle() < 1000 {
		require.NoError(t, s.Step())
		assert.Equal(t, StateWarmup, s.State())
	}
	assert.Empty(t, spy.steps)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Step())
	}
	assert.Equal(t, StateRunning, s.State())
	assert.Equal(t, []uint64{1001, 1003, 1005, 1007, 1009}, spy.steps)

	for i, r := range rp.resets {
		assert.Equal(t, i < 997, r, "cycle %d", i)
	}
}

func TestLockstep(t *testing.T) {
	f := newFixture(t, checksum())
	s := f.session(t, DefaultConfig())

	sum, err := s.Run()
	require.NoError(t, err)
	assert.True(t, sum.Finished)
	assert.Zero(t, sum.Mismatches)
	assert.Zero(t, sum.StepErrors)
	assert.Nil(t, sum.First)
	assert.Greater(t, sum.Comparisons, uint64(64*10))
	assert.Equal(t, sum.Comparisons, sum.Instructions)
	assert.Equal(t, StateDone, s.State())
	assert.ErrorIs(t, s.Step(), ErrDone)
}

func multiply() *asm.Program {
	return asm.New(0).
		LI(asm.A0, 6).
		LI(asm.A1, 7).
		MUL(asm.A2, asm.A0, asm.A1).
		ADDI(asm.A3, asm.A2, 1).
		ECALL()
}

func TestMismatchPolicies(t *testing.T) {
	t.Run("Record", func(t *testing.T) {
		sink := &sliceSink{}
		cfg := DefaultConfig()
		cfg.Policy = PolicyRecord
		cfg.Recorder = sink

		var buf bytes.Buffer
		f := newFixture(t, multiply())
		s := f.session(t, cfg, WithLogger(log.New(&buf, "", 0)))

		sum, err := s.Run()
		require.NoError(t, err)
		assert.True(t, sum.Finished)
		assert.Equal(t, uint64(3), sum.Mismatches)
		assert.Equal(t, uint64(3), sum.Recorded)
		require.Len(t, sink.events, 3)

		m := sum.First
		require.NotNil(t, m)
		assert.Equal(t, uint64(1005), m.Cycle)
		// The core counter starts on the fetch edge at cycle 1000.
		assert.Equal(t, uint32(6), m.DUTCycles)
		assert.Equal(t, []string{"a2"}, m.Fields)
		assert.Equal(t, uint32(8), m.DUT.PC)
		assert.Equal(t, uint32(8), m.Reference.PC)
		assert.Equal(t, uint32(0), m.DUT.Regs[asm.A2])
		assert.Equal(t, uint32(42), m.Reference.Regs[asm.A2])
		assert.Equal(t, []string{"a2", "a3"}, sink.events[1].Fields)

		assert.Contains(t, buf.String(), "Mismatch at cycle 1005! DUT pc: 0x00000008, cycles: 0x00000006,")
		assert.Contains(t, buf.String(), "   a2: 0000002a")
	})

	t.Run("Continue", func(t *testing.T) {
		f := newFixture(t, multiply())
		s := f.session(t, DefaultConfig())
		sum, err := s.Run()
		require.NoError(t, err)
		assert.Equal(t, uint64(3), sum.Mismatches)
		assert.Zero(t, sum.Recorded)
	})

	t.Run("Abort", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Policy = PolicyAbort
		f := newFixture(t, multiply())
		s := f.session(t, cfg)

		sum, err := s.Run()
		assert.True(t, errors.Is(err, ErrMismatch))
		assert.True(t, sum.Aborted)
		assert.Equal(t, uint64(1005), sum.Cycles)
		assert.Equal(t, StateFailed, s.State())
		assert.ErrorIs(t, s.Step(), ErrDone)
	})

	t.Run("Pause", func(t *testing.T) {
		var seen []State
		var s *Session
		cfg := DefaultConfig()
		cfg.Policy = PolicyPause
		cfg.Decide = func(m *validator.Mismatch) Decision {
			seen = append(seen, s.State())
			if len(seen) == 1 {
				return DecisionContinue
			}
			return DecisionAbort
		}

		f := newFixture(t, multiply())
		s = f.session(t, cfg)
		_, err := s.Run()
		assert.ErrorIs(t, err, ErrMismatch)
		assert.Equal(t, []State{StatePaused, StatePaused}, seen)
	})
}

func TestUnresolvedProbe(t *testing.T) {
	f := newFixture(t, multiply())
	names := dut.DefaultProbeNames()
	names[dut.ProbeRxValid] = "TOP.Top.core.missing"

	_, err := NewSession(DefaultConfig(), f.driver, f.ref, WithLogger(quiet), WithProbeNames(names))
	var perr *dut.UnresolvedProbeError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"TOP.Top.core.missing"}, perr.Names)
}

// echo polls the UART and sends every received byte back.
func echo() *asm.Program {
	return asm.New(0).
		LI(asm.S0, uint32(WindowRxData)).
		LI(asm.S1, 0).
		Label("poll").
		ADDI(asm.S1, asm.S1, 1).
		LW(asm.T0, asm.S0, 8).
		BEQ(asm.T0, asm.Zero, "poll").
		LBU(asm.A0, asm.S0, 0).
		ADD(asm.A1, asm.A1, asm.A0).
		Label("wait").
		LW(asm.T1, asm.S0, 12).
		BEQ(asm.T1, asm.Zero, "wait").
		SW(asm.A0, asm.S0, 4).
		J("poll")
}

func TestSerialEcho(t *testing.T) {
	cycles := uint64(100000)
	if !testing.Short() {
		cycles = DefaultMaxCycles
	}

	f := newFixture(t, echo())
	schedule := uart.DefaultSchedule()
	schedule = append(schedule, uart.Entry{Cycle: 50000, Payload: []byte("hello\r")})

	var out bytes.Buffer
	enc := uart.NewEncoder(uart.WithSeed(1234))
	cfg := DefaultConfig()
	cfg.MaxCycles = cycles
	s := f.session(t, cfg,
		WithProbes(dut.ProbeTxTick),
		WithPeripherals(uart.NewScheduler(schedule, enc), enc, uart.NewDecoder(&out)),
	)

	sum, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, cycles, sum.Cycles)
	assert.False(t, sum.Finished)
	assert.Zero(t, sum.Mismatches)
	assert.Zero(t, sum.StepErrors)
	assert.Equal(t, (cycles-DefaultWarmupCycles)/2, sum.Comparisons)
	assert.Equal(t, "0\r998\r244\rhello\r", out.String())
}

func TestLoadImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "loader.bin", multiply().MustBytes(), 0644))
	require.NoError(t, afero.WriteFile(fs, "main.bin", []byte{1, 2, 3, 4}, 0644))

	c, err := cpu.NewDefaultCPU()
	require.NoError(t, err)
	ref := NewReference(c)
	b := board.New()

	require.NoError(t, LoadImages(fs, DefaultImages("loader.bin", "main.bin"), ref, b))

	var word [4]byte
	require.NoError(t, c.ReadMemory(MainBase, word[:]))
	assert.Equal(t, []byte{1, 2, 3, 4}, word[:])
	require.NoError(t, b.Memory().Read(MainBase, word[:]))
	assert.Equal(t, []byte{1, 2, 3, 4}, word[:])

	assert.Error(t, LoadImages(fs, []Image{{Base: 0, Path: "missing.bin"}}, ref))
	assert.Error(t, LoadImages(fs, []Image{{Base: 0x00400000, Path: "main.bin"}}, ref))
}

func TestReference(t *testing.T) {
	c, err := cpu.NewDefaultCPU()
	require.NoError(t, err)
	ref := NewReference(c)

	require.NoError(t, ref.WriteMMIO(WindowRxValid, 0x01020304))
	var buf [4]byte
	require.NoError(t, c.ReadMemory(memory.Address(WindowRxValid), buf[:]))
	assert.Equal(t, []byte{4, 3, 2, 1}, buf[:])

	require.NoError(t, c.WriteRegister(processor.RegX0+5, 55))
	st, err := ref.ReadState()
	require.NoError(t, err)
	assert.Equal(t, uint32(55), st.Regs[5])
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{PolicyContinue, PolicyRecord, PolicyAbort, PolicyPause} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	var p Policy
	assert.Error(t, p.Set("explode"))
	require.NoError(t, p.Set("ABORT"))
	assert.Equal(t, PolicyAbort, p)
}
