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

// Package difftest runs a cycle accurate DUT in lockstep with a reference
// processor and reports the first point where their architectural state
// diverges.
package difftest

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/validator"
)

var (
	ErrMismatch = errors.New("architectural mismatch")
	ErrDone     = errors.New("session is done")
)

const (
	DefaultWarmupCycles         = 1000
	DefaultCyclesPerInstruction = 2
	DefaultMaxCycles            = 1000000
)

type Config struct {
	// ResetCycles is the number of cycles reset is held from the start.
	ResetCycles uint64
	// WarmupCycles is the last cycle without comparison.
	WarmupCycles uint64
	// CyclesPerInstruction is the comparison cadence after warm up.
	CyclesPerInstruction uint64
	MaxCycles            uint64

	// EntryPC is where the reference starts executing.
	EntryPC uint32

	Policy   Policy
	Decide   DecisionHook
	Recorder validator.Sink
}

func DefaultConfig() Config {
	return Config{
		ResetCycles:          dut.DefaultResetCycles,
		WarmupCycles:         DefaultWarmupCycles,
		CyclesPerInstruction: DefaultCyclesPerInstruction,
		MaxCycles:            DefaultMaxCycles,
	}
}

type Summary struct {
	Cycles       uint64
	Comparisons  uint64
	Mismatches   uint64
	Recorded     uint64
	StepErrors   uint64
	Finished     bool
	Aborted      bool
	Instructions uint64

	// First divergence, nil if the models agreed for the whole run.
	First *validator.Mismatch
}

type Option func(*Session)

func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithPeripherals installs harness devices. They are stepped in order
// after every clock cycle.
func WithPeripherals(p ...peripheral.Peripheral) Option {
	return func(s *Session) {
		s.peripherals = append(s.peripherals, p...)
	}
}

// WithProbes resolves additional probes needed by peripherals.
func WithProbes(ids ...dut.ProbeID) Option {
	return func(s *Session) {
		s.probeIDs = append(s.probeIDs, ids...)
	}
}

func WithProbeNames(names dut.ProbeNames) Option {
	return func(s *Session) {
		s.probeNames = names
	}
}

var synchronized = [...]struct {
	window Window
	probe  dut.ProbeID
}{
	{WindowRxData, dut.ProbeRxData},
	{WindowRxValid, dut.ProbeRxValid},
	{WindowTxReady, dut.ProbeTxReady},
}

// Session owns every piece of mutable state of one lockstep run.
type Session struct {
	cfg Config
	log *log.Logger

	driver      *dut.Driver
	ref         *Reference
	probes      *dut.Registry
	probeIDs    []dut.ProbeID
	probeNames  dut.ProbeNames
	peripherals []peripheral.Peripheral

	pc      uint32
	state   State
	summary Summary
}

// NewSession resolves all probes and installs the peripherals. A nil
// reference runs the DUT without comparison. Any error is a setup failure.
func NewSession(cfg Config, d *dut.Driver, ref *Reference, opts ...Option) (*Session, error) {
	if cfg.CyclesPerInstruction == 0 {
		return nil, errors.New("cycles per instruction must be positive")
	}

	s := &Session{
		cfg:    cfg,
		log:    log.New(os.Stderr, "", 0),
		driver: d,
		ref:    ref,
		pc:     cfg.EntryPC,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Recorder == nil {
		s.cfg.Recorder = validator.Discard
	}
	d.ResetCycles = cfg.ResetCycles

	ids := s.probeIDs
	if ref != nil {
		ids = append(dut.DifftestProbes(), ids...)
	}

	var err error
	if s.probes, err = dut.Resolve(d.Model().Signals(), s.probeNames, ids...); err != nil {
		return nil, err
	}

	for _, p := range s.peripherals {
		s.log.Print("Installing ", p.Name())
		if err := p.Install(s); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		p.Reset()
	}
	return s, nil
}

func (s *Session) Ports() *dut.Ports {
	return s.driver.Ports()
}

func (s *Session) Probes() *dut.Registry {
	return s.probes
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Cycle() uint64 {
	return s.driver.Cycle()
}

// PC is the address of the next instruction the reference executes.
func (s *Session) PC() uint32 {
	return s.pc
}

func (s *Session) Summary() Summary {
	sum := s.summary
	sum.Cycles = s.driver.Cycle()
	return sum
}

// Step advances the DUT one clock cycle and, on the comparison cadence,
// the reference one instruction.
func (s *Session) Step() error {
	if s.state == StateDone || s.state == StateFailed {
		return ErrDone
	}

	s.driver.ApplyResetPolicy()
	if err := s.driver.StepCycle(); err != nil {
		return err
	}
	cycle := s.driver.Cycle()

	if s.ref != nil && cycle > s.cfg.WarmupCycles {
		if s.state == StateWarmup {
			s.state = StateRunning
		}
		if (cycle-s.cfg.WarmupCycles-1)%s.cfg.CyclesPerInstruction == 0 {
			if err := s.compareStep(cycle); err != nil {
				return err
			}
		}
	}

	for _, p := range s.peripherals {
		if err := p.Step(cycle); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}

	if cycle >= s.cfg.MaxCycles {
		s.state = StateDone
	}
	if s.driver.Finished() {
		s.summary.Finished = true
		s.state = StateDone
	}
	return nil
}

func (s *Session) synchronize() error {
	for _, sync := range synchronized {
		if err := s.ref.WriteMMIO(sync.window, s.probes.Read(sync.probe)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) dutState() processor.State {
	st := processor.State{PC: s.probes.Read(dut.ProbePCOld)}
	for i := range st.Regs {
		st.Regs[i] = s.probes.Register(i)
	}
	return st
}

func (s *Session) compareStep(cycle uint64) error {
	if err := s.synchronize(); err != nil {
		return err
	}

	pc := s.pc
	next, err := s.ref.StepOne(pc)
	switch {
	case err == nil:
	case errors.Is(err, processor.ErrCPUHalt):
		s.log.Printf("Reference halted at 0x%08x", pc)
	default:
		s.log.Print("failed on step: ", err)
		s.summary.StepErrors++
	}
	s.pc = next
	s.summary.Instructions++

	ref, err := s.ref.ReadState()
	if err != nil {
		return err
	}
	ref.PC = pc

	st := s.dutState()
	s.summary.Comparisons++
	if st.Equal(&ref) {
		return nil
	}

	s.state = StateMismatch
	m := validator.NewMismatch(cycle, s.probes.Read(dut.ProbeCycles), st, ref)
	s.summary.Mismatches++
	if s.summary.First == nil {
		first := m
		s.summary.First = &first
	}
	s.log.Print(m.Report())

	var decision Decision
	switch s.cfg.Policy {
	case PolicyRecord:
		decision = DecisionRecord
	case PolicyAbort:
		decision = DecisionAbort
	case PolicyPause:
		s.state = StatePaused
		if s.cfg.Decide != nil {
			decision = s.cfg.Decide(&m)
		}
	}

	switch decision {
	case DecisionAbort:
		s.state = StateFailed
		s.summary.Aborted = true
		return fmt.Errorf("%w at cycle %d", ErrMismatch, cycle)
	case DecisionRecord:
		s.cfg.Recorder.Record(m)
		s.summary.Recorded++
	}
	s.state = StateRunning
	return nil
}

// Run steps the session until the cycle limit or until the DUT reports
// completion.
func (s *Session) Run() (Summary, error) {
	for s.state != StateDone {
		if err := s.Step(); err != nil {
			return s.Summary(), err
		}
	}

	sum := s.Summary()
	s.log.Printf("Done after %d cycles, %d comparisons, %d mismatches.", sum.Cycles, sum.Comparisons, sum.Mismatches)
	return sum, nil
}

// Close releases the waveform trace and any peripheral that holds a
// resource.
func (s *Session) Close() error {
	err := s.driver.Close()
	for _, p := range s.peripherals {
		if c, ok := p.(peripheral.PeripheralCloser); ok {
			if e := c.Close(); err == nil {
				err = e
			}
		}
	}
	return err
}
