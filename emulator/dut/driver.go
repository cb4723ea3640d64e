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

package dut

import "fmt"

// DefaultResetCycles is the warm-up window during which reset is held.
const DefaultResetCycles = 997

type DriverOption func(*Driver)

func WithTracer(t Tracer) DriverOption {
	return func(d *Driver) {
		d.tracer = t
	}
}

func WithResetCycles(n uint64) DriverOption {
	return func(d *Driver) {
		d.ResetCycles = n
	}
}

// Driver advances a Model one clock cycle at a time.
type Driver struct {
	ResetCycles uint64

	model  Model
	ports  *Ports
	tracer Tracer
	cycle  uint64
}

func NewDriver(m Model, opts ...DriverOption) *Driver {
	d := &Driver{
		ResetCycles: DefaultResetCycles,
		model:       m,
		ports:       m.Ports(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Model() Model {
	return d.model
}

func (d *Driver) Ports() *Ports {
	return d.ports
}

func (d *Driver) Cycle() uint64 {
	return d.cycle
}

func (d *Driver) Finished() bool {
	return d.model.Finished()
}

func (d *Driver) AssertReset(active bool) {
	d.ports.Reset = active
}

// ApplyResetPolicy holds reset for cycles [0, ResetCycles).
func (d *Driver) ApplyResetPolicy() {
	d.AssertReset(d.cycle < d.ResetCycles)
}

// StepCycle evaluates the low and then the high clock phase.
func (d *Driver) StepCycle() error {
	d.ports.Clock = false
	d.model.Eval()
	if err := d.dump(2*d.cycle + 1); err != nil {
		return err
	}

	d.ports.Clock = true
	d.model.Eval()
	if err := d.dump(2*d.cycle + 2); err != nil {
		return err
	}

	d.cycle++
	return nil
}

func (d *Driver) dump(t uint64) error {
	if d.tracer == nil {
		return nil
	}
	if err := d.tracer.Dump(t); err != nil {
		return fmt.Errorf("waveform trace: %w", err)
	}
	return nil
}

func (d *Driver) Close() error {
	if d.tracer == nil {
		return nil
	}
	return d.tracer.Close()
}
