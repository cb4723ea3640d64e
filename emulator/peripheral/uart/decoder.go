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

package uart

import (
	"fmt"
	"io"

	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral"
)

// Decoder samples the transmit pin on every falling edge of the tick
// signal, which the DUT pulses in the middle of each bit period. Stop bits
// are not validated.
type Decoder struct {
	lastTick bool
	count    int
	data     byte

	out     io.Writer
	capture *Capture
	ports   *dut.Ports
	probes  *dut.Registry
}

// NewDecoder forwards decoded bytes to out, which may be nil.
func NewDecoder(out io.Writer) *Decoder {
	return &Decoder{out: out}
}

func (d *Decoder) SetCapture(c *Capture) {
	d.capture = c
}

// Sample feeds one cycle of the tick and line levels and returns a byte
// when the eighth data bit has been shifted in.
func (d *Decoder) Sample(tick, bit bool) (byte, bool) {
	falling := d.lastTick && !tick
	d.lastTick = tick
	if !falling {
		return 0, false
	}

	if d.count == 0 {
		if !bit {
			d.count = 1
		}
		return 0, false
	}

	d.data >>= 1
	if bit {
		d.data |= 0x80
	}
	if d.count++; d.count > 8 {
		d.count = 0
		return d.data, true
	}
	return 0, false
}

func (d *Decoder) Install(h peripheral.Harness) error {
	d.probes = h.Probes()
	if !d.probes.Has(dut.ProbeTxTick) {
		return fmt.Errorf("%s requires probe %v", d.Name(), dut.ProbeTxTick)
	}
	d.ports = h.Ports()
	return nil
}

func (d *Decoder) Name() string {
	return "Serial Transmit Decoder"
}

func (d *Decoder) Reset() {
	d.lastTick, d.count, d.data = false, 0, 0
}

func (d *Decoder) Step(cycle uint64) error {
	b, ok := d.Sample(d.probes.Read(dut.ProbeTxTick) != 0, d.ports.UartTX)
	if !ok {
		return nil
	}
	if d.out != nil {
		if _, err := d.out.Write([]byte{b}); err != nil {
			return err
		}
	}
	if d.capture != nil {
		return d.capture.Record(cycle, DirectionTX, []byte{b})
	}
	return nil
}
