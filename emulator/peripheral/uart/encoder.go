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

// Package uart generates and decodes the asynchronous serial traffic of the
// DUT. The Encoder drives the receive pin with jittered bit timing and the
// Decoder reassembles bytes from the transmit pin.
package uart

import (
	"math/rand"

	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral"
)

const (
	DefaultBitWidth = 64
	DefaultJitter   = 2
)

const FrameBits = 11

// Frame is one byte on the line: start bit, eight data bits LSB first and
// two stop bits.
type Frame [FrameBits]byte

func NewFrame(b byte) Frame {
	var f Frame
	for i := 0; i < 8; i++ {
		f[i+1] = (b >> i) & 1
	}
	f[9], f[10] = 1, 1
	return f
}

type EncoderOption func(*Encoder)

func WithBitWidth(w int) EncoderOption {
	return func(e *Encoder) {
		e.bitWidth = w
	}
}

// WithJitter sets the maximum deviation in cycles of a single bit.
func WithJitter(j int) EncoderOption {
	return func(e *Encoder) {
		e.jitter = j
	}
}

func WithSeed(seed int64) EncoderOption {
	return func(e *Encoder) {
		e.rnd = rand.New(rand.NewSource(seed))
	}
}

func WithRand(r *rand.Rand) EncoderOption {
	return func(e *Encoder) {
		e.rnd = r
	}
}

// Encoder expands queued bytes to one line level per clock cycle.
type Encoder struct {
	bitWidth, jitter int
	rnd              *rand.Rand

	pending  []byte
	expanded int
	current  byte

	ports *dut.Ports
}

func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		bitWidth: DefaultBitWidth,
		jitter:   DefaultJitter,
		current:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(1))
	}
	return e
}

func (e *Encoder) EnqueueByte(b byte) {
	f := NewFrame(b)
	e.pending = append(e.pending, f[:]...)
}

func (e *Encoder) EnqueueString(s string) {
	for i := 0; i < len(s); i++ {
		e.EnqueueByte(s[i])
	}
}

// Pending returns the number of logical bits not yet put on the line.
func (e *Encoder) Pending() int {
	return len(e.pending)
}

// Idle reports that the line is holding its last level.
func (e *Encoder) Idle() bool {
	return len(e.pending) == 0 && e.expanded == 0
}

func (e *Encoder) nextWidth() int {
	if e.jitter <= 0 {
		return e.bitWidth
	}
	return e.bitWidth + e.rnd.Intn(2*e.jitter+1) - e.jitter
}

// SampleBit returns the line level for the current cycle. When nothing is
// queued the line keeps its last level.
func (e *Encoder) SampleBit() byte {
	if e.expanded == 0 && len(e.pending) > 0 {
		e.current = e.pending[0]
		e.pending = e.pending[1:]
		if e.expanded = e.nextWidth(); e.expanded < 1 {
			e.expanded = 1
		}
	}
	if e.expanded > 0 {
		e.expanded--
	}
	return e.current
}

func (e *Encoder) Install(h peripheral.Harness) error {
	e.ports = h.Ports()
	return nil
}

func (e *Encoder) Name() string {
	return "Serial Stimulus Encoder"
}

func (e *Encoder) Reset() {
	e.pending = nil
	e.expanded = 0
	e.current = 1
}

// Step drives the receive pin for the next clock cycle.
func (e *Encoder) Step(uint64) error {
	e.ports.UartRX = e.SampleBit() != 0
	return nil
}
