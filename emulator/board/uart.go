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

// BitCycles is the number of clock cycles per serial bit.
const BitCycles = 64

const fifoSize = 16

type fifo struct {
	data       [fifoSize]byte
	head, size int
}

func (f *fifo) push(b byte) bool {
	if f.size == fifoSize {
		return false
	}
	f.data[(f.head+f.size)%fifoSize] = b
	f.size++
	return true
}

func (f *fifo) pop() {
	if f.size > 0 {
		f.head = (f.head + 1) % fifoSize
		f.size--
	}
}

func (f *fifo) peek() (byte, bool) {
	if f.size == 0 {
		return 0, false
	}
	return f.data[f.head], true
}

// receiver resynchronises on every start bit and samples in the middle of
// each bit period.
type receiver struct {
	busy    bool
	counter int
	bit     int
	shift   byte
	queue   fifo

	dropped uint64
}

func (r *receiver) reset() {
	*r = receiver{dropped: r.dropped}
}

func (r *receiver) clock(line bool) {
	if !r.busy {
		if !line {
			r.busy = true
			r.counter = BitCycles / 2
			r.bit = 0
		}
		return
	}

	if r.counter--; r.counter > 0 {
		return
	}
	r.counter = BitCycles

	switch {
	case r.bit == 0:
		if line { // Glitch, not a start bit.
			r.busy = false
			return
		}
	case r.bit <= 8:
		r.shift >>= 1
		if line {
			r.shift |= 0x80
		}
	default:
		if line && !r.queue.push(r.shift) {
			r.dropped++
		}
		r.busy = false
		return
	}
	r.bit++
}

// transmitter shifts out 11 bit frames. The divider is free running so the
// tick pulse is always in the middle of a bit period.
type transmitter struct {
	divider int
	tick    bool
	line    bool

	pending  bool
	data     byte
	frame    uint16
	bitsLeft int
}

func (t *transmitter) reset() {
	*t = transmitter{line: true}
}

func (t *transmitter) ready() bool {
	return !t.pending && t.bitsLeft == 0
}

func (t *transmitter) write(b byte) {
	if t.ready() {
		t.pending = true
		t.data = b
	}
}

func (t *transmitter) clock() {
	if t.divider++; t.divider == BitCycles {
		t.divider = 0
	}
	t.tick = t.divider == BitCycles/2

	if t.divider != 0 {
		return
	}

	if t.bitsLeft > 0 {
		t.frame >>= 1
		t.bitsLeft--
	}
	if t.bitsLeft == 0 && t.pending {
		t.pending = false
		t.frame = uint16(t.data)<<1 | 0x600
		t.bitsLeft = 11
	}

	t.line = t.bitsLeft == 0 || t.frame&1 != 0
}
