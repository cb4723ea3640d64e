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
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback runs the encoder into the decoder with a tick in the middle of
// every nominal bit period.
func loopback(e *Encoder, cycles int) []byte {
	var out []byte
	d := NewDecoder(nil)
	for c := 0; c < cycles; c++ {
		bit := e.SampleBit()
		if b, ok := d.Sample(c%DefaultBitWidth == DefaultBitWidth/2, bit != 0); ok {
			out = append(out, b)
		}
	}
	return out
}

func TestFrame(t *testing.T) {
	for _, b := range []byte{0x00, 0x41, 0xA5, 0xFF} {
		f := NewFrame(b)
		assert.Equal(t, byte(0), f[0])
		for i := 0; i < 8; i++ {
			assert.Equal(t, (b>>i)&1, f[1+i])
		}
		assert.Equal(t, byte(1), f[9])
		assert.Equal(t, byte(1), f[10])
	}

	e := NewEncoder()
	e.EnqueueByte(0x41)
	assert.Equal(t, FrameBits, e.Pending())
	assert.Equal(t, []byte{0, 1, 0, 0, 0, 0, 0, 1, 0, 1, 1}, e.pending)
}

func TestRoundTrip(t *testing.T) {
	e := NewEncoder(WithJitter(0))
	e.EnqueueByte(0x41)
	assert.Equal(t, []byte{0x41}, loopback(e, FrameBits*DefaultBitWidth))
}

func TestJitterBound(t *testing.T) {
	e := NewEncoder(WithSeed(42))
	seen := map[int]int{}
	for i := 0; i < 10000; i++ {
		w := e.nextWidth()
		require.GreaterOrEqual(t, w, 62)
		require.LessOrEqual(t, w, 66)
		seen[w]++
	}
	assert.Len(t, seen, 5)

	t.Run("Line", func(t *testing.T) {
		e := NewEncoder(WithSeed(7))
		e.EnqueueString("UUUU")

		var runs []int
		last, n := e.SampleBit(), 1
		for !e.Idle() {
			if b := e.SampleBit(); b == last {
				n++
			} else {
				runs = append(runs, n)
				last, n = b, 1
			}
		}
		// 0x55 alternates every bit apart from the two stop bits.
		for _, r := range runs {
			if r > 66 {
				assert.True(t, r >= 124 && r <= 132, "run %d", r)
			} else {
				assert.True(t, r >= 62, "run %d", r)
			}
		}
	})

	t.Run("Reproducible", func(t *testing.T) {
		a, b := NewEncoder(WithSeed(3)), NewEncoder(WithSeed(3))
		for i := 0; i < 100; i++ {
			require.Equal(t, a.nextWidth(), b.nextWidth())
		}
	})
}

func TestIdleLine(t *testing.T) {
	e := NewEncoder(WithJitter(0))
	assert.True(t, e.Idle())
	assert.Equal(t, byte(1), e.SampleBit())

	// 0x00 ends on the stop bits, so force a low level with a bare start bit.
	e.pending = []byte{0}
	for i := 0; i < DefaultBitWidth; i++ {
		assert.Equal(t, byte(0), e.SampleBit())
	}
	assert.True(t, e.Idle())
	for i := 0; i < 10; i++ {
		assert.Equal(t, byte(0), e.SampleBit(), "line holds last level")
	}
}

func TestScheduleScenario(t *testing.T) {
	e := NewEncoder(WithJitter(0))
	s := NewScheduler(Schedule{{Cycle: 5, Payload: []byte("0\r")}}, e)

	for c := uint64(0); c < 5; c++ {
		require.NoError(t, s.Step(c))
		assert.Zero(t, e.Pending())
	}
	require.NoError(t, s.Step(5))
	assert.Equal(t, 2*FrameBits, e.Pending())
	assert.True(t, s.Done())

	assert.Equal(t, []byte{0x30, 0x0D}, loopback(e, 2*FrameBits*DefaultBitWidth))
}

func TestScheduleOrder(t *testing.T) {
	e := NewEncoder()
	s := NewScheduler(Schedule{
		{Cycle: 10, Payload: []byte("b")},
		{Cycle: 2, Payload: []byte("a")},
		{Cycle: 10, Payload: []byte("c")},
	}, e)
	require.NoError(t, s.Step(20))

	var want []byte
	for _, c := range "abc" {
		f := NewFrame(byte(c))
		want = append(want, f[:]...)
	}
	assert.Equal(t, want, e.pending)
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		in    string
		cycle uint64
		data  string
		err   bool
	}{
		{in: `20000:0\r`, cycle: 20000, data: "0\r"},
		{in: `1:998\r244\r`, cycle: 1, data: "998\r244\r"},
		{in: `3:a:b`, cycle: 3, data: "a:b"},
		{in: `3:say "hi"`, cycle: 3, data: `say "hi"`},
		{in: `nope`, err: true},
		{in: `x:1`, err: true},
		{in: `1:\q`, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := ParseEntry(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidEntry)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cycle, e.Cycle)
			assert.Equal(t, tt.data, string(e.Payload))
		})
	}

	var s Schedule
	require.NoError(t, s.Set(`5:0\r`))
	assert.Equal(t, `5:0\r`, s.String())
}

func TestProgramUpload(t *testing.T) {
	e := ProgramUpload(100, []byte{1, 2, 3})
	assert.Equal(t, uint64(100), e.Cycle)
	assert.Equal(t, []byte{'3', '\r', 1, 2, 3}, e.Payload)
}

func TestCapture(t *testing.T) {
	var buf bytes.Buffer
	start := time.Unix(1000, 0)
	c, err := NewCapture(&buf, start)
	require.NoError(t, err)

	require.NoError(t, c.Record(DefaultClockHz/2, DirectionRX, []byte("0\r")))
	require.NoError(t, c.Record(DefaultClockHz, DirectionTX, []byte{'>'}))
	require.NoError(t, c.Close())

	r, err := pcapgo.NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, LinkTypeUser0, r.LinkType())

	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(DirectionRX), '0', '\r'}, data)
	assert.True(t, start.Add(500*time.Millisecond).Equal(ci.Timestamp))

	data, ci, err = r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(DirectionTX), '>'}, data)
	assert.True(t, start.Add(time.Second).Equal(ci.Timestamp))

	_, _, err = r.ReadPacketData()
	assert.Equal(t, io.EOF, err)
}
