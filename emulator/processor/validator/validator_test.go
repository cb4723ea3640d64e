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

package validator

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/andreas-jonsson/rvlockstep/emulator/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closeBuffer) Close() error {
	b.closed = true
	return nil
}

func testMismatch(cycle uint64) Mismatch {
	var dut, ref processor.State
	dut.PC, ref.PC = 0x100, 0x100
	dut.Regs[10] = 1
	ref.Regs[10] = 2
	return NewMismatch(cycle, uint32(cycle-999), dut, ref)
}

func TestMismatch(t *testing.T) {
	m := testMismatch(1001)
	assert.Equal(t, []string{"a0"}, m.Fields)
	assert.Equal(t, uint32(2), m.DUTCycles)

	report := m.Report()
	assert.True(t, strings.HasPrefix(report, "Mismatch at cycle 1001! DUT pc: 0x00000100, cycles: 0x00000002, reference pc: 0x00000100 (a0)\n"))
	assert.Contains(t, report, "   a0: 00000001")
	assert.Contains(t, report, "   a0: 00000002")
}

func TestRecorder(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var out closeBuffer
		r := NewRecorder(&out, compress, 4, 64)
		for i := 0; i < 20; i++ {
			r.Record(testMismatch(uint64(1001 + 2*i)))
		}
		assert.Equal(t, uint64(20), r.recorded())
		require.NoError(t, r.Close())
		assert.True(t, out.closed)

		// Recording after close is ignored.
		r.Record(testMismatch(0))
		require.NoError(t, r.Close())

		events, err := Decode(&out.Buffer)
		require.NoError(t, err)
		require.Len(t, events, 20)
		assert.Equal(t, uint64(1001), events[0].Cycle)
		assert.Equal(t, uint64(1039), events[19].Cycle)
		assert.Equal(t, uint32(2), events[3].Reference.Regs[10])
	}
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard.Record(testMismatch(1)) })
}
