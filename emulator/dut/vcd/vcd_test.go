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

package vcd

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNamespace(clk *uint32, count *uint32) *dut.SignalMap {
	ns := dut.NewSignalMap()
	ns.Add("TOP.clock", 1, func() uint32 { return *clk })
	ns.Add("TOP.Top.core.cycles", 8, func() uint32 { return *count })
	ns.Add("TOP.Top.board.led", 1, func() uint32 { return 0 })
	return ns
}

func TestWriter(t *testing.T) {
	var clk, count uint32
	var buf bytes.Buffer

	w := New(&buf, testNamespace(&clk, &count))
	require.NoError(t, w.Dump(1))
	clk = 1
	count = 5
	require.NoError(t, w.Dump(2))
	require.NoError(t, w.Dump(3))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.Contains(t, out, "$scope module TOP $end\n$var wire 1 ! clock $end\n")
	assert.Contains(t, out, "$scope module Top $end\n$scope module core $end\n$var wire 8 \" cycles $end\n$upscope $end\n$scope module board $end\n")
	assert.Contains(t, out, "#1\n0!\nb0 \"\n0#\n#2\n1!\nb101 \"\n#3\n")
	assert.Equal(t, strings.Count(out, "$scope"), strings.Count(out, "$upscope"))
}

func TestGzipAndFilter(t *testing.T) {
	var clk, count uint32
	var buf bytes.Buffer

	w := New(&buf, testNamespace(&clk, &count), WithGzip, WithFilter(func(name string) bool {
		return strings.HasPrefix(name, "TOP.Top.core")
	}))
	require.NoError(t, w.Dump(1))
	require.NoError(t, w.Close())

	r, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "cycles")
	assert.NotContains(t, out, "clock")
	assert.True(t, strings.HasSuffix(out, "#1\nb0 !\n"))
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "!", identifier(0))
	assert.Equal(t, "~", identifier(93))
	assert.Equal(t, "!!", identifier(94))
	seen := map[string]bool{}
	for i := 0; i < 10000; i++ {
		id := identifier(i)
		assert.False(t, seen[id], id)
		seen[id] = true
	}
}
