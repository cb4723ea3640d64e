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

package processor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	var a, b State
	a.PC, b.PC = 0x8000, 0x8000
	a.Regs[1], b.Regs[1] = 0x10, 0x10

	t.Run("Equal", func(t *testing.T) {
		assert.True(t, a.Equal(&b))
		assert.Empty(t, a.Diff(&b))
	})

	t.Run("Diff", func(t *testing.T) {
		c := b
		c.PC = 0x8004
		c.Regs[2] = 1
		c.Regs[31] = 2
		assert.False(t, a.Equal(&c))
		assert.Equal(t, []string{"pc", "sp", "t6"}, a.Diff(&c))
	})

	t.Run("Dump", func(t *testing.T) {
		lines := strings.Split(strings.TrimRight(a.Dump(), "\n"), "\n")
		assert.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "   x0: 00000000   ra: 00000010"))
	})
}

func TestRegisterIndex(t *testing.T) {
	for name, want := range map[string]int{"x0": 0, "zero": 0, "ra": 1, "fp": 8, "s0": 8, "x17": 17, "t6": 31} {
		i, ok := RegisterIndex(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, i, name)
	}
	for _, name := range []string{"x32", "x01", "pc", ""} {
		_, ok := RegisterIndex(name)
		assert.False(t, ok, name)
	}
}
