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
	"fmt"
	"strings"
)

const NumRegisters = 32

var RegisterNames = [NumRegisters]string{
	"x0", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// State is the architectural state compared between the two models.
type State struct {
	PC   uint32
	Regs [NumRegisters]uint32
}

// Diff lists the fields that differ, "pc" first followed by register names.
func (s *State) Diff(o *State) []string {
	var fields []string
	if s.PC != o.PC {
		fields = append(fields, "pc")
	}
	for i, v := range s.Regs {
		if v != o.Regs[i] {
			fields = append(fields, RegisterNames[i])
		}
	}
	return fields
}

func (s *State) Equal(o *State) bool {
	return *s == *o
}

// Dump formats the register file eight registers per row.
func (s *State) Dump() string {
	var sb strings.Builder
	for i, v := range s.Regs {
		fmt.Fprintf(&sb, "  %3s: %08x", RegisterNames[i], v)
		if (i+1)%8 == 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func RegisterIndex(name string) (int, bool) {
	for i, n := range RegisterNames {
		if n == name {
			return i, true
		}
	}
	if name == "zero" {
		return 0, true
	}
	if name == "fp" {
		return 8, true
	}
	var i int
	if _, err := fmt.Sscanf(name, "x%d", &i); err == nil && i >= 0 && i < NumRegisters && fmt.Sprintf("x%d", i) == name {
		return i, true
	}
	return -1, false
}
