/*
Copyright (C) 2019-2020 Andreas T Jonsson

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package validator records architectural mismatches found by the
// lockstep comparison so they can be inspected after the run.
package validator

import (
	"fmt"
	"strings"

	"github.com/andreas-jonsson/rvlockstep/emulator/processor"
)

const (
	DefaultQueueSize  = 1024
	DefaultBufferSize = 0x100000 // 1MB
)

// Mismatch is one comparison step where the models disagreed.
type Mismatch struct {
	Cycle     uint64          `json:"cycle"`
	DUTCycles uint32          `json:"dut_cycles"`
	DUT       processor.State `json:"dut"`
	Reference processor.State `json:"reference"`
	Fields    []string        `json:"fields"`
}

// NewMismatch builds the event. dutCycles is the cycle counter of the core
// itself, which only runs while the core is out of reset.
func NewMismatch(cycle uint64, dutCycles uint32, dut, ref processor.State) Mismatch {
	return Mismatch{
		Cycle:     cycle,
		DUTCycles: dutCycles,
		DUT:       dut,
		Reference: ref,
		Fields:    dut.Diff(&ref),
	}
}

// Report formats the mismatch the way it is printed on the console.
func (m *Mismatch) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mismatch at cycle %d! DUT pc: 0x%08x, cycles: 0x%08x, reference pc: 0x%08x (%s)\n",
		m.Cycle, m.DUT.PC, m.DUTCycles, m.Reference.PC, strings.Join(m.Fields, ", "))
	sb.WriteString("DUT:\n")
	sb.WriteString(m.DUT.Dump())
	sb.WriteString("Reference:\n")
	sb.WriteString(m.Reference.Dump())
	return sb.String()
}
