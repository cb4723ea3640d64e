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

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

type ProbeID int

const (
	ProbePCOld ProbeID = iota
	ProbeCycles
	ProbeRxData
	ProbeRxValid
	ProbeTxReady
	ProbeTxTick
	ProbeVGAEnable
	ProbeVGAX
	ProbeVGAY
	ProbeRegister0
)

const NumProbes = ProbeRegister0 + 32

func ProbeRegister(i int) ProbeID {
	return ProbeRegister0 + ProbeID(i)
}

var probeKeys = [...]string{
	ProbePCOld:     "pc_old",
	ProbeCycles:    "cycles",
	ProbeRxData:    "rx_data",
	ProbeRxValid:   "rx_valid",
	ProbeTxReady:   "tx_ready",
	ProbeTxTick:    "tx_tick",
	ProbeVGAEnable: "vga_enable",
	ProbeVGAX:      "vga_x",
	ProbeVGAY:      "vga_y",
}

// String returns the key used in probe name override files.
func (id ProbeID) String() string {
	if id >= ProbeRegister0 && id < NumProbes {
		return fmt.Sprintf("reg%d", id-ProbeRegister0)
	}
	if id >= 0 && int(id) < len(probeKeys) {
		return probeKeys[id]
	}
	return fmt.Sprintf("probe(%d)", int(id))
}

func ParseProbeID(key string) (ProbeID, bool) {
	for id := ProbeID(0); id < NumProbes; id++ {
		if id.String() == key {
			return id, true
		}
	}
	return -1, false
}

// ProbeNames maps probes to hierarchical signal names.
type ProbeNames map[ProbeID]string

func DefaultProbeNames() ProbeNames {
	names := ProbeNames{
		ProbePCOld:     "TOP.Top.core.pcOld",
		ProbeCycles:    "TOP.Top.core.cycles",
		ProbeRxData:    "TOP.Top.core.mem.inner.dequeueData",
		ProbeRxValid:   "TOP.Top.core.mem.io_external_uartIn_valid",
		ProbeTxReady:   "TOP.Top.core.mem.io_external_uartOut_ready",
		ProbeTxTick:    "TOP.Top.board.uart.uart.tx.tick",
		ProbeVGAEnable: "TOP.Top.board.display.vga._timing_io_dataEnable",
		ProbeVGAX:      "TOP.Top.board.display.vga.io_info_x",
		ProbeVGAY:      "TOP.Top.board.display.vga.io_info_y",
	}
	for i := 0; i < 32; i++ {
		names[ProbeRegister(i)] = fmt.Sprintf("TOP.Top.core.reg_0.mem_ext.Register%d", i)
	}
	return names
}

// LoadProbeNames reads a JSON object of probe key to signal name and
// merges it over the defaults.
func LoadProbeNames(r io.Reader) (ProbeNames, error) {
	var overrides map[string]string
	if err := json.NewDecoder(r).Decode(&overrides); err != nil {
		return nil, err
	}

	names := DefaultProbeNames()
	for key, name := range overrides {
		id, ok := ParseProbeID(key)
		if !ok {
			return nil, fmt.Errorf("unknown probe: %s", key)
		}
		names[id] = name
	}
	return names, nil
}

// Probes required by the lockstep comparison.
func DifftestProbes() []ProbeID {
	ids := []ProbeID{ProbePCOld, ProbeCycles, ProbeRxData, ProbeRxValid, ProbeTxReady}
	for i := 0; i < 32; i++ {
		ids = append(ids, ProbeRegister(i))
	}
	return ids
}

// Probes required by the video harness.
func VideoProbes() []ProbeID {
	return []ProbeID{ProbeTxTick, ProbeVGAEnable, ProbeVGAX, ProbeVGAY}
}

type UnresolvedProbeError struct {
	Names []string
}

func (e *UnresolvedProbeError) Error() string {
	return "no handle found for signal: " + strings.Join(e.Names, ", ")
}

// Registry holds probes resolved once at startup.
type Registry struct {
	signals [NumProbes]Signal
}

// Resolve binds every requested probe or reports all missing names.
func Resolve(ns Namespace, names ProbeNames, ids ...ProbeID) (*Registry, error) {
	if names == nil {
		names = DefaultProbeNames()
	}

	r := &Registry{}
	var missing []string
	for _, id := range ids {
		if id < 0 || id >= NumProbes {
			return nil, fmt.Errorf("invalid probe: %d", int(id))
		}
		name, ok := names[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		s, ok := ns.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		r.signals[id] = s
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &UnresolvedProbeError{Names: missing}
	}
	return r, nil
}

func (r *Registry) Has(id ProbeID) bool {
	return id >= 0 && id < NumProbes && r.signals[id] != nil
}

// Read samples a resolved probe. Reading an unresolved probe is a
// programming error and panics.
func (r *Registry) Read(id ProbeID) uint32 {
	s := r.signals[id]
	if s == nil {
		panic("dut: probe not resolved: " + id.String())
	}
	return s.Value()
}

func (r *Registry) Register(i int) uint32 {
	return r.Read(ProbeRegister(i))
}
