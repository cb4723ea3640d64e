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

// Ports are the top level pins of the hardware model. Inputs are sampled on
// the next Eval and outputs are valid after it.
type Ports struct {
	Clock, Reset bool
	UartRX       bool

	UartTX           bool
	VgaR, VgaG, VgaB uint8
}

// Signal is a read-only view of one simulated net.
type Signal interface {
	Value() uint32
	Width() int
}

// Namespace resolves hierarchical signal names such as "TOP.Top.core.pcOld".
type Namespace interface {
	Lookup(name string) (Signal, bool)
	Names() []string
}

// Model is a cycle accurate hardware model.
type Model interface {
	Ports() *Ports
	Eval()
	Finished() bool
	Signals() Namespace
}

// Tracer is a passive waveform sink, dumped after every clock edge.
type Tracer interface {
	Dump(time uint64) error
	Close() error
}

type SignalFunc struct {
	Bits int
	Get  func() uint32
}

func (s *SignalFunc) Value() uint32 {
	return s.Get()
}

func (s *SignalFunc) Width() int {
	return s.Bits
}

// SignalMap is a flat Namespace used by models written in Go.
type SignalMap struct {
	names   []string
	signals map[string]Signal
}

func NewSignalMap() *SignalMap {
	return &SignalMap{signals: make(map[string]Signal)}
}

func (m *SignalMap) Add(name string, bits int, get func() uint32) {
	if _, ok := m.signals[name]; !ok {
		m.names = append(m.names, name)
	}
	m.signals[name] = &SignalFunc{Bits: bits, Get: get}
}

func (m *SignalMap) Lookup(name string) (Signal, bool) {
	s, ok := m.signals[name]
	return s, ok
}

func (m *SignalMap) Names() []string {
	return append([]string(nil), m.names...)
}
