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

package vga

import (
	"testing"

	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanHarness struct {
	ports  dut.Ports
	probes *dut.Registry

	x, y, enable uint32
}

func (h *scanHarness) Ports() *dut.Ports     { return &h.ports }
func (h *scanHarness) Probes() *dut.Registry { return h.probes }

func newScanHarness(t *testing.T) *scanHarness {
	h := &scanHarness{}
	names := dut.DefaultProbeNames()
	ns := dut.NewSignalMap()
	ns.Add(names[dut.ProbeVGAEnable], 1, func() uint32 { return h.enable })
	ns.Add(names[dut.ProbeVGAX], 11, func() uint32 { return h.x })
	ns.Add(names[dut.ProbeVGAY], 10, func() uint32 { return h.y })

	var err error
	h.probes, err = dut.Resolve(ns, names, dut.ProbeVGAEnable, dut.ProbeVGAX, dut.ProbeVGAY)
	require.NoError(t, err)
	return h
}

func TestSample(t *testing.T) {
	var presented [][]byte
	c := NewCollector(PresenterFunc(func(frame []byte) error {
		presented = append(presented, append([]byte(nil), frame...))
		return nil
	}))

	require.NoError(t, c.Sample(true, 3, 2, 0xF, 0x8, 0x1))
	require.NoError(t, c.Sample(false, 4, 2, 0xF, 0xF, 0xF))
	require.NoError(t, c.Sample(true, Width+10, 2, 0xF, 0xF, 0xF))

	r, g, b := c.Pixel(3, 2)
	assert.Equal(t, []uint8{0xF, 0x8, 0x1}, []uint8{r, g, b})
	i := (2*Width + 3) * 4
	assert.Equal(t, []byte{0xFF, 0x10, 0x80, 0xF0}, c.Buffer()[i:i+4])
	r, g, b = c.Pixel(4, 2)
	assert.Equal(t, []uint8{0, 0, 0}, []uint8{r, g, b})
	assert.Empty(t, presented)

	require.NoError(t, c.Sample(true, 0, Height-1, 0, 0, 0))
	assert.Len(t, presented, 1)
	assert.Equal(t, uint64(1), c.Frames())
	assert.Equal(t, byte(0xF0), presented[0][i+3])
}

func TestStep(t *testing.T) {
	h := newScanHarness(t)
	c := NewCollector(nil)
	require.NoError(t, c.Install(h))

	h.enable, h.x, h.y = 1, 10, 20
	h.ports.VgaR, h.ports.VgaG, h.ports.VgaB = 1, 2, 3
	require.NoError(t, c.Step(0))
	r, g, b := c.Pixel(10, 20)
	assert.Equal(t, []uint8{1, 2, 3}, []uint8{r, g, b})

	h.enable, h.x, h.y = 0, 0, Height-1
	require.NoError(t, c.Step(1))
	assert.Equal(t, uint64(1), c.Frames())

	c.Reset()
	assert.Zero(t, c.Frames())
}

func TestInstallMissingProbe(t *testing.T) {
	h := newScanHarness(t)
	h.probes = &dut.Registry{}
	assert.Error(t, NewCollector(nil).Install(h))
}
