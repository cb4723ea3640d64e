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

// Package vga collects the pixels scanned out by the DUT into frames.
package vga

import (
	"fmt"

	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral"
)

const (
	Width  = 800
	Height = 600
)

// Presenter receives a complete frame of Width*Height RGBA8888 pixels
// stored as a, b, g, r bytes. The buffer is reused after Present returns.
type Presenter interface {
	Present(frame []byte) error
}

type PresenterFunc func(frame []byte) error

func (f PresenterFunc) Present(frame []byte) error {
	return f(frame)
}

type Collector struct {
	buffer    []byte
	frames    uint64
	presenter Presenter

	ports  *dut.Ports
	probes *dut.Registry
}

// NewCollector presents to p, which may be nil to only count frames.
func NewCollector(p Presenter) *Collector {
	return &Collector{
		buffer:    make([]byte, Width*Height*4),
		presenter: p,
	}
}

func (c *Collector) Frames() uint64 {
	return c.frames
}

func (c *Collector) Buffer() []byte {
	return c.buffer
}

// Pixel returns the colour at x, y as 4 bit components.
func (c *Collector) Pixel(x, y int) (r, g, b uint8) {
	i := (y*Width + x) * 4
	return c.buffer[i+3] >> 4, c.buffer[i+2] >> 4, c.buffer[i+1] >> 4
}

// Sample stores one pixel and presents the frame when the scan reaches the
// start of the last line.
func (c *Collector) Sample(enable bool, x, y uint32, r, g, b uint8) error {
	if enable && x < Width && y < Height {
		i := (int(y)*Width + int(x)) * 4
		c.buffer[i] = 0xFF
		c.buffer[i+1] = b << 4
		c.buffer[i+2] = g << 4
		c.buffer[i+3] = r << 4
	}

	if x != 0 || y != Height-1 {
		return nil
	}
	c.frames++
	if c.presenter == nil {
		return nil
	}
	return c.presenter.Present(c.buffer)
}

func (c *Collector) Install(h peripheral.Harness) error {
	c.probes = h.Probes()
	for _, id := range []dut.ProbeID{dut.ProbeVGAEnable, dut.ProbeVGAX, dut.ProbeVGAY} {
		if !c.probes.Has(id) {
			return fmt.Errorf("%s requires probe %v", c.Name(), id)
		}
	}
	c.ports = h.Ports()
	return nil
}

func (c *Collector) Name() string {
	return "VGA Frame Collector"
}

func (c *Collector) Reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.frames = 0
}

func (c *Collector) Step(uint64) error {
	p := c.ports
	return c.Sample(
		c.probes.Read(dut.ProbeVGAEnable) != 0,
		c.probes.Read(dut.ProbeVGAX),
		c.probes.Read(dut.ProbeVGAY),
		p.VgaR, p.VgaG, p.VgaB,
	)
}
