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

package board

// VESA 800x600@60Hz timing, one pixel per clock.
const (
	ScreenWidth  = 800
	ScreenHeight = 600

	hTotal = 1056
	vTotal = 628

	hSyncStart = ScreenWidth + 40
	hSyncEnd   = hSyncStart + 128
	vSyncStart = ScreenHeight + 1
	vSyncEnd   = vSyncStart + 4
)

// VRAMBase is the start of the RGB332 frame buffer in main memory.
const VRAMBase = 0x00100000

type display struct {
	x, y   uint32
	enable bool
	hsync  bool
	vsync  bool
}

func (d *display) reset() {
	*d = display{}
	d.update()
}

func (d *display) clock() {
	if d.x++; d.x == hTotal {
		d.x = 0
		if d.y++; d.y == vTotal {
			d.y = 0
		}
	}
	d.update()
}

func (d *display) update() {
	d.enable = d.x < ScreenWidth && d.y < ScreenHeight
	d.hsync = d.x >= hSyncStart && d.x < hSyncEnd
	d.vsync = d.y >= vSyncStart && d.y < vSyncEnd
}

// expand converts one RGB332 pixel to the 4 bit per channel DAC output.
func expand(p byte) (r, g, b uint8) {
	r3, g3, b2 := p>>5, (p>>2)&7, p&3
	return r3<<1 | r3>>2, g3<<1 | g3>>2, b2<<2 | b2
}
