//go:build sdl
// +build sdl

/*
Copyright (c) 2019-2020 Andreas T Jonsson

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

package platform

import (
	"fmt"

	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral/vga"
	"github.com/veandco/go-sdl2/sdl"
)

func (p *sdlPlatform) initializeVideo() error {
	var err error
	sdl.Do(func() {
		if err = sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
			return
		}

		sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")
		if p.window, p.renderer, err = sdl.CreateWindowAndRenderer(p.windowSizeX, p.windowSizeY, p.sdlWindowFlags); err != nil {
			return
		}
		p.window.SetTitle("rvlockstep")
		if p.texture, err = p.renderer.CreateTexture(sdl.PIXELFORMAT_RGBA8888, sdl.TEXTUREACCESS_STREAMING, vga.Width, vga.Height); err != nil {
			return
		}
		err = p.renderer.SetLogicalSize(vga.Width, vga.Height)
	})
	if err != nil {
		return err
	}

	registerCleanup(p, shutdownVideo)
	return nil
}

func shutdownVideo(p *sdlPlatform) {
	sdl.Do(func() {
		p.texture.Destroy()
		p.renderer.Destroy()
		p.window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
	})
}

func (p *sdlPlatform) Present(frame []byte) error {
	if len(frame) != vga.Width*vga.Height*4 {
		return fmt.Errorf("invalid frame size: %d", len(frame))
	}

	var err error
	sdl.Do(func() {
		if err = p.texture.Update(nil, frame, vga.Width*4); err != nil {
			return
		}
		p.renderer.Clear()
		if err = p.renderer.Copy(p.texture, nil, nil); err != nil {
			return
		}
		p.renderer.Present()
	})
	return err
}

func (p *sdlPlatform) SetTitle(title string) {
	sdl.Do(func() {
		p.window.SetTitle(title)
	})
}
