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
	"time"

	"github.com/veandco/go-sdl2/sdl"
)

func (p *sdlPlatform) initializeSDLEvents() error {
	var err error
	sdl.Do(func() {
		err = sdl.InitSubSystem(sdl.INIT_EVENTS)
	})
	if err != nil {
		return err
	}

	p.eventQuit = make(chan struct{})
	registerCleanup(p, shutdownSDLEvents)

	go func() {
		ticker := time.NewTicker(time.Second / 30)
		defer ticker.Stop()

		for {
			select {
			case <-p.eventQuit:
				close(p.eventQuit)
				return
			case <-ticker.C:
				sdl.Do(func() {
					for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
						switch ev := event.(type) {
						case *sdl.QuitEvent:
							p.quit()
						case *sdl.KeyboardEvent:
							if ev.Type == sdl.KEYDOWN {
								p.sdlProcessKey(ev)
							}
						}
					}
				})
			}
		}
	}()
	return nil
}

func shutdownSDLEvents(p *sdlPlatform) {
	p.eventQuit <- struct{}{}
	<-p.eventQuit
	sdl.Do(func() {
		sdl.QuitSubSystem(sdl.INIT_EVENTS)
	})
}

func (p *sdlPlatform) sdlProcessKey(ev *sdl.KeyboardEvent) {
	if ev.Keysym.Scancode == sdl.SCANCODE_Q {
		p.quit()
		return
	}
	if c, ok := sdlKeyToASCII(ev.Keysym); ok && p.keyboardHandler != nil {
		p.keyboardHandler(c)
	}
}

func (p *sdlPlatform) SetKeyboardHandler(h func(byte)) {
	sdl.Do(func() {
		p.keyboardHandler = h
	})
}

func sdlKeyToASCII(key sdl.Keysym) (byte, bool) {
	switch key.Sym {
	case sdl.K_RETURN, sdl.K_KP_ENTER:
		return '\r', true
	case sdl.K_BACKSPACE:
		return 0x8, true
	case sdl.K_ESCAPE:
		return 0x1B, true
	}

	if key.Sym < 0x20 || key.Sym > 0x7E {
		return 0, false
	}
	c := byte(key.Sym)
	if uint16(key.Mod)&uint16(sdl.KMOD_SHIFT) != 0 && c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c, true
}
