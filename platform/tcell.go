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

package platform

import (
	"log"
	"sync"

	"github.com/gdamore/tcell"
)

// Number of serial lines the terminal backend keeps.
const scrollback = 1000

type tcellPlatform struct {
	sync.Mutex
	quitter

	screen tcell.Screen
	title  string
	frames uint64

	lines [][]rune
	dirty bool

	keyboardHandler func(byte)
}

var tcellPlatformInstance tcellPlatform

func tcellStart(mainLoop func(Platform), configs ...Config) {
	p := &tcellPlatformInstance
	p.quitter.init()
	p.lines = [][]rune{nil}

	for _, cfg := range configs {
		if err := cfg(p); err != nil {
			log.Fatal(err)
		}
	}

	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)

	var err error
	if p.screen, err = tcell.NewScreen(); err != nil {
		log.Fatal(err)
	}

	s := p.screen
	if err = s.Init(); err != nil {
		log.Fatal(err)
	}
	defer s.Fini()

	s.DisableMouse()
	s.Clear()

	if err := p.initializeTcellEvents(); err != nil {
		log.Fatal(err)
	}
	mainLoop(p)
}

// Write appends serial output to the scrollback and schedules a redraw.
func (p *tcellPlatform) Write(b []byte) (int, error) {
	p.Lock()
	for _, c := range b {
		last := len(p.lines) - 1
		switch c {
		case '\r':
		case '\n':
			p.lines = append(p.lines, nil)
		case 0x8:
			if n := len(p.lines[last]); n > 0 {
				p.lines[last] = p.lines[last][:n-1]
			}
		default:
			p.lines[last] = append(p.lines[last], rune(c))
		}
	}
	if n := len(p.lines); n > scrollback {
		p.lines = p.lines[n-scrollback:]
	}
	p.Unlock()

	p.redraw()
	return len(b), nil
}

// Present only counts frames, the terminal cannot show the display.
func (p *tcellPlatform) Present([]byte) error {
	p.Lock()
	p.frames++
	p.Unlock()
	p.redraw()
	return nil
}

func (p *tcellPlatform) SetTitle(title string) {
	p.Lock()
	p.title = title
	p.Unlock()
	p.redraw()
}

func (p *tcellPlatform) SetKeyboardHandler(h func(byte)) {
	p.Lock()
	p.keyboardHandler = h
	p.Unlock()
}

func (p *tcellPlatform) redraw() {
	p.Lock()
	if p.dirty {
		p.Unlock()
		return
	}
	p.dirty = true
	p.Unlock()
	p.screen.PostEvent(tcell.NewEventInterrupt(nil))
}
