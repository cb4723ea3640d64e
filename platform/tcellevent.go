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
	"fmt"

	"github.com/gdamore/tcell"
)

func (p *tcellPlatform) initializeTcellEvents() error {
	go func() {
		s := p.screen
		for {
			switch ev := s.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
					p.quit()
					continue
				}
				p.pushKeyEvent(ev)
			case *tcell.EventResize:
				s.Sync()
				p.draw()
			case *tcell.EventInterrupt:
				p.draw()
			}
		}
	}()
	return nil
}

func (p *tcellPlatform) draw() {
	p.Lock()
	defer p.Unlock()
	p.dirty = false

	s := p.screen
	w, h := s.Size()
	s.Clear()

	status := fmt.Sprintf(" %s | frames: %d | ESC to quit ", p.title, p.frames)
	statusStyle := tcell.StyleDefault.Reverse(true)
	for x := 0; x < w; x++ {
		r := ' '
		if x < len(status) {
			r = rune(status[x])
		}
		s.SetContent(x, 0, r, nil, statusStyle)
	}

	rows := h - 1
	first := len(p.lines) - rows
	if first < 0 {
		first = 0
	}
	for y, line := range p.lines[first:] {
		for x, r := range line {
			if x >= w {
				break
			}
			s.SetContent(x, y+1, r, nil, tcell.StyleDefault)
		}
	}

	if last := len(p.lines) - 1; last >= 0 {
		s.ShowCursor(len(p.lines[last]), last-first+1)
	}
	s.Show()
}

func (p *tcellPlatform) pushKeyEvent(ev *tcell.EventKey) {
	var c byte
	switch ev.Key() {
	case tcell.KeyEnter:
		c = '\r'
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		c = 0x8
	case tcell.KeyTab:
		c = '\t'
	case tcell.KeyRune:
		r := ev.Rune()
		if r > 0x7E {
			return
		}
		c = byte(r)
	default:
		return
	}

	p.Lock()
	h := p.keyboardHandler
	p.Unlock()

	if h != nil {
		h(c)
	}
}
