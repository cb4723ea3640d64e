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

// Package platform presents the simulated board to the user. Frames are
// shown in an SDL window, decoded serial text on the terminal, and key
// presses are fed back to the serial stimulus.
package platform

import (
	"flag"
	"io"
	"sync"
)

type internalPlatform interface{}

type Config func(internalPlatform) error

type Platform interface {
	io.Writer

	Present(frame []byte) error
	SetTitle(title string)
	SetKeyboardHandler(h func(byte))

	// Done is closed when the user asks to quit.
	Done() <-chan struct{}
}

// Start runs mainLoop on the backend selected by the -headless and -text
// flags, falling back to the graphical window.
func Start(mainLoop func(Platform), configs ...Config) {
	switch {
	case boolFlag("headless"):
		headlessStart(mainLoop, configs...)
	case boolFlag("text"):
		tcellStart(mainLoop, configs...)
	default:
		graphicsStart(mainLoop, configs...)
	}
}

func boolFlag(name string) bool {
	f := flag.Lookup(name)
	if f == nil {
		return false
	}
	g, ok := f.Value.(flag.Getter)
	if !ok {
		return false
	}
	v, _ := g.Get().(bool)
	return v
}

type windowed interface {
	setWindowSize(w, h int32)
}

// ConfigWithWindowSize sets the initial window size of the graphical
// backend. Other backends ignore it.
func ConfigWithWindowSize(w, h int) Config {
	return func(p internalPlatform) error {
		if wp, ok := p.(windowed); ok {
			wp.setWindowSize(int32(w), int32(h))
		}
		return nil
	}
}

// KeyQueue buffers characters typed on the event goroutine until the
// simulation loop drains them.
type KeyQueue struct {
	mu   sync.Mutex
	keys []byte
}

func (q *KeyQueue) Push(c byte) {
	q.mu.Lock()
	q.keys = append(q.keys, c)
	q.mu.Unlock()
}

func (q *KeyQueue) Drain() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := q.keys
	q.keys = nil
	return keys
}

// quitter closes its channel exactly once.
type quitter struct {
	once sync.Once
	ch   chan struct{}
}

func (q *quitter) init() {
	q.ch = make(chan struct{})
}

func (q *quitter) quit() {
	q.once.Do(func() { close(q.ch) })
}

func (q *quitter) Done() <-chan struct{} {
	return q.ch
}
