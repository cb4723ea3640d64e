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

package validator

import (
	"bytes"
	"io"
	"log"
	"sync"
)

// Recorder encodes mismatches on a background goroutine so the simulation
// loop never waits for the file system.
type Recorder struct {
	out      chan Mismatch
	quit     chan struct{}
	err      error
	count    uint64
	mu       sync.Mutex
	closed   bool
	closeOut io.Closer
}

// NewRecorder writes events to w, flushing whenever bufferSize bytes are
// pending. Closing the recorder also closes w if it implements io.Closer.
func NewRecorder(w io.Writer, compress bool, queueSize, bufferSize int) *Recorder {
	r := &Recorder{
		out:  make(chan Mismatch, queueSize),
		quit: make(chan struct{}),
	}
	if c, ok := w.(io.Closer); ok {
		r.closeOut = c
	}

	go func() {
		var buffer bytes.Buffer
		defer close(r.quit)

		enc := NewEncoder(&buffer, compress)
		flush := func() {
			if r.err == nil {
				_, r.err = io.Copy(w, &buffer)
			}
			buffer.Reset()
		}

		for ev := range r.out {
			if r.err != nil {
				continue
			}
			if err := enc.Encode(&ev); err != nil {
				log.Print(err)
				r.err = err
				continue
			}
			if buffer.Len() >= bufferSize {
				log.Print("Flush mismatch events!")
				flush()
			}
		}

		if err := enc.Close(); err != nil && r.err == nil {
			r.err = err
		}
		flush()
	}()
	return r
}

func (r *Recorder) Record(m Mismatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.count++
	r.out <- m
}

func (r *Recorder) recorded() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close drains the queue and returns the first write error.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return r.err
	}
	r.closed = true
	close(r.out)
	r.mu.Unlock()

	<-r.quit
	if r.closeOut != nil {
		if err := r.closeOut.Close(); r.err == nil {
			r.err = err
		}
	}
	return r.err
}
