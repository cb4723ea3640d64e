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

// Package vcd writes Value Change Dump waveforms of a dut.Namespace.
package vcd

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
)

type probe struct {
	id, name string
	signal   dut.Signal
	last     uint32
	dumped   bool
}

type Writer struct {
	closer io.Closer
	gz     *gzip.Writer
	w      *bufio.Writer
	probes []probe
}

type config struct {
	compress bool
	filter   func(string) bool
}

type Option func(*config)

// WithGzip compresses the output stream.
func WithGzip(c *config) {
	c.compress = true
}

// WithFilter limits the trace to the accepted signal names.
func WithFilter(filter func(name string) bool) Option {
	return func(c *config) {
		c.filter = filter
	}
}

// New traces the signals of ns. Closing the Writer also closes out if it
// implements io.Closer.
func New(out io.Writer, ns dut.Namespace, opts ...Option) *Writer {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &Writer{}
	if c, ok := out.(io.Closer); ok {
		w.closer = c
	}
	if cfg.compress {
		w.gz = gzip.NewWriter(out)
		out = w.gz
	}
	w.w = bufio.NewWriter(out)

	for _, name := range ns.Names() {
		if cfg.filter != nil && !cfg.filter(name) {
			continue
		}
		if s, ok := ns.Lookup(name); ok {
			w.probes = append(w.probes, probe{id: identifier(len(w.probes)), name: name, signal: s})
		}
	}
	w.writeHeader()
	return w
}

// identifier encodes n with the printable VCD identifier alphabet.
func identifier(n int) string {
	const first, span = 33, 94
	var sb strings.Builder
	for {
		sb.WriteByte(byte(first + n%span))
		n /= span
		if n == 0 {
			return sb.String()
		}
		n--
	}
}

func (w *Writer) writeHeader() {
	fmt.Fprintln(w.w, "$timescale 1ps $end")

	var scope []string
	for _, p := range w.probes {
		parts := strings.Split(p.name, ".")
		path, leaf := parts[:len(parts)-1], parts[len(parts)-1]

		common := 0
		for common < len(scope) && common < len(path) && scope[common] == path[common] {
			common++
		}
		for j := len(scope); j > common; j-- {
			fmt.Fprintln(w.w, "$upscope $end")
		}
		for _, m := range path[common:] {
			fmt.Fprintf(w.w, "$scope module %s $end\n", m)
		}
		scope = path

		fmt.Fprintf(w.w, "$var wire %d %s %s $end\n", p.signal.Width(), p.id, leaf)
	}
	for range scope {
		fmt.Fprintln(w.w, "$upscope $end")
	}
	fmt.Fprintln(w.w, "$enddefinitions $end")
}

// Dump records every signal that changed since the last call.
func (w *Writer) Dump(time uint64) error {
	if _, err := fmt.Fprintf(w.w, "#%d\n", time); err != nil {
		return err
	}
	for i := range w.probes {
		p := &w.probes[i]
		v := p.signal.Value()
		if p.dumped && v == p.last {
			continue
		}
		p.last, p.dumped = v, true

		var err error
		if p.signal.Width() == 1 {
			_, err = fmt.Fprintf(w.w, "%d%s\n", v&1, p.id)
		} else {
			_, err = fmt.Fprintf(w.w, "b%b %s\n", v, p.id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Close() error {
	err := w.w.Flush()
	if w.gz != nil {
		if e := w.gz.Close(); err == nil {
			err = e
		}
	}
	if w.closer != nil {
		if e := w.closer.Close(); err == nil {
			err = e
		}
	}
	return err
}
