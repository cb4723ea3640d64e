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
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
)

var gzipMagic = []byte{0x1F, 0x8B}

// Encoder writes one JSON object per line, optionally gzip compressed.
type Encoder struct {
	enc    *json.Encoder
	writer *gzip.Writer
}

func NewEncoder(w io.Writer, compress bool) *Encoder {
	e := &Encoder{}
	if compress {
		e.writer = gzip.NewWriter(w)
		w = e.writer
	}
	e.enc = json.NewEncoder(w)
	return e
}

func (e *Encoder) Encode(m *Mismatch) error {
	return e.enc.Encode(m)
}

func (e *Encoder) Close() error {
	if e.writer != nil {
		return e.writer.Close()
	}
	return nil
}

// Decode reads a log written by an Encoder. Compression is detected from
// the stream header.
func Decode(r io.Reader) ([]Mismatch, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return decode(zr)
	}
	return decode(br)
}

func decode(r io.Reader) ([]Mismatch, error) {
	var events []Mismatch
	dec := json.NewDecoder(r)
	for {
		var m Mismatch
		if err := dec.Decode(&m); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, err
		}
		events = append(events, m)
	}
}
