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

package uart

import (
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// LinkTypeUser0 is the DLT reserved for private use. Every packet starts
// with one Direction byte.
const LinkTypeUser0 = layers.LinkType(147)

// DefaultClockHz is the nominal board clock used to timestamp packets.
const DefaultClockHz = 40000000

type Direction byte

const (
	DirectionRX Direction = iota
	DirectionTX
)

func (d Direction) String() string {
	if d == DirectionTX {
		return "tx"
	}
	return "rx"
}

// Capture writes serial traffic to a pcap stream.
type Capture struct {
	mu      sync.Mutex
	w       *pcapgo.Writer
	closer  io.Closer
	start   time.Time
	clockHz uint64
}

// NewCapture writes the pcap file header to w. Closing the capture also
// closes w if it implements io.Closer.
func NewCapture(w io.Writer, start time.Time) (*Capture, error) {
	c := &Capture{
		w:       pcapgo.NewWriterNanos(w),
		start:   start,
		clockHz: DefaultClockHz,
	}
	if cl, ok := w.(io.Closer); ok {
		c.closer = cl
	}
	if err := c.w.WriteFileHeader(0xFFFF, LinkTypeUser0); err != nil {
		return nil, err
	}
	return c, nil
}

// Timestamp converts a cycle count to wall time relative to the start.
func (c *Capture) Timestamp(cycle uint64) time.Time {
	sec := cycle / c.clockHz
	nsec := (cycle % c.clockHz) * uint64(time.Second) / c.clockHz
	return c.start.Add(time.Duration(sec)*time.Second + time.Duration(nsec))
}

func (c *Capture) Record(cycle uint64, dir Direction, data []byte) error {
	pkt := make([]byte, 0, len(data)+1)
	pkt = append(pkt, byte(dir))
	pkt = append(pkt, data...)

	ci := gopacket.CaptureInfo{
		Timestamp:     c.Timestamp(cycle),
		CaptureLength: len(pkt),
		Length:        len(pkt),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.WritePacket(ci, pkt)
}

func (c *Capture) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
