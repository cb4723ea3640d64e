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
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral"
)

// Entry injects Payload into the encoder when the cycle counter reaches Cycle.
type Entry struct {
	Cycle   uint64
	Payload []byte
}

func (e Entry) String() string {
	q := strconv.Quote(string(e.Payload))
	return fmt.Sprintf("%d:%s", e.Cycle, q[1:len(q)-1])
}

type Schedule []Entry

// DefaultSchedule selects the first menu entry of the firmware and answers
// its two prompts.
func DefaultSchedule() Schedule {
	return Schedule{
		{Cycle: 20000, Payload: []byte("0\r")},
		{Cycle: 20000, Payload: []byte("998\r244\r")},
	}
}

var ErrInvalidEntry = errors.New("invalid schedule entry")

// ParseEntry parses "<cycle>:<payload>" where payload uses Go escapes,
// e.g. "20000:0\r".
func ParseEntry(s string) (Entry, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidEntry, s)
	}
	cycle, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q: %v", ErrInvalidEntry, s, err)
	}
	payload, err := strconv.Unquote(`"` + strings.ReplaceAll(s[i+1:], `"`, `\"`) + `"`)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q: %v", ErrInvalidEntry, s, err)
	}
	return Entry{Cycle: cycle, Payload: []byte(payload)}, nil
}

// ProgramUpload sends image with the loader protocol of the boot firmware,
// the decimal size terminated by a carriage return followed by the raw bytes.
func ProgramUpload(cycle uint64, image []byte) Entry {
	payload := append([]byte(strconv.Itoa(len(image))+"\r"), image...)
	return Entry{Cycle: cycle, Payload: payload}
}

// String implements flag.Value together with Set.
func (s *Schedule) String() string {
	if s == nil {
		return ""
	}
	parts := make([]string, len(*s))
	for i, e := range *s {
		parts[i] = e.String()
	}
	return strings.Join(parts, ",")
}

func (s *Schedule) Set(v string) error {
	e, err := ParseEntry(v)
	if err != nil {
		return err
	}
	*s = append(*s, e)
	return nil
}

// Scheduler feeds schedule entries to an Encoder in cycle order. Entries
// with the same cycle keep their relative order.
type Scheduler struct {
	entries Schedule
	next    int
	enc     *Encoder
	capture *Capture
}

func NewScheduler(s Schedule, enc *Encoder) *Scheduler {
	entries := append(Schedule(nil), s...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Cycle < entries[j].Cycle })
	return &Scheduler{entries: entries, enc: enc}
}

func (s *Scheduler) SetCapture(c *Capture) {
	s.capture = c
}

// Done reports that every entry has been injected.
func (s *Scheduler) Done() bool {
	return s.next >= len(s.entries)
}

func (s *Scheduler) Install(peripheral.Harness) error {
	return nil
}

func (s *Scheduler) Name() string {
	return "Serial Stimulus Schedule"
}

func (s *Scheduler) Reset() {
	s.next = 0
}

func (s *Scheduler) Step(cycle uint64) error {
	for ; s.next < len(s.entries) && s.entries[s.next].Cycle <= cycle; s.next++ {
		e := s.entries[s.next]
		for _, b := range e.Payload {
			s.enc.EnqueueByte(b)
		}
		if s.capture != nil {
			if err := s.capture.Record(cycle, DirectionRX, e.Payload); err != nil {
				return err
			}
		}
	}
	return nil
}
