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

package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// PageSize is the mapping granularity, same as the unicorn engine.
const PageSize = 0x1000

var (
	ErrUnmapped = errors.New("unmapped memory access")
	ErrOverlap  = errors.New("region overlaps existing mapping")
	ErrAlign    = errors.New("region not page aligned")
)

type Address uint32

func (a Address) String() string {
	return fmt.Sprintf("0x%08X", uint32(a))
}

type Memory interface {
	Read(addr Address, buf []byte) error
	Write(addr Address, data []byte) error
}

type region struct {
	base Address
	mem  []byte
}

func (r *region) end() uint64 {
	return uint64(r.base) + uint64(len(r.mem))
}

func (r *region) contains(addr Address, n int) bool {
	return addr >= r.base && uint64(addr)+uint64(n) <= r.end()
}

// Map is a sparse 32 bit address space built from page aligned regions.
type Map struct {
	regions []*region
	last    *region
}

func NewMap() *Map {
	return &Map{}
}

func (m *Map) Map(base Address, size uint32) error {
	if base%PageSize != 0 || size == 0 || size%PageSize != 0 {
		return fmt.Errorf("%w: %v+0x%X", ErrAlign, base, size)
	}
	if uint64(base)+uint64(size) > 1<<32 {
		return fmt.Errorf("%w: %v+0x%X", ErrUnmapped, base, size)
	}

	r := &region{base: base, mem: make([]byte, size)}
	for _, o := range m.regions {
		if uint64(r.base) < o.end() && uint64(o.base) < r.end() {
			return fmt.Errorf("%w: %v+0x%X", ErrOverlap, base, size)
		}
	}

	m.regions = append(m.regions, r)
	sort.Slice(m.regions, func(i, j int) bool { return m.regions[i].base < m.regions[j].base })
	return nil
}

func (m *Map) find(addr Address, n int) *region {
	if r := m.last; r != nil && r.contains(addr, n) {
		return r
	}
	for _, r := range m.regions {
		if r.contains(addr, n) {
			m.last = r
			return r
		}
	}
	return nil
}

func (m *Map) Read(addr Address, buf []byte) error {
	r := m.find(addr, len(buf))
	if r == nil {
		return fmt.Errorf("%w: read %d bytes at %v", ErrUnmapped, len(buf), addr)
	}
	copy(buf, r.mem[addr-r.base:])
	return nil
}

func (m *Map) Write(addr Address, data []byte) error {
	r := m.find(addr, len(data))
	if r == nil {
		return fmt.Errorf("%w: write %d bytes at %v", ErrUnmapped, len(data), addr)
	}
	copy(r.mem[addr-r.base:], data)
	return nil
}

func (m *Map) ReadByte(addr Address) (byte, error) {
	var b [1]byte
	err := m.Read(addr, b[:])
	return b[0], err
}

func (m *Map) WriteByte(addr Address, data byte) error {
	return m.Write(addr, []byte{data})
}

func (m *Map) ReadHalf(addr Address) (uint16, error) {
	var b [2]byte
	err := m.Read(addr, b[:])
	return binary.LittleEndian.Uint16(b[:]), err
}

func (m *Map) WriteHalf(addr Address, data uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], data)
	return m.Write(addr, b[:])
}

func (m *Map) ReadWord(addr Address) (uint32, error) {
	var b [4]byte
	err := m.Read(addr, b[:])
	return binary.LittleEndian.Uint32(b[:]), err
}

func (m *Map) WriteWord(addr Address, data uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], data)
	return m.Write(addr, b[:])
}
