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

package main

import (
	"bytes"
	"io"
	"log"
	"testing"

	"github.com/andreas-jonsson/rvlockstep/emulator/difftest"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral/uart"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/validator"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

func TestDecisionKey(t *testing.T) {
	tests := []struct {
		key      byte
		decision difftest.Decision
		ok       bool
	}{
		{'c', difftest.DecisionContinue, true},
		{'\r', difftest.DecisionContinue, true},
		{'R', difftest.DecisionRecord, true},
		{'a', difftest.DecisionAbort, true},
		{0x3, difftest.DecisionAbort, true},
		{'x', 0, false},
	}
	for _, tt := range tests {
		d, ok := decisionKey(tt.key)
		assert.Equal(t, tt.ok, ok, "key %q", tt.key)
		assert.Equal(t, tt.decision, d, "key %q", tt.key)
	}
}

func TestParseSeed(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(io.Discard)

	assert.Equal(t, int64(1234), parseSeed("1234"))
	assert.Equal(t, int64(0x10), parseSeed("0x10"))
	assert.Empty(t, buf.String())

	assert.Equal(t, int64(0), parseSeed("12ab"))
	assert.Contains(t, buf.String(), "invalid DIFFTEST_SEED")
}

func TestBuildSchedule(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "prog.bin", []byte{0xAA, 0xBB}, 0644))

	defer func() { schedule, uploadPath = nil, "" }()

	s, err := buildSchedule(fs)
	require.NoError(t, err)
	assert.Equal(t, uart.DefaultSchedule(), s)

	schedule = uart.Schedule{{Cycle: 7, Payload: []byte("x")}}
	uploadPath = "prog.bin"
	s, err = buildSchedule(fs)
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, uint64(7), s[0].Cycle)
	assert.Equal(t, uart.ProgramUpload(uploadAt, []byte{0xAA, 0xBB}), s[1])

	uploadPath = "missing.bin"
	_, err = buildSchedule(fs)
	assert.Error(t, err)
}

func TestRunSelftest(t *testing.T) {
	fs := afero.NewMemMapFs()

	defer func(c uint64) {
		selftest, maxCycles, seed = false, c, 0
		vcdPath, mismatchLog, pcapPath = "", "", ""
		vcdGzip = false
	}(maxCycles)

	selftest, maxCycles, seed = true, 40000, 99
	vcdPath, vcdGzip = "trace.vcd.gz", true
	mismatchLog, pcapPath = "mismatch.log", "serial.pcap"

	require.Equal(t, 0, run(fs))

	fp, err := fs.Open("mismatch.log")
	require.NoError(t, err)
	events, err := validator.Decode(fp)
	fp.Close()
	require.NoError(t, err)
	assert.Empty(t, events)

	data, err := afero.ReadFile(fs, "serial.pcap")
	require.NoError(t, err)
	r, err := pcapgo.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	var rx, tx []byte
	for {
		pkt, _, err := r.ReadPacketData()
		if err != nil {
			break
		}
		if uart.Direction(pkt[0]) == uart.DirectionRX {
			rx = append(rx, pkt[1:]...)
		} else {
			tx = append(tx, pkt[1:]...)
		}
	}
	assert.Equal(t, "0\r998\r244\r", string(rx))
	assert.Equal(t, string(rx), string(tx))

	info, err := fs.Stat("trace.vcd.gz")
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestRunMissingImage(t *testing.T) {
	defer func() { loaderImage = "loader.bin" }()
	loaderImage = "missing.bin"
	assert.Equal(t, exitFatal, run(afero.NewMemMapFs()))
}
