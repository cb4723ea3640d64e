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

	"github.com/andreas-jonsson/rvlockstep/emulator/board"
	"github.com/andreas-jonsson/rvlockstep/emulator/difftest"
	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral/uart"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/cpu"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

func TestBuild(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, build(fs, "out"))

	c, err := cpu.NewDefaultCPU()
	require.NoError(t, err)
	ref := difftest.NewReference(c)
	b := board.New()
	require.NoError(t, difftest.LoadImages(fs, difftest.DefaultImages("out/loader.bin", "out/main.bin"), ref, b))

	var out bytes.Buffer
	cfg := difftest.DefaultConfig()
	cfg.MaxCycles = 20000

	s, err := difftest.NewSession(cfg, dut.NewDriver(b), ref,
		difftest.WithLogger(log.New(io.Discard, "", 0)),
		difftest.WithProbes(dut.ProbeTxTick),
		difftest.WithPeripherals(uart.NewDecoder(&out)),
	)
	require.NoError(t, err)

	sum, err := s.Run()
	require.NoError(t, err)
	assert.Zero(t, sum.Mismatches)
	assert.Equal(t, banner, out.String())
}
