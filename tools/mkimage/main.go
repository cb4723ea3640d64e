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

// Command mkimage assembles a minimal boot loader and main image pair that
// difftest and vgasim can run without the board firmware.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/andreas-jonsson/rvlockstep/emulator/difftest"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/asm"
	"github.com/spf13/afero"
)

var (
	outputDir = "."
	banner    = "rvlockstep\r\n"
)

func init() {
	flag.StringVar(&outputDir, "out", outputDir, "Output directory")
	flag.StringVar(&banner, "banner", banner, "Text sent on the serial line at start")
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if err := build(afero.NewOsFs(), outputDir); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func build(fs afero.Fs, dir string) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	images := map[string]*asm.Program{
		"loader.bin": loader(),
		"main.bin":   echo(banner),
	}
	for name, prog := range images {
		data, err := prog.Bytes()
		if err != nil {
			return err
		}

		path := filepath.Join(dir, name)
		log.Printf("Building: %s (%d bytes)", path, len(data))
		if err := afero.WriteFile(fs, path, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// loader clears the stack pointer and jumps to the main image.
func loader() *asm.Program {
	return asm.New(difftest.LoaderBase).
		LI(asm.SP, 0x00100000).
		LI(asm.T0, difftest.MainBase).
		JALR(asm.Zero, asm.T0, 0)
}

// echo prints text and then echoes every received byte.
func echo(text string) *asm.Program {
	p := asm.New(difftest.MainBase).
		LI(asm.S0, uint32(difftest.WindowRxData))

	for i, c := range []byte(text) {
		label := fmt.Sprintf("banner%d", i)
		p.Label(label).
			LW(asm.T1, asm.S0, 12).
			BEQ(asm.T1, asm.Zero, label).
			LI(asm.A0, uint32(c)).
			SW(asm.A0, asm.S0, 4)
	}

	return p.Label("poll").
		LW(asm.T0, asm.S0, 8).
		BEQ(asm.T0, asm.Zero, "poll").
		LBU(asm.A0, asm.S0, 0).
		Label("wait").
		LW(asm.T1, asm.S0, 12).
		BEQ(asm.T1, asm.Zero, "wait").
		SW(asm.A0, asm.S0, 4).
		J("poll")
}
