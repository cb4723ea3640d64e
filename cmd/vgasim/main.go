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
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andreas-jonsson/rvlockstep/emulator/board"
	"github.com/andreas-jonsson/rvlockstep/emulator/difftest"
	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral/uart"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral/vga"
	"github.com/andreas-jonsson/rvlockstep/platform"
	"github.com/andreas-jonsson/rvlockstep/version"
	"github.com/spf13/afero"
)

var (
	loaderImage = "loader.bin"
	mainImage   = "main.bin"
)

var (
	maxCycles uint64
	seed      int64
	jitter    = uart.DefaultJitter
	scale     = 1
	schedule  uart.Schedule

	selftest, ver bool
)

// menuSchedule picks the first entry of the firmware menu.
var menuSchedule = uart.Schedule{{Cycle: 20000, Payload: []byte("0\r")}}

func init() {
	if p, ok := os.LookupEnv("DIFFTEST_LOADER"); ok {
		loaderImage = p
	}
	if p, ok := os.LookupEnv("DIFFTEST_MAIN"); ok {
		mainImage = p
	}

	flag.StringVar(&loaderImage, "loader", loaderImage, "Path to boot loader image, placed at 0x00000000")
	flag.StringVar(&mainImage, "main", mainImage, "Path to main image, placed at 0x00008000")
	flag.BoolVar(&selftest, "selftest", false, "Run the built-in test pattern instead of images")

	flag.Uint64Var(&maxCycles, "cycles", 0, "Stop after this many clock cycles, 0 runs until quit")
	flag.Int64Var(&seed, "seed", 0, "Serial jitter seed, 0 picks one from the clock")
	flag.IntVar(&jitter, "jitter", jitter, "Maximum serial bit width deviation in cycles")
	flag.IntVar(&scale, "scale", scale, "Window scale factor")
	flag.Var(&schedule, "schedule", "Serial stimulus `cycle:payload`, may be repeated (default 20000:0\\r)")

	flag.Bool("text", false, "Show serial output in the terminal only")
	flag.Bool("headless", false, "Run without window or terminal UI")
	flag.BoolVar(&ver, "v", false, "Print version information")
}

func main() {
	flag.Parse()

	if ver {
		fmt.Println(version.Banner("vgasim"))
		return
	}
	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}

	code := 0
	platform.Start(func(p platform.Platform) {
		code = run(p, afero.NewOsFs())
	}, platform.ConfigWithWindowSize(vga.Width*scale, vga.Height*scale))
	os.Exit(code)
}

func run(p platform.Platform, fs afero.Fs) int {
	b := board.New()
	if selftest {
		if err := b.LoadImage(difftest.LoaderBase, selftestImage()); err != nil {
			log.Print(err)
			return 1
		}
	} else if err := difftest.LoadImages(fs, difftest.DefaultImages(loaderImage, mainImage), b); err != nil {
		log.Print(err)
		return 1
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var keys platform.KeyQueue
	p.SetKeyboardHandler(keys.Push)

	enc := uart.NewEncoder(uart.WithJitter(jitter), uart.WithSeed(seed))
	sched := uart.NewScheduler(stimulus(), enc)
	kbd := &keyboard{holdoff: difftest.DefaultWarmupCycles, queue: &keys, enc: enc}
	collector := vga.NewCollector(p)

	cfg := difftest.DefaultConfig()
	cfg.MaxCycles = maxCycles
	if maxCycles == 0 {
		cfg.MaxCycles = ^uint64(0)
	}

	s, err := difftest.NewSession(cfg, dut.NewDriver(b), nil,
		difftest.WithProbes(dut.VideoProbes()...),
		difftest.WithPeripherals(sched, kbd, enc, uart.NewDecoder(p), collector),
	)
	if err != nil {
		log.Print(err)
		return 1
	}
	defer s.Close()

	return loop(p, s, collector)
}

func loop(p platform.Platform, s *difftest.Session, collector *vga.Collector) int {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastCycle uint64
	for s.State() != difftest.StateDone {
		if s.Cycle()&0xFFF == 0 {
			select {
			case <-p.Done():
				return 0
			case <-ticker.C:
				cycle := s.Cycle()
				p.SetTitle(fmt.Sprintf("vgasim - %.2f MHz - %d frames", float64(cycle-lastCycle)/1000000, collector.Frames()))
				lastCycle = cycle
			default:
			}
		}

		if err := s.Step(); err != nil {
			log.Print(err)
			return 1
		}
	}
	log.Printf("Done after %d cycles and %d frames.", s.Cycle(), collector.Frames())
	return 0
}

func stimulus() uart.Schedule {
	if len(schedule) == 0 {
		return menuSchedule
	}
	return schedule
}
