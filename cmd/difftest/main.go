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
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/andreas-jonsson/rvlockstep/emulator/board"
	"github.com/andreas-jonsson/rvlockstep/emulator/difftest"
	"github.com/andreas-jonsson/rvlockstep/emulator/dut"
	"github.com/andreas-jonsson/rvlockstep/emulator/dut/vcd"
	"github.com/andreas-jonsson/rvlockstep/emulator/peripheral/uart"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/cpu"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/validator"
	"github.com/andreas-jonsson/rvlockstep/version"
	"github.com/spf13/afero"
)

const (
	exitFatal = 1
	exitUsage = 2
	exitAbort = 3
)

var (
	loaderImage = "loader.bin"
	mainImage   = "main.bin"
)

var (
	maxCycles   = uint64(difftest.DefaultMaxCycles)
	resetCycles = uint64(dut.DefaultResetCycles)
	warmup      = uint64(difftest.DefaultWarmupCycles)
	cpi         = uint64(difftest.DefaultCyclesPerInstruction)

	seed     int64
	jitter   = uart.DefaultJitter
	bitWidth = uart.DefaultBitWidth

	policy   = difftest.PolicyContinue
	schedule uart.Schedule

	vcdPath, mismatchLog, pcapPath string
	uploadPath, probesPath       string
	uploadAt                     = uint64(40000)

	vcdGzip, selftest, ver bool
)

func init() {
	if p, ok := os.LookupEnv("DIFFTEST_LOADER"); ok {
		loaderImage = p
	}
	if p, ok := os.LookupEnv("DIFFTEST_MAIN"); ok {
		mainImage = p
	}
	if s, ok := os.LookupEnv("DIFFTEST_SEED"); ok {
		seed = parseSeed(s)
	}
	if s, ok := os.LookupEnv("DIFFTEST_POLICY"); ok {
		if err := policy.Set(s); err != nil {
			log.Print(err)
		}
	}

	flag.StringVar(&loaderImage, "loader", loaderImage, "Path to boot loader image, placed at 0x00000000")
	flag.StringVar(&mainImage, "main", mainImage, "Path to main image, placed at 0x00008000")
	flag.BoolVar(&selftest, "selftest", false, "Run the built-in serial echo program instead of images")

	flag.Uint64Var(&maxCycles, "cycles", maxCycles, "Number of clock cycles to simulate")
	flag.Uint64Var(&resetCycles, "reset", resetCycles, "Cycles the reset pin is held")
	flag.Uint64Var(&warmup, "warmup", warmup, "Last cycle before comparison starts")
	flag.Uint64Var(&cpi, "cpi", cpi, "Clock cycles per retired instruction")

	flag.Int64Var(&seed, "seed", seed, "Serial jitter seed, 0 picks one from the clock")
	flag.IntVar(&jitter, "jitter", jitter, "Maximum serial bit width deviation in cycles")
	flag.IntVar(&bitWidth, "bitwidth", bitWidth, "Nominal serial bit width in cycles")

	flag.Var(&policy, "policy", "Mismatch policy: continue, record, abort or pause")
	flag.Var(&schedule, "schedule", "Serial stimulus `cycle:payload`, may be repeated")
	flag.StringVar(&uploadPath, "upload", "", "Send program image over serial with the loader protocol")
	flag.Uint64Var(&uploadAt, "upload-at", uploadAt, "Cycle of the serial program upload")

	flag.StringVar(&vcdPath, "vcd", "", "Write waveform trace to file")
	flag.BoolVar(&vcdGzip, "vcd-gzip", false, "Compress the waveform trace")
	flag.StringVar(&mismatchLog, "mismatch-log", "", "Write recorded mismatches to file, gzip if it ends with .gz")
	flag.StringVar(&pcapPath, "pcap", "", "Write serial traffic to pcap file")
	flag.StringVar(&probesPath, "probes", "", "JSON file overriding probe signal names")

	flag.BoolVar(&ver, "v", false, "Print version information")
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if ver {
		fmt.Println(version.Banner("difftest"))
		return
	}
	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(exitUsage)
	}
	os.Exit(run(afero.NewOsFs()))
}

func run(fs afero.Fs) int {
	c, err := cpu.NewDefaultCPU()
	if err != nil {
		log.Print(err)
		return exitFatal
	}
	ref := difftest.NewReference(c)
	b := board.New()

	if selftest {
		log.Print("Running built-in self test!")
		image := selftestImage()
		for _, t := range []difftest.ImageLoader{ref, b} {
			if err := t.LoadImage(difftest.LoaderBase, image); err != nil {
				log.Print(err)
				return exitFatal
			}
		}
	} else if err := difftest.LoadImages(fs, difftest.DefaultImages(loaderImage, mainImage), ref, b); err != nil {
		log.Print(err)
		return exitFatal
	}

	var driverOpts []dut.DriverOption
	if vcdPath != "" {
		fp, err := fs.Create(vcdPath)
		if err != nil {
			log.Print(err)
			return exitFatal
		}

		var opts []vcd.Option
		if vcdGzip {
			opts = append(opts, vcd.WithGzip)
		}
		driverOpts = append(driverOpts, dut.WithTracer(vcd.New(fp, b.Signals(), opts...)))
	}
	driver := dut.NewDriver(b, driverOpts...)

	cfg := difftest.DefaultConfig()
	cfg.ResetCycles = resetCycles
	cfg.WarmupCycles = warmup
	cfg.CyclesPerInstruction = cpi
	cfg.MaxCycles = maxCycles
	cfg.EntryPC = difftest.LoaderBase
	cfg.Policy = policy
	if policy == difftest.PolicyPause {
		cfg.Decide = pausePrompt
	}

	if mismatchLog != "" {
		fp, err := fs.Create(mismatchLog)
		if err != nil {
			driver.Close()
			log.Print(err)
			return exitFatal
		}
		rec := validator.NewRecorder(fp, strings.HasSuffix(mismatchLog, ".gz"), validator.DefaultQueueSize, validator.DefaultBufferSize)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Print(err)
			}
		}()
		cfg.Recorder = rec
	} else if policy == difftest.PolicyRecord {
		log.Print("No mismatch log given, recorded events are dropped!")
	}

	stimulus, err := buildSchedule(fs)
	if err != nil {
		driver.Close()
		log.Print(err)
		return exitFatal
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Print("Serial jitter seed: ", seed)

	enc := uart.NewEncoder(uart.WithBitWidth(bitWidth), uart.WithJitter(jitter), uart.WithSeed(seed))
	sched := uart.NewScheduler(stimulus, enc)
	dec := uart.NewDecoder(os.Stdout)

	if pcapPath != "" {
		fp, err := fs.Create(pcapPath)
		if err != nil {
			driver.Close()
			log.Print(err)
			return exitFatal
		}
		capture, err := uart.NewCapture(fp, time.Now())
		if err != nil {
			fp.Close()
			driver.Close()
			log.Print(err)
			return exitFatal
		}
		defer capture.Close()

		sched.SetCapture(capture)
		dec.SetCapture(capture)
	}

	opts := []difftest.Option{
		difftest.WithProbes(dut.ProbeTxTick),
		difftest.WithPeripherals(sched, enc, dec),
	}
	if probesPath != "" {
		names, err := loadProbeNames(fs, probesPath)
		if err != nil {
			driver.Close()
			log.Print(err)
			return exitFatal
		}
		opts = append(opts, difftest.WithProbeNames(names))
	}

	s, err := difftest.NewSession(cfg, driver, ref, opts...)
	if err != nil {
		driver.Close()
		log.Print(err)
		return exitFatal
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Print(err)
		}
	}()

	return loop(s)
}

func loop(s *difftest.Session) int {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	start := time.Now()
	code := 0

	for s.State() != difftest.StateDone {
		if s.Cycle()&0xFFF == 0 {
			select {
			case <-sig:
				log.Print("Interrupted!")
				return summarize(s, start, code)
			default:
			}
		}

		if err := s.Step(); err != nil {
			log.Print(err)
			if errors.Is(err, difftest.ErrMismatch) {
				code = exitAbort
			} else {
				code = exitFatal
			}
			break
		}
	}
	return summarize(s, start, code)
}

func summarize(s *difftest.Session, start time.Time, code int) int {
	sum := s.Summary()
	elapsed := time.Since(start)

	fmt.Println()
	log.Printf("Done after %d cycles in %s (%.2f MHz).", sum.Cycles, elapsed.Round(time.Millisecond), float64(sum.Cycles)/elapsed.Seconds()/1000000)
	log.Printf("Instructions: %d, comparisons: %d, mismatches: %d, recorded: %d, step errors: %d", sum.Instructions, sum.Comparisons, sum.Mismatches, sum.Recorded, sum.StepErrors)
	if sum.Finished {
		log.Print("DUT signalled completion.")
	}
	if sum.First != nil {
		log.Printf("First mismatch at cycle %d (DUT cycles 0x%08x), pc 0x%08x.", sum.First.Cycle, sum.First.DUTCycles, sum.First.DUT.PC)
	}
	return code
}

// parseSeed returns 0, which picks a seed from the clock, if s is malformed.
func parseSeed(s string) int64 {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		log.Print("invalid DIFFTEST_SEED, using a time based seed: ", err)
		return 0
	}
	return v
}

func buildSchedule(fs afero.Fs) (uart.Schedule, error) {
	stimulus := schedule
	if len(stimulus) == 0 {
		stimulus = uart.DefaultSchedule()
	}
	if uploadPath == "" {
		return stimulus, nil
	}

	data, err := afero.ReadFile(fs, uploadPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Uploading %s (%d bytes) at cycle %d", uploadPath, len(data), uploadAt)
	return append(stimulus, uart.ProgramUpload(uploadAt, data)), nil
}

func loadProbeNames(fs afero.Fs, name string) (dut.ProbeNames, error) {
	fp, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return dut.LoadProbeNames(fp)
}
