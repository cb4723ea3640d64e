/*
Copyright (c) 2019-2020 Andreas T Jonsson

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

// Command validator summarizes a mismatch log written by difftest and
// optionally compares it with a baseline log from an earlier run.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/andreas-jonsson/rvlockstep/emulator/processor/validator"
	"github.com/spf13/afero"
)

var (
	logInput      = "mismatch.log"
	baselineInput string
	verbose       bool
)

func init() {
	flag.StringVar(&logInput, "log", logInput, "Mismatch log to summarize")
	flag.StringVar(&baselineInput, "baseline", "", "Mismatch log to compare against")
	flag.BoolVar(&verbose, "verbose", false, "Print every mismatch")
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	fs := afero.NewOsFs()
	events, err := load(fs, logInput)
	if err != nil {
		log.Fatal(err)
	}

	summarize(os.Stdout, events)
	if verbose {
		for i := range events {
			fmt.Print(events[i].Report())
		}
	}

	if baselineInput == "" {
		return
	}

	baseline, err := load(fs, baselineInput)
	if err != nil {
		log.Fatal(err)
	}

	d := compare(baseline, events)
	fmt.Printf("Equal: %d, new: %d, fixed: %d, changed: %d\n", d.equal, len(d.added), len(d.fixed), len(d.changed))
	for _, c := range d.added {
		fmt.Printf("new at cycle %d\n", c)
	}
	for _, c := range d.changed {
		fmt.Printf("changed at cycle %d\n", c)
	}
	if len(d.added) > 0 || len(d.changed) > 0 {
		os.Exit(1)
	}
}

func load(fs afero.Fs, name string) ([]validator.Mismatch, error) {
	fp, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return validator.Decode(fp)
}

func summarize(w io.Writer, events []validator.Mismatch) {
	fmt.Fprintf(w, "Mismatches: %d\n", len(events))
	if len(events) == 0 {
		return
	}

	first := &events[0]
	fmt.Fprintf(w, "First at cycle %d, pc 0x%08x\n", first.Cycle, first.DUT.PC)
	for _, f := range fieldHistogram(events) {
		fmt.Fprintf(w, "%6d %s\n", f.count, f.name)
	}
}

type fieldCount struct {
	name  string
	count int
}

// fieldHistogram counts how often each field differs, most frequent first.
func fieldHistogram(events []validator.Mismatch) []fieldCount {
	counts := map[string]int{}
	for i := range events {
		for _, f := range events[i].Fields {
			counts[f]++
		}
	}

	res := make([]fieldCount, 0, len(counts))
	for name, n := range counts {
		res = append(res, fieldCount{name, n})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].count != res[j].count {
			return res[i].count > res[j].count
		}
		return res[i].name < res[j].name
	})
	return res
}

type diff struct {
	equal        int
	added, fixed []uint64
	changed      []uint64
}

// compare matches events by cycle. Events present in both logs are equal
// when both register sets agree.
func compare(baseline, events []validator.Mismatch) diff {
	var d diff
	base := make(map[uint64]*validator.Mismatch, len(baseline))
	for i := range baseline {
		base[baseline[i].Cycle] = &baseline[i]
	}

	seen := make(map[uint64]bool, len(events))
	for i := range events {
		e := &events[i]
		seen[e.Cycle] = true

		b, ok := base[e.Cycle]
		switch {
		case !ok:
			d.added = append(d.added, e.Cycle)
		case b.DUT.Equal(&e.DUT) && b.Reference.Equal(&e.Reference):
			d.equal++
		default:
			d.changed = append(d.changed, e.Cycle)
		}
	}

	for i := range baseline {
		if c := baseline[i].Cycle; !seen[c] {
			d.fixed = append(d.fixed, c)
		}
	}
	return d
}
