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
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/andreas-jonsson/rvlockstep/emulator/difftest"
	"github.com/andreas-jonsson/rvlockstep/emulator/processor/validator"
	"golang.org/x/term"
)

// pausePrompt stops the run on a mismatch and waits for a single key.
func pausePrompt(m *validator.Mismatch) difftest.Decision {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		log.Print("Stdin is not a terminal, continuing!")
		return difftest.DecisionContinue
	}

	fmt.Fprintf(os.Stderr, "Paused at cycle %d: [c]ontinue, [r]ecord or [a]bort? ", m.Cycle)

	state, err := term.MakeRaw(fd)
	if err != nil {
		log.Print(err)
		return difftest.DecisionContinue
	}
	defer func() {
		term.Restore(fd, state)
		fmt.Fprintln(os.Stderr)
	}()

	r := bufio.NewReader(os.Stdin)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return difftest.DecisionAbort
		}
		if d, ok := decisionKey(b); ok {
			return d
		}
	}
}

func decisionKey(b byte) (difftest.Decision, bool) {
	switch b {
	case 'c', 'C', '\r', '\n':
		return difftest.DecisionContinue, true
	case 'r', 'R':
		return difftest.DecisionRecord, true
	case 'a', 'A', 'q', 'Q', 0x3:
		return difftest.DecisionAbort, true
	}
	return 0, false
}
