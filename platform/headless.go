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

package platform

import (
	"log"
	"os"
	"os/signal"
)

// headlessPlatform prints serial output and drops video frames. It quits on
// interrupt.
type headlessPlatform struct {
	quitter
}

func headlessStart(mainLoop func(Platform), configs ...Config) {
	p := &headlessPlatform{}
	p.quitter.init()

	for _, cfg := range configs {
		if err := cfg(p); err != nil {
			log.Fatal(err)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	go func() {
		if _, ok := <-sig; ok {
			p.quit()
		}
	}()
	mainLoop(p)
}

func (*headlessPlatform) Write(b []byte) (int, error) {
	return os.Stdout.Write(b)
}

func (*headlessPlatform) Present([]byte) error {
	return nil
}

func (*headlessPlatform) SetTitle(title string) {
	log.Print(title)
}

func (*headlessPlatform) SetKeyboardHandler(func(byte)) {}
