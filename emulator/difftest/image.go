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

package difftest

import (
	"fmt"

	"github.com/spf13/afero"
)

// ImageLoader is implemented by both the reference and the DUT board.
type ImageLoader interface {
	LoadImage(base uint32, data []byte) error
}

// Image is a raw binary placed at a fixed base address.
type Image struct {
	Base uint32
	Path string
}

const (
	LoaderBase = 0x00000000
	MainBase   = 0x00008000
)

// DefaultImages are the boot loader and the main program of the firmware.
func DefaultImages(loader, main string) []Image {
	return []Image{
		{Base: LoaderBase, Path: loader},
		{Base: MainBase, Path: main},
	}
}

// LoadImages reads every image from fs and writes it to all targets.
// Images with an empty path are skipped.
func LoadImages(fs afero.Fs, images []Image, targets ...ImageLoader) error {
	for _, img := range images {
		if img.Path == "" {
			continue
		}
		data, err := afero.ReadFile(fs, img.Path)
		if err != nil {
			return err
		}
		for _, t := range targets {
			if err := t.LoadImage(img.Base, data); err != nil {
				return fmt.Errorf("%s: %w", img.Path, err)
			}
		}
	}
	return nil
}
