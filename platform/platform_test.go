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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sizedPlatform struct {
	w, h int32
}

func (p *sizedPlatform) setWindowSize(w, h int32) {
	p.w, p.h = w, h
}

func TestKeyQueue(t *testing.T) {
	var q KeyQueue
	assert.Empty(t, q.Drain())

	q.Push('a')
	q.Push('\r')
	assert.Equal(t, []byte{'a', '\r'}, q.Drain())
	assert.Empty(t, q.Drain())
}

func TestConfigWithWindowSize(t *testing.T) {
	cfg := ConfigWithWindowSize(1024, 768)

	p := &sizedPlatform{}
	require.NoError(t, cfg(p))
	assert.Equal(t, int32(1024), p.w)
	assert.Equal(t, int32(768), p.h)

	require.NoError(t, cfg(&headlessPlatform{}))
}

func TestQuitter(t *testing.T) {
	var q quitter
	q.init()

	select {
	case <-q.Done():
		t.Fatal("closed before quit")
	default:
	}

	q.quit()
	q.quit()
	_, open := <-q.Done()
	assert.False(t, open)
}
