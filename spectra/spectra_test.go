/*
 * spectra_test.go, part of htase.
 *
 * Copyright 2023 The htase Authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package spectra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadenPeaksAtModes(t *testing.T) {
	xs, ys := Broaden([]float64{1500}, Options{Min: 1000, Max: 2000, Points: 1001})
	peakAt := 0
	for i := range ys {
		if ys[i] > ys[peakAt] {
			peakAt = i
		}
	}
	assert.InDelta(t, 1500, xs[peakAt], 1.0)
}

func TestBroadenSkipsImaginaryModes(t *testing.T) {
	_, flat := Broaden([]float64{-500}, Options{Min: 100, Max: 1000, Points: 100})
	for _, y := range flat {
		assert.Zero(t, y)
	}
}

func TestBroadenGaussianNormalization(t *testing.T) {
	//one unit-area peak well inside the window integrates to ~1
	xs, ys := Broaden([]float64{1000}, Options{Min: 0, Max: 2000, Points: 4001, Gaussian: true})
	dx := xs[1] - xs[0]
	area := 0.0
	for _, y := range ys {
		area += y * dx
	}
	assert.InDelta(t, 1.0, area, 0.01)
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrum.png")
	err := WritePNG(path, "test", []float64{900, 1600, 3000}, Options{})
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
