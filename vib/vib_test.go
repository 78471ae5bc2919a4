/*
 * vib_test.go, part of htase.
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

package vib

import (
	"math"
	"strings"
	"testing"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/potential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//morseH2 builds an H2 molecule on a Morse potential whose harmonic
//frequency is known in closed form: omega = a*sqrt(2D/mu).
func morseH2(t *testing.T, r float64) (*htase.Atoms, *potential.Morse, float64) {
	t.Helper()
	const (
		d  = 4.7
		a  = 1.9
		r0 = 0.74
	)
	mol, err := htase.Diatomic("H", "H", r)
	require.NoError(t, err)
	mu := 1.008 / 2
	want := htase.VibFreqFactor * a * math.Sqrt(2*d/mu)
	return mol, potential.NewMorse(d, a, r0), want
}

func TestMorseStretchFrequency(t *testing.T) {
	mol, calc, want := morseH2(t, 0.74)
	res, err := Run(mol, calc, Options{})
	require.NoError(t, err)
	require.Len(t, res.Frequencies, 6)
	assert.Equal(t, 0, res.NImaginary())

	//five modes are (near) zero: translations and the two rotations of
	//a linear molecule against a central pair potential.
	freqs := res.RealFrequencies()
	top := freqs[len(freqs)-1]
	assert.InEpsilon(t, want, top, 0.02)
	for _, f := range freqs[:len(freqs)-1] {
		assert.Less(t, f, want/100)
	}
}

func TestImaginaryModeBeyondInflection(t *testing.T) {
	//past the Morse inflection point the stretch curvature is negative
	//and must show up as an imaginary frequency, not vanish.
	mol, calc, _ := morseH2(t, 1.3)
	res, err := Run(mol, calc, Options{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.NImaginary(), 1)
	assert.Greater(t, imag(res.Frequencies[0]), 0.0,
		"imaginary modes sort first")
}

func TestGeometryRestored(t *testing.T) {
	mol, calc, _ := morseH2(t, 0.74)
	before := mol.Distance(0, 1)
	_, err := Run(mol, calc, Options{})
	require.NoError(t, err)
	assert.InDelta(t, before, mol.Distance(0, 1), 1e-12)
}

func TestIndicesSubset(t *testing.T) {
	mol, calc, _ := morseH2(t, 0.74)
	res, err := Run(mol, calc, Options{Indices: []int{1}})
	require.NoError(t, err)
	assert.Len(t, res.Frequencies, 3, "one displaced atom gives three modes")

	//with atom 0 frozen the stretch uses the full mass, not the
	//reduced one
	want := htase.VibFreqFactor * 1.9 * math.Sqrt(2*4.7/1.008)
	freqs := res.RealFrequencies()
	assert.InEpsilon(t, want, freqs[len(freqs)-1], 0.02)
}

func TestIndicesOutOfRange(t *testing.T) {
	mol, calc, _ := morseH2(t, 0.74)
	_, err := Run(mol, calc, Options{Indices: []int{5}})
	assert.Error(t, err)
}

func TestZPE(t *testing.T) {
	mol, calc, want := morseH2(t, 0.74)
	res, err := Run(mol, calc, Options{})
	require.NoError(t, err)
	//dominated by the stretch: 0.5 * h*nu
	assert.InEpsilon(t, 0.5*want*1.239841984e-4, res.ZPE(), 0.05)
}

func TestWriteSummary(t *testing.T) {
	mol, calc, _ := morseH2(t, 0.74)
	res, err := Run(mol, calc, Options{})
	require.NoError(t, err)
	var sb strings.Builder
	require.NoError(t, WriteSummary(&sb, res))
	out := sb.String()
	assert.Contains(t, out, "cm^-1")
	assert.Contains(t, out, "Zero-point energy")
}
