/*
 * thermo_test.go, part of htase.
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

package thermo

import (
	"testing"

	htase "github.com/arosen93/htase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func h2(t *testing.T) *htase.Atoms {
	t.Helper()
	mol, err := htase.Diatomic("H", "H", 0.741)
	require.NoError(t, err)
	return mol
}

func TestGeometryClassification(t *testing.T) {
	mono, err := htase.FromSymbols([]string{"Ar"}, mat.NewDense(1, 3, []float64{0, 0, 0}))
	require.NoError(t, err)
	ig, err := NewIdealGas(mono, 0, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, Monatomic, ig.Geometry())

	ig, err = NewIdealGas(h2(t), 0, nil, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, Linear, ig.Geometry())

	water := mat.NewDense(3, 3, []float64{
		0, 0, 0.119,
		0, 0.763, -0.477,
		0, -0.763, -0.477,
	})
	mol, err := htase.FromSymbols([]string{"O", "H", "H"}, water)
	require.NoError(t, err)
	ig, err = NewIdealGas(mol, 0, nil, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, Nonlinear, ig.Geometry())
}

func TestH2StandardEntropy(t *testing.T) {
	//the textbook value: S(H2, 298.15 K, 1 bar) = 130.7 J/mol/K,
	//i.e. 1.354e-3 eV/K per molecule.
	stretch := complex(0.5456, 0) //eV, ~4400 1/cm
	ig, err := NewIdealGas(h2(t), 0, []complex128{stretch}, 1, 2)
	require.NoError(t, err)
	s := ig.Entropy(298.15, 1.0e5)
	assert.InEpsilon(t, 1.354e-3, s, 0.01)
}

func TestZPEKeepsOnlyPhysicalModes(t *testing.T) {
	//six mode energies as the analysis of a diatomic produces them:
	//an imaginary leftover, four near-zero ones and the stretch. Only
	//the stretch may enter the ZPE.
	modes := []complex128{
		complex(0, 0.001),
		1e-6, 2e-6, 3e-6, 4e-6,
		0.5456,
	}
	ig, err := NewIdealGas(h2(t), 0, modes, 1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.2728, ig.ZPE(), 1e-6)
}

func TestEnthalpyMonotonicInT(t *testing.T) {
	ig, err := NewIdealGas(h2(t), -6.0, []complex128{0.5456}, 1, 2)
	require.NoError(t, err)
	h300 := ig.Enthalpy(300)
	h600 := ig.Enthalpy(600)
	assert.Greater(t, h600, h300)
	//electronic energy and ZPE dominate
	assert.InDelta(t, -6.0+0.2728, h300, 0.2)
}

func TestGibbsConsistency(t *testing.T) {
	ig, err := NewIdealGas(h2(t), -6.0, []complex128{0.5456}, 1, 2)
	require.NoError(t, err)
	const temp, p = 300.0, 1.0e5
	assert.InDelta(t, ig.Enthalpy(temp)-temp*ig.Entropy(temp, p), ig.Gibbs(temp, p), 1e-12)
}

func TestEntropyPressureDependence(t *testing.T) {
	ig, err := NewIdealGas(h2(t), 0, nil, 1, 2)
	require.NoError(t, err)
	low := ig.Entropy(300, 1.0e4)
	high := ig.Entropy(300, 1.0e6)
	assert.Greater(t, low, high, "entropy drops with pressure")
}

func TestBadInput(t *testing.T) {
	_, err := NewIdealGas(h2(t), 0, nil, 0, 1)
	assert.Error(t, err)
	_, err = NewIdealGas(h2(t), 0, nil, 1, 0)
	assert.Error(t, err)
}
