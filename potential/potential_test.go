/*
 * potential_test.go, part of htase.
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

package potential

import (
	"math"
	"testing"

	htase "github.com/arosen93/htase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLennardJonesDimerMinimum(t *testing.T) {
	lj := NewLennardJones(1.0, 1.0, 10.0)
	rmin := math.Pow(2, 1.0/6.0)
	mol, err := htase.Diatomic("Ar", "Ar", rmin)
	require.NoError(t, err)
	res, err := lj.Calculate(mol, []string{htase.PropEnergy, htase.PropForces})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, res.Energy, 1e-4)
	assert.InDelta(t, 0.0, res.Fmax(), 1e-10)
}

func TestLennardJonesRepulsive(t *testing.T) {
	lj := NewLennardJones(1.0, 1.0, 10.0)
	mol, err := htase.Diatomic("Ar", "Ar", 0.9)
	require.NoError(t, err)
	res, err := lj.Calculate(mol, nil)
	require.NoError(t, err)
	//bond is along z; compressed dimer pushes atom 1 to larger z
	assert.Greater(t, res.Forces.At(1, 2), 0.0)
	assert.Less(t, res.Forces.At(0, 2), 0.0)
	assert.InDelta(t, 0.0, res.Forces.At(0, 2)+res.Forces.At(1, 2), 1e-12,
		"forces on an isolated pair must cancel")
}

//numForce computes a central-difference force on one coordinate to
//check the analytic ones against.
func numForce(t *testing.T, c htase.Calculator, mol *htase.Atoms, atom, axis int) float64 {
	t.Helper()
	const h = 1e-5
	orig := mol.Positions().At(atom, axis)
	mol.Positions().Set(atom, axis, orig+h)
	plus, err := c.Calculate(mol, nil)
	require.NoError(t, err)
	mol.Positions().Set(atom, axis, orig-h)
	minus, err := c.Calculate(mol, nil)
	require.NoError(t, err)
	mol.Positions().Set(atom, axis, orig)
	return -(plus.Energy - minus.Energy) / (2 * h)
}

func TestAnalyticForcesMatchNumerical(t *testing.T) {
	coords := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		1.1, 0.2, -0.1,
		0.4, 1.0, 0.3,
	})
	mol, err := htase.FromSymbols([]string{"Ar", "Ar", "Ar"}, coords)
	require.NoError(t, err)
	for _, calc := range []htase.Calculator{
		NewLennardJones(1.0, 1.0, 10.0),
		NewMorse(4.7, 1.9, 0.74),
	} {
		res, err := calc.Calculate(mol, nil)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			for k := 0; k < 3; k++ {
				assert.InDelta(t, numForce(t, calc, mol, i, k),
					res.Forces.At(i, k), 1e-4)
			}
		}
	}
}

func TestEMTForcesMatchNumerical(t *testing.T) {
	coords := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		2.5, 0.1, 0,
		1.2, 2.2, 0.1,
		1.3, 0.8, 2.1,
	})
	mol, err := htase.FromSymbols([]string{"Cu", "Cu", "Cu", "Cu"}, coords)
	require.NoError(t, err)
	emt := NewEMT()
	res, err := emt.Calculate(mol, nil)
	require.NoError(t, err)
	assert.Less(t, res.Energy, 0.0, "a compact Cu cluster must bind")
	for i := 0; i < 4; i++ {
		for k := 0; k < 3; k++ {
			assert.InDelta(t, numForce(t, emt, mol, i, k),
				res.Forces.At(i, k), 1e-4)
		}
	}
}

func TestEMTUnknownElement(t *testing.T) {
	mol, err := htase.Diatomic("He", "He", 1.0)
	require.NoError(t, err)
	_, err = NewEMT().Calculate(mol, nil)
	assert.Error(t, err)
}

func TestMorseMinimum(t *testing.T) {
	m := NewMorse(4.7, 1.9, 0.74)
	mol, err := htase.Diatomic("H", "H", 0.74)
	require.NoError(t, err)
	res, err := m.Calculate(mol, nil)
	require.NoError(t, err)
	assert.InDelta(t, -4.7, res.Energy, 1e-8)
	assert.InDelta(t, 0.0, res.Fmax(), 1e-10)
}

func TestMinimumImageConvention(t *testing.T) {
	//two atoms separated by 9 Angstrom in a 10 Angstrom box interact
	//across the boundary at distance 1, not 9.
	coords := mat.NewDense(2, 3, []float64{
		0.5, 5, 5,
		9.5, 5, 5,
	})
	mol, err := htase.FromSymbols([]string{"Ar", "Ar"}, coords)
	require.NoError(t, err)
	cell := mat.NewDense(3, 3, []float64{10, 0, 0, 0, 10, 0, 0, 0, 10})
	require.NoError(t, mol.SetCell(cell, [3]bool{true, true, true}))

	lj := NewLennardJones(1.0, 1.0, 3.0)
	res, err := lj.Calculate(mol, nil)
	require.NoError(t, err)
	iso, err := htase.Diatomic("Ar", "Ar", 1.0)
	require.NoError(t, err)
	isoRes, err := lj.Calculate(iso, nil)
	require.NoError(t, err)
	assert.InDelta(t, isoRes.Energy, res.Energy, 1e-10)
}

func TestStressSignUnderCompression(t *testing.T) {
	//a dimer squeezed below its minimum distance inside a periodic box
	//produces a negative (compressive) diagonal stress along the bond.
	coords := mat.NewDense(2, 3, []float64{
		0, 5, 5,
		1.0, 5, 5,
	})
	mol, err := htase.FromSymbols([]string{"Ar", "Ar"}, coords)
	require.NoError(t, err)
	cell := mat.NewDense(3, 3, []float64{20, 0, 0, 0, 20, 0, 0, 0, 20})
	require.NoError(t, mol.SetCell(cell, [3]bool{true, true, true}))
	lj := NewLennardJones(1.0, 1.0, 3.0)
	res, err := lj.Calculate(mol, nil)
	require.NoError(t, err)
	require.Len(t, res.Stress, 6)
	assert.Less(t, res.Stress[0], 0.0)
	assert.InDelta(t, 0.0, res.Stress[1], 1e-12)
}

func TestIsolatedStructureHasNoStress(t *testing.T) {
	mol, err := htase.Diatomic("Ar", "Ar", 1.2)
	require.NoError(t, err)
	res, err := NewLennardJones(1.0, 1.0, 3.0).Calculate(mol, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Stress)
}
