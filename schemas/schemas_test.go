/*
 * schemas_test.go, part of htase.
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

package schemas

import (
	"path/filepath"
	"testing"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dyn"
	"github.com/arosen93/htase/potential"
	"github.com/arosen93/htase/vib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFormulaHillOrder(t *testing.T) {
	coords := mat.NewDense(9, 3, nil)
	for i := 0; i < 9; i++ {
		coords.Set(i, 0, float64(i)*2)
	}
	mol, err := htase.FromSymbols(
		[]string{"H", "C", "H", "O", "H", "C", "H", "H", "H"}, coords)
	require.NoError(t, err)
	assert.Equal(t, "C2H6O", Formula(mol))

	salt, err := htase.Diatomic("Na", "Cl", 2.36)
	require.NoError(t, err)
	assert.Equal(t, "ClNa", Formula(salt), "no carbon: plain alphabetical")
}

func TestSummarizeRunRoundTrip(t *testing.T) {
	mol, err := htase.Diatomic("Ar", "Ar", 1.2)
	require.NoError(t, err)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	res, err := lj.Calculate(mol, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	doc := SummarizeRun("lj-static", dir, mol, mol, res, lj)
	assert.Equal(t, "Ar2", doc.Atoms.Formula)
	assert.Equal(t, 2, doc.Atoms.NAtoms)
	assert.Contains(t, doc.Dir, dir, "dir is recorded with its full path")
	assert.Equal(t, "lennard-jones", doc.Parameters["potential"])
	require.NotNil(t, doc.Results)
	assert.Len(t, doc.Results.Forces, 2)

	path := filepath.Join(dir, "run.json")
	require.NoError(t, WriteJSON(path, doc))
	var back RunSchema
	require.NoError(t, ReadJSON(path, &back))
	assert.Equal(t, doc.Results.Energy, back.Results.Energy)
	assert.Equal(t, doc.Atoms.Symbols, back.Atoms.Symbols)
}

func TestSummarizeOpt(t *testing.T) {
	dir := t.TempDir()
	mol, err := htase.Diatomic("Ar", "Ar", 1.4)
	require.NoError(t, err)
	input := mol.Copy()
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	rr, err := dyn.Relax(mol, lj, dyn.RelaxOptions{Fmax: 0.01, MaxSteps: 200, Dir: dir})
	require.NoError(t, err)

	doc := SummarizeOpt("lj-relax", dir, input, rr, lj)
	assert.True(t, doc.Converged)
	assert.Greater(t, doc.NFrames, 1)
	assert.NotNil(t, doc.InputAtoms)
	assert.NotEqual(t, doc.InputAtoms.Positions[1], doc.Atoms.Positions[1],
		"input and final geometries must both be recorded")
}

func TestSummarizeMD(t *testing.T) {
	dir := t.TempDir()
	mol, err := htase.Diatomic("Ar", "Ar", 1.15)
	require.NoError(t, err)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	mr, err := dyn.RunMD(mol, lj, dyn.MDOptions{TimestepFs: 1, Steps: 10, Dir: dir})
	require.NoError(t, err)
	doc := SummarizeMD("lj-md", dir, nil, mr, 1.0, lj)
	assert.Equal(t, 10, doc.Steps)
	assert.Equal(t, 1.0, doc.TimestepFs)
}

func TestSummarizeVibNegativeConvention(t *testing.T) {
	mol, err := htase.Diatomic("H", "H", 1.3) //past the Morse inflection
	require.NoError(t, err)
	morse := potential.NewMorse(4.7, 1.9, 0.74)
	vr, err := vib.Run(mol, morse, vib.Options{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, vr.NImaginary(), 1)

	doc := SummarizeVib("h2-vib", t.TempDir(), mol, vr, morse)
	assert.Equal(t, vr.NImaginary(), doc.NImaginary)
	var negatives int
	for _, f := range doc.Frequencies {
		if f < 0 {
			negatives++
		}
	}
	assert.Equal(t, doc.NImaginary, negatives,
		"imaginary modes are stored as negative frequencies")
}
