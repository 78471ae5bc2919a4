/*
 * dyn_test.go, part of htase.
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

package dyn

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/potential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func stretchedDimer(t *testing.T) *htase.Atoms {
	t.Helper()
	mol, err := htase.Diatomic("Ar", "Ar", 1.4)
	require.NoError(t, err)
	return mol
}

func TestRelaxConverges(t *testing.T) {
	mol := stretchedDimer(t)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	res, err := Relax(mol, lj, RelaxOptions{Fmax: 0.01, MaxSteps: 200, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, math.Pow(2, 1.0/6.0), mol.Distance(0, 1), 1e-2)
	assert.InDelta(t, -1.0, res.Results.Energy, 1e-3)
	assert.Less(t, res.Results.Fmax(), 0.01)
}

func TestRelaxRunsOutOfSteps(t *testing.T) {
	mol := stretchedDimer(t)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	res, err := Relax(mol, lj, RelaxOptions{Fmax: 0.01, MaxSteps: 1, Dir: t.TempDir()})
	require.NoError(t, err, "hitting the step cap is not an error")
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Steps)
}

func TestRelaxWithMDMin(t *testing.T) {
	mol := stretchedDimer(t)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	res, err := Relax(mol, lj, RelaxOptions{
		Fmax: 0.02, MaxSteps: 400, Minimizer: NewMDMin(), Dir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.True(t, res.Converged)
}

func TestRelaxTrajectoryAndLog(t *testing.T) {
	dir := t.TempDir()
	mol := stretchedDimer(t)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	res, err := Relax(mol, lj, RelaxOptions{Fmax: 0.01, MaxSteps: 200, Dir: dir})
	require.NoError(t, err)

	frames, err := ReadTraj(res.TrajFile)
	require.NoError(t, err)
	require.NotEmpty(t, frames)
	assert.Equal(t, 0, frames[0].Step)
	assert.Greater(t, frames[0].Fmax, frames[len(frames)-1].Fmax,
		"forces must drop over a successful relaxation")

	last, err := FrameAtoms(frames[len(frames)-1])
	require.NoError(t, err)
	assert.InDelta(t, mol.Distance(0, 1), last.Distance(0, 1), 1e-8)

	logData, err := os.ReadFile(filepath.Join(dir, LogName))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "Energy[eV]")
}

func TestRelaxRestartFile(t *testing.T) {
	dir := t.TempDir()
	mol := stretchedDimer(t)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	//a sparse trajectory interval: the restart file must still track
	//every step
	res, err := Relax(mol, lj, RelaxOptions{Fmax: 0.01, MaxSteps: 200, Dir: dir, StepN: 50})
	require.NoError(t, err)

	fr, err := ReadRestart(filepath.Join(dir, RestartName))
	require.NoError(t, err)
	assert.Equal(t, res.Steps, fr.Step)
	assert.InDelta(t, res.Results.Energy, fr.Energy, 1e-12)

	resumed, err := FrameAtoms(*fr)
	require.NoError(t, err)
	assert.InDelta(t, mol.Distance(0, 1), resumed.Distance(0, 1), 1e-12,
		"the restart state must match the final geometry")
}

func TestRelaxHook(t *testing.T) {
	mol := stretchedDimer(t)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	var calls int
	_, err := Relax(mol, lj, RelaxOptions{
		Fmax: 0.01, MaxSteps: 200, Dir: t.TempDir(),
		Hook: func(step int, atoms *htase.Atoms, res *htase.Results) error {
			calls++
			return nil
		},
	})
	require.NoError(t, err)
	assert.Greater(t, calls, 1)
}

func TestRelaxCell(t *testing.T) {
	//a compressed periodic chain along x: every neighbor pair sits at
	//1.0 where the potential minimum is 2^(1/6), and the chain fills
	//the cell, so only expanding the cell can relieve the stress.
	coords := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		2, 0, 0,
		3, 0, 0,
	})
	mol, err := htase.FromSymbols([]string{"Ar", "Ar", "Ar", "Ar"}, coords)
	require.NoError(t, err)
	cell := mat.NewDense(3, 3, []float64{4, 0, 0, 0, 10, 0, 0, 0, 10})
	require.NoError(t, mol.SetCell(cell, [3]bool{true, true, true}))
	lj := potential.NewLennardJones(1.0, 1.0, 1.5)

	before, err := lj.Calculate(mol, nil)
	require.NoError(t, err)
	require.Less(t, before.Stress[0], 0.0, "the compressed chain starts under compression")

	res, err := Relax(mol, lj, RelaxOptions{
		Fmax: 0.005, MaxSteps: 1000, RelaxCell: true, Dir: t.TempDir(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Results.Stress)
	assert.Less(t, math.Abs(res.Results.Stress[0]), math.Abs(before.Stress[0]))
	assert.Greater(t, mol.Cell().At(0, 0), 4.0, "the cell must expand along the chain")
}

func TestVelocityVerletConservesEnergy(t *testing.T) {
	mol, err := htase.Diatomic("Ar", "Ar", 1.15)
	require.NoError(t, err)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	e0, err := lj.Calculate(mol, nil)
	require.NoError(t, err)

	res, err := RunMD(mol, lj, MDOptions{
		TimestepFs: 1.0, Steps: 200, Dir: t.TempDir(), StepN: 50,
	})
	require.NoError(t, err)
	etot := res.Results.Energy + mol.KineticEnergy()
	assert.InDelta(t, e0.Energy, etot, 1e-3,
		"NVE total energy must be conserved to integration accuracy")
}

func TestLangevinThermalizes(t *testing.T) {
	//a small LJ cluster coupled to a 300 K bath ends up with a kinetic
	//temperature of that order.
	coords := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		1.12, 0, 0,
		0.56, 0.97, 0,
		0.56, 0.32, 0.92,
	})
	mol, err := htase.FromSymbols([]string{"Ar", "Ar", "Ar", "Ar"}, coords)
	require.NoError(t, err)
	lj := potential.NewLennardJones(1.0, 1.0, 10.0)
	MaxwellBoltzmann(mol, 300, 7)
	_, err = RunMD(mol, lj, MDOptions{
		TimestepFs: 2.0, Steps: 2000, Dir: t.TempDir(), StepN: 500,
		Integrator: NewLangevin(300, 0.05, 11),
	})
	require.NoError(t, err)
	assert.Greater(t, mol.Temperature(), 30.0)
	assert.Less(t, mol.Temperature(), 3000.0)
}

func TestMaxwellBoltzmannTemperature(t *testing.T) {
	n := 200
	coords := mat.NewDense(n, 3, nil)
	syms := make([]string, n)
	for i := range syms {
		syms[i] = "Ar"
		coords.Set(i, 0, float64(i)*3)
	}
	mol, err := htase.FromSymbols(syms, coords)
	require.NoError(t, err)
	MaxwellBoltzmann(mol, 500, 3)
	assert.InEpsilon(t, 500.0, mol.Temperature(), 0.25,
		"sampled temperature approaches the target for many atoms")
}

func TestStationary(t *testing.T) {
	mol, err := htase.Diatomic("Ar", "Ar", 1.2)
	require.NoError(t, err)
	MaxwellBoltzmann(mol, 300, 5)
	Stationary(mol)
	v := mol.Velocities()
	for k := 0; k < 3; k++ {
		var p float64
		for i := 0; i < mol.Len(); i++ {
			p += mol.Atom(i).Mass * v.At(i, k)
		}
		assert.InDelta(t, 0.0, p, 1e-10)
	}
}

func TestZeroRotation(t *testing.T) {
	coords := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		1.1, 0, 0,
		0.55, 0.95, 0,
	})
	mol, err := htase.FromSymbols([]string{"Ar", "Ar", "Ar"}, coords)
	require.NoError(t, err)
	MaxwellBoltzmann(mol, 300, 9)
	Stationary(mol)
	ZeroRotation(mol)

	com := mol.CenterOfMass()
	v := mol.Velocities()
	var l [3]float64
	for i := 0; i < mol.Len(); i++ {
		m := mol.Atom(i).Mass
		x, y, z := mol.Position(i)
		r := [3]float64{x - com[0], y - com[1], z - com[2]}
		l[0] += m * (r[1]*v.At(i, 2) - r[2]*v.At(i, 1))
		l[1] += m * (r[2]*v.At(i, 0) - r[0]*v.At(i, 2))
		l[2] += m * (r[0]*v.At(i, 1) - r[1]*v.At(i, 0))
	}
	for k := 0; k < 3; k++ {
		assert.InDelta(t, 0.0, l[k], 1e-9)
	}
}
