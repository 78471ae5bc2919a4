/*
 * md.go, part of htase.
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
	"fmt"
	"math"
	"os"
	"path/filepath"

	htase "github.com/arosen93/htase"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

//Integrator advances a structure by one time step. dt is in ASE time
//units; the caller converts from femtoseconds. The passed results hold
//the forces at the current positions and the returned ones hold the
//forces at the new positions, so each step costs one force call.
type Integrator interface {
	Step(atoms *htase.Atoms, calc htase.Calculator, res *htase.Results, dt float64) (*htase.Results, error)
}

//VelocityVerlet is the standard symplectic NVE integrator.
type VelocityVerlet struct{}

func kick(atoms *htase.Atoms, forces *mat.Dense, dt float64) {
	v := atoms.Velocities()
	n := atoms.Len()
	for i := 0; i < n; i++ {
		m := atoms.Atom(i).Mass
		for k := 0; k < 3; k++ {
			v.Set(i, k, v.At(i, k)+dt*forces.At(i, k)/m)
		}
	}
}

func drift(atoms *htase.Atoms, dt float64) {
	coords := atoms.Positions()
	v := atoms.Velocities()
	n := atoms.Len()
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			coords.Set(i, k, coords.At(i, k)+dt*v.At(i, k))
		}
	}
}

func (VelocityVerlet) Step(atoms *htase.Atoms, calc htase.Calculator, res *htase.Results, dt float64) (*htase.Results, error) {
	kick(atoms, res.Forces, 0.5*dt)
	drift(atoms, dt)
	next, err := calc.Calculate(atoms, []string{htase.PropEnergy, htase.PropForces})
	if err != nil {
		return nil, err
	}
	kick(atoms, next.Forces, 0.5*dt)
	return next, nil
}

//Langevin is an NVT integrator (BAOAB splitting) thermostatting to
//TemperatureK with the given friction.
type Langevin struct {
	TemperatureK float64
	FrictionFs   float64 //friction coefficient, 1/fs
	rng          *rand.Rand
}

//NewLangevin returns a Langevin integrator. The seed makes runs
//reproducible; use a different seed per independent trajectory.
func NewLangevin(temperatureK, frictionFs float64, seed uint64) *Langevin {
	return &Langevin{
		TemperatureK: temperatureK,
		FrictionFs:   frictionFs,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

func (l *Langevin) Step(atoms *htase.Atoms, calc htase.Calculator, res *htase.Results, dt float64) (*htase.Results, error) {
	kick(atoms, res.Forces, 0.5*dt)
	drift(atoms, 0.5*dt)
	gamma := l.FrictionFs * htase.FsPerTimeUnit
	c1 := math.Exp(-gamma * dt)
	kt := htase.KB * l.TemperatureK
	v := atoms.Velocities()
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: l.rng}
	n := atoms.Len()
	for i := 0; i < n; i++ {
		m := atoms.Atom(i).Mass
		c2 := math.Sqrt((1 - c1*c1) * kt / m)
		for k := 0; k < 3; k++ {
			v.Set(i, k, c1*v.At(i, k)+c2*normal.Rand())
		}
	}
	drift(atoms, 0.5*dt)
	next, err := calc.Calculate(atoms, []string{htase.PropEnergy, htase.PropForces})
	if err != nil {
		return nil, err
	}
	kick(atoms, next.Forces, 0.5*dt)
	return next, nil
}

//MaxwellBoltzmann draws velocities from the Maxwell-Boltzmann
//distribution at the given temperature, replacing any velocities the
//structure had.
func MaxwellBoltzmann(atoms *htase.Atoms, temperatureK float64, seed uint64) {
	n := atoms.Len()
	v := mat.NewDense(n, 3, nil)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.New(rand.NewSource(seed))}
	kt := htase.KB * temperatureK
	for i := 0; i < n; i++ {
		sigma := math.Sqrt(kt / atoms.Atom(i).Mass)
		for k := 0; k < 3; k++ {
			v.Set(i, k, sigma*normal.Rand())
		}
	}
	//dimensions match by construction
	_ = atoms.SetVelocities(v)
}

//Stationary removes the center-of-mass momentum.
func Stationary(atoms *htase.Atoms) {
	v := atoms.Velocities()
	if v == nil {
		return
	}
	n := atoms.Len()
	var p [3]float64
	var mass float64
	for i := 0; i < n; i++ {
		m := atoms.Atom(i).Mass
		mass += m
		for k := 0; k < 3; k++ {
			p[k] += m * v.At(i, k)
		}
	}
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			v.Set(i, k, v.At(i, k)-p[k]/mass)
		}
	}
}

//ZeroRotation removes the rigid-body angular momentum about the center
//of mass. Only meaningful for isolated molecules.
func ZeroRotation(atoms *htase.Atoms) {
	v := atoms.Velocities()
	if v == nil || atoms.Len() < 2 {
		return
	}
	com := atoms.CenterOfMass()
	n := atoms.Len()
	var lvec [3]float64 //angular momentum
	inertia := mat.NewSymDense(3, nil)
	for i := 0; i < n; i++ {
		m := atoms.Atom(i).Mass
		x, y, z := atoms.Position(i)
		r := [3]float64{x - com[0], y - com[1], z - com[2]}
		vel := [3]float64{v.At(i, 0), v.At(i, 1), v.At(i, 2)}
		lvec[0] += m * (r[1]*vel[2] - r[2]*vel[1])
		lvec[1] += m * (r[2]*vel[0] - r[0]*vel[2])
		lvec[2] += m * (r[0]*vel[1] - r[1]*vel[0])
		r2 := r[0]*r[0] + r[1]*r[1] + r[2]*r[2]
		for a := 0; a < 3; a++ {
			for b := a; b < 3; b++ {
				term := -m * r[a] * r[b]
				if a == b {
					term += m * r2
				}
				inertia.SetSym(a, b, inertia.At(a, b)+term)
			}
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(inertia); err != nil {
		return //linear molecule along one axis; nothing sensible to do
	}
	var omega [3]float64
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			omega[a] += inv.At(a, b) * lvec[b]
		}
	}
	for i := 0; i < n; i++ {
		x, y, z := atoms.Position(i)
		r := [3]float64{x - com[0], y - com[1], z - com[2]}
		v.Set(i, 0, v.At(i, 0)-(omega[1]*r[2]-omega[2]*r[1]))
		v.Set(i, 1, v.At(i, 1)-(omega[2]*r[0]-omega[0]*r[2]))
		v.Set(i, 2, v.At(i, 2)-(omega[0]*r[1]-omega[1]*r[0]))
	}
}

//MDOptions configure a dynamics run. The zero value runs 500 steps of
//1 fs velocity-Verlet.
type MDOptions struct {
	TimestepFs float64
	Steps      int
	Integrator Integrator //nil means VelocityVerlet
	Dir        string
	StepN      int //write every StepN-th frame; <=1 writes all
	Hook       func(step int, atoms *htase.Atoms, res *htase.Results) error
}

//MDLogName is the fixed log file name of a dynamics run. The
//trajectory shares TrajName with relaxations so the same result
//summarizers apply.
const MDLogName = "md.log"

//MDResult is the outcome of a dynamics run.
type MDResult struct {
	Atoms    *htase.Atoms
	Results  *htase.Results
	Steps    int
	TrajFile string
}

func (o *MDOptions) withDefaults() MDOptions {
	out := *o
	if out.TimestepFs <= 0 {
		out.TimestepFs = 1.0
	}
	if out.Steps <= 0 {
		out.Steps = 500
	}
	if out.Integrator == nil {
		out.Integrator = VelocityVerlet{}
	}
	if out.StepN < 1 {
		out.StepN = 1
	}
	return out
}

//RunMD integrates the equations of motion for atoms in place. Missing
//velocities start at zero; call MaxwellBoltzmann first for a thermal
//start.
func RunMD(atoms *htase.Atoms, calc htase.Calculator, opts MDOptions) (*MDResult, error) {
	o := opts.withDefaults()
	if atoms.Velocities() == nil {
		if err := atoms.SetVelocities(mat.NewDense(atoms.Len(), 3, nil)); err != nil {
			return nil, err
		}
	}
	dt := o.TimestepFs / htase.FsPerTimeUnit
	trajPath := filepath.Join(o.Dir, TrajName)
	tw, err := NewTrajWriter(trajPath)
	if err != nil {
		return nil, err
	}
	defer tw.Close()
	logf, err := os.Create(filepath.Join(o.Dir, MDLogName))
	if err != nil {
		return nil, err
	}
	defer logf.Close()
	fmt.Fprintf(logf, "%-8s %-12s %-14s %-14s %-10s\n",
		"Step", "Time[fs]", "Epot[eV]", "Ekin[eV]", "T[K]")

	res, err := calc.Calculate(atoms, []string{htase.PropEnergy, htase.PropForces})
	if err != nil {
		return nil, err
	}
	if res.Forces == nil {
		return nil, htase.NewError("dyn: calculator returned no forces")
	}
	result := &MDResult{Atoms: atoms, TrajFile: trajPath}
	for step := 0; step <= o.Steps; step++ {
		t := float64(step) * o.TimestepFs
		if step%o.StepN == 0 {
			fmt.Fprintf(logf, "%-8d %-12.2f %-14.6f %-14.6f %-10.2f\n",
				step, t, res.Energy, atoms.KineticEnergy(), atoms.Temperature())
			if err := tw.WriteFrame(atoms, res, step, t); err != nil {
				return nil, err
			}
		}
		if o.Hook != nil {
			if err := o.Hook(step, atoms, res); err != nil {
				return nil, err
			}
		}
		if step == o.Steps {
			break
		}
		res, err = o.Integrator.Step(atoms, calc, res, dt)
		if err != nil {
			return nil, htase.NewError("dyn: dynamics failed at step %d: %v", step+1, err)
		}
	}
	result.Results = res
	result.Steps = o.Steps
	return result, nil
}
