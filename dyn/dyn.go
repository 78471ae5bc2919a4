/*
 * dyn.go, part of htase.
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

//Package dyn implements structure relaxation and molecular dynamics:
//force-based minimizers (FIRE, MDMin), a relaxation driver with
//trajectory and log output, velocity-Verlet and Langevin integrators,
//and Maxwell-Boltzmann velocity initialization. Relaxation convergence
//is judged on the largest per-atom force norm; running out of steps is
//not an error, it is reported through a flag.
package dyn

import (
	"math"

	"go.uber.org/zap"
)

var log = zap.NewNop().Sugar()

//SetLogger replaces the package logger, which by default discards
//everything.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

//Minimizer proposes coordinate updates from forces. Implementations
//carry state between calls (velocities, adaptive step sizes), so a
//Minimizer value drives exactly one relaxation.
type Minimizer interface {
	//Step returns the displacement to apply, given the current
	//generalized coordinates and the forces on them.
	Step(pos, forces []float64) []float64
}

//FIRE is the fast inertial relaxation engine (Bitzek et al., PRL 97,
//170201). It is the default minimizer: robust far from the minimum and
//requiring no line searches, i.e. no extra force calls per step.
type FIRE struct {
	Dt      float64 //initial time step, ASE time units
	Dtmax   float64
	MaxStep float64 //largest per-component displacement, Angstrom

	nmin          int
	finc, fdec    float64
	astart, fa    float64
	a             float64
	stepsSinceNeg int
	v             []float64
}

//NewFIRE returns a FIRE minimizer with the standard parameters.
func NewFIRE() *FIRE {
	return &FIRE{
		Dt: 0.1, Dtmax: 1.0, MaxStep: 0.2,
		nmin: 5, finc: 1.1, fdec: 0.5,
		astart: 0.1, fa: 0.99, a: 0.1,
	}
}

func (f *FIRE) Step(pos, forces []float64) []float64 {
	n := len(pos)
	if f.v == nil {
		f.v = make([]float64, n)
	}
	var power, fnorm, vnorm float64
	for i := 0; i < n; i++ {
		power += forces[i] * f.v[i]
		fnorm += forces[i] * forces[i]
		vnorm += f.v[i] * f.v[i]
	}
	fnorm = math.Sqrt(fnorm)
	vnorm = math.Sqrt(vnorm)
	if power > 0 {
		if fnorm > 0 {
			for i := 0; i < n; i++ {
				f.v[i] = (1-f.a)*f.v[i] + f.a*vnorm*forces[i]/fnorm
			}
		}
		f.stepsSinceNeg++
		if f.stepsSinceNeg > f.nmin {
			f.Dt = math.Min(f.Dt*f.finc, f.Dtmax)
			f.a *= f.fa
		}
	} else {
		for i := range f.v {
			f.v[i] = 0
		}
		f.a = f.astart
		f.Dt *= f.fdec
		f.stepsSinceNeg = 0
	}
	dr := make([]float64, n)
	var drmax float64
	for i := 0; i < n; i++ {
		f.v[i] += f.Dt * forces[i]
		dr[i] = f.Dt * f.v[i]
		if a := math.Abs(dr[i]); a > drmax {
			drmax = a
		}
	}
	if drmax > f.MaxStep {
		scale := f.MaxStep / drmax
		for i := range dr {
			dr[i] *= scale
		}
	}
	return dr
}

//MDMin is damped dynamics: velocities accumulate along the forces and
//are zeroed whenever they point uphill. Cheaper per step than FIRE but
//usually needing more of them.
type MDMin struct {
	Dt      float64
	MaxStep float64
	v       []float64
}

func NewMDMin() *MDMin {
	return &MDMin{Dt: 0.2, MaxStep: 0.2}
}

func (m *MDMin) Step(pos, forces []float64) []float64 {
	n := len(pos)
	if m.v == nil {
		m.v = make([]float64, n)
	}
	var power float64
	for i := 0; i < n; i++ {
		m.v[i] += m.Dt * forces[i]
		power += m.v[i] * forces[i]
	}
	if power <= 0 {
		for i := range m.v {
			m.v[i] = 0
		}
		for i := 0; i < n; i++ {
			m.v[i] = m.Dt * forces[i]
		}
	}
	dr := make([]float64, n)
	var drmax float64
	for i := 0; i < n; i++ {
		dr[i] = m.Dt * m.v[i]
		if a := math.Abs(dr[i]); a > drmax {
			drmax = a
		}
	}
	if drmax > m.MaxStep {
		scale := m.MaxStep / drmax
		for i := range dr {
			dr[i] *= scale
		}
	}
	return dr
}
