/*
 * relax.go, part of htase.
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
	"time"

	htase "github.com/arosen93/htase"
	"gonum.org/v1/gonum/mat"
)

//relaxable exposes a structure to the minimizers as a flat vector of
//degrees of freedom with matching generalized forces. The plain
//version has 3N coordinates; the cell-relaxing one appends the nine
//components of the deformation gradient.
type relaxable interface {
	dof() ([]float64, error)
	setDof([]float64) error
	//eval computes the generalized forces at the current dof and
	//returns them alongside the raw calculator results.
	eval() ([]float64, *htase.Results, error)
}

type atomsRelaxable struct {
	atoms *htase.Atoms
	calc  htase.Calculator
}

func (ar *atomsRelaxable) dof() ([]float64, error) {
	n := ar.atoms.Len()
	out := make([]float64, 3*n)
	coords := ar.atoms.Positions()
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			out[3*i+k] = coords.At(i, k)
		}
	}
	return out, nil
}

func (ar *atomsRelaxable) setDof(x []float64) error {
	coords := ar.atoms.Positions()
	n := ar.atoms.Len()
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			coords.Set(i, k, x[3*i+k])
		}
	}
	return nil
}

func (ar *atomsRelaxable) eval() ([]float64, *htase.Results, error) {
	res, err := ar.calc.Calculate(ar.atoms, []string{htase.PropEnergy, htase.PropForces})
	if err != nil {
		return nil, nil, err
	}
	if res.Forces == nil {
		return nil, nil, htase.NewError("dyn: calculator returned no forces")
	}
	n := ar.atoms.Len()
	f := make([]float64, 3*n)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			f[3*i+k] = res.Forces.At(i, k)
		}
	}
	return f, res, nil
}

//cellRelaxable relaxes positions and cell together through the
//deformation gradient F relative to the starting cell: the cell is
//C0 F^T, atomic positions are u F^T with u the undeformed coordinates,
//and the generalized force on F is -V sigma F^-T. The F components are
//scaled by the atom count so one step size suits both kinds of dof.
type cellRelaxable struct {
	atoms  *htase.Atoms
	calc   htase.Calculator
	orig   *mat.Dense //C0
	factor float64
}

func newCellRelaxable(atoms *htase.Atoms, calc htase.Calculator) (*cellRelaxable, error) {
	if atoms.Cell() == nil {
		return nil, htase.NewError("dyn: cell relaxation requested for a structure without a cell")
	}
	return &cellRelaxable{
		atoms:  atoms,
		calc:   calc,
		orig:   mat.DenseCopyOf(atoms.Cell()),
		factor: float64(atoms.Len()),
	}, nil
}

//deformGrad returns F such that cell = C0 F^T.
func (cr *cellRelaxable) deformGrad() (*mat.Dense, error) {
	var x mat.Dense
	if err := x.Solve(cr.orig, cr.atoms.Cell()); err != nil {
		return nil, htase.NewError("dyn: singular cell during relaxation: %v", err)
	}
	f := mat.NewDense(3, 3, nil)
	f.CloneFrom(x.T())
	return f, nil
}

func (cr *cellRelaxable) dof() ([]float64, error) {
	f, err := cr.deformGrad()
	if err != nil {
		return nil, err
	}
	//u = r F^-T, solved as F u^T = r^T
	var ut mat.Dense
	if err := ut.Solve(f, cr.atoms.Positions().T()); err != nil {
		return nil, htase.NewError("dyn: singular deformation gradient: %v", err)
	}
	n := cr.atoms.Len()
	out := make([]float64, 0, 3*n+9)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			out = append(out, ut.At(k, i))
		}
	}
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			out = append(out, f.At(i, k)*cr.factor)
		}
	}
	return out, nil
}

func (cr *cellRelaxable) setDof(x []float64) error {
	n := cr.atoms.Len()
	f := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			f.Set(i, k, x[3*n+3*i+k]/cr.factor)
		}
	}
	var cell mat.Dense
	cell.Mul(cr.orig, f.T())
	if err := cr.atoms.SetCell(mat.DenseCopyOf(&cell), cr.atoms.PBC()); err != nil {
		return err
	}
	u := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			u.Set(i, k, x[3*i+k])
		}
	}
	var r mat.Dense
	r.Mul(u, f.T())
	return cr.atoms.SetPositions(mat.DenseCopyOf(&r))
}

func (cr *cellRelaxable) eval() ([]float64, *htase.Results, error) {
	res, err := cr.calc.Calculate(cr.atoms,
		[]string{htase.PropEnergy, htase.PropForces, htase.PropStress})
	if err != nil {
		return nil, nil, err
	}
	if res.Forces == nil || res.Stress == nil {
		return nil, nil, htase.NewError("dyn: cell relaxation needs forces and stress from the calculator")
	}
	f, err := cr.deformGrad()
	if err != nil {
		return nil, nil, err
	}
	//forces on the undeformed coordinates
	var gu mat.Dense
	gu.Mul(res.Forces, f)
	vol, err := cr.atoms.Volume()
	if err != nil {
		return nil, nil, err
	}
	s := res.Stress
	virial := mat.NewDense(3, 3, []float64{
		-vol * s[0], -vol * s[5], -vol * s[4],
		-vol * s[5], -vol * s[1], -vol * s[3],
		-vol * s[4], -vol * s[3], -vol * s[2],
	})
	//gF = virial F^-T, solved as F gF^T = virial^T
	var gft mat.Dense
	if err := gft.Solve(f, virial.T()); err != nil {
		return nil, nil, htase.NewError("dyn: singular deformation gradient: %v", err)
	}
	n := cr.atoms.Len()
	out := make([]float64, 0, 3*n+9)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			out = append(out, gu.At(i, k))
		}
	}
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			out = append(out, gft.At(k, i)/cr.factor)
		}
	}
	return out, res, nil
}

//dofFmax is the convergence measure: the largest 3-vector norm in the
//generalized force vector. For a plain relaxation this is exactly the
//largest per-atom force.
func dofFmax(f []float64) float64 {
	var fmax float64
	for i := 0; i+2 < len(f); i += 3 {
		n2 := f[i]*f[i] + f[i+1]*f[i+1] + f[i+2]*f[i+2]
		if n2 > fmax {
			fmax = n2
		}
	}
	return math.Sqrt(fmax)
}

//RelaxOptions configure a relaxation run. The zero value relaxes to
//fmax 0.01 eV/Angstrom in at most 500 FIRE steps, writing the
//trajectory, log and restart files into Dir.
type RelaxOptions struct {
	Fmax      float64 //convergence threshold, eV/Angstrom
	MaxSteps  int
	Minimizer Minimizer //nil means FIRE
	RelaxCell bool
	Dir       string //output directory; empty means the current one
	StepN     int    //write every StepN-th frame; <=1 writes all
	Hook      func(step int, atoms *htase.Atoms, res *htase.Results) error
}

//TrajName, LogName and RestartName are the fixed file names a
//relaxation writes in its directory. They are not configurable:
//downstream result parsing depends on them.
const (
	TrajName    = "opt.traj"
	LogName     = "opt.log"
	RestartName = "opt.json"
)

//RelaxResult is the outcome of a relaxation. Converged being false is
//a normal outcome, not an error.
type RelaxResult struct {
	Atoms     *htase.Atoms
	Results   *htase.Results
	Converged bool
	Steps     int
	TrajFile  string
}

func (o *RelaxOptions) withDefaults() RelaxOptions {
	out := *o
	if out.Fmax <= 0 {
		out.Fmax = 0.01
	}
	if out.MaxSteps <= 0 {
		out.MaxSteps = 500
	}
	if out.Minimizer == nil {
		out.Minimizer = NewFIRE()
	}
	if out.StepN < 1 {
		out.StepN = 1
	}
	return out
}

//Relax minimizes the forces on atoms in place and returns the final
//state. The structure is modified; copy it first if the input matters.
func Relax(atoms *htase.Atoms, calc htase.Calculator, opts RelaxOptions) (*RelaxResult, error) {
	o := opts.withDefaults()
	var rx relaxable
	if o.RelaxCell {
		cr, err := newCellRelaxable(atoms, calc)
		if err != nil {
			return nil, err
		}
		rx = cr
	} else {
		rx = &atomsRelaxable{atoms: atoms, calc: calc}
	}
	trajPath := filepath.Join(o.Dir, TrajName)
	tw, err := NewTrajWriter(trajPath)
	if err != nil {
		return nil, err
	}
	defer tw.Close()
	logf, err := os.Create(filepath.Join(o.Dir, LogName))
	if err != nil {
		return nil, err
	}
	defer logf.Close()
	fmt.Fprintf(logf, "%-6s %-14s %-14s %-12s\n", "Step", "Time", "Energy[eV]", "fmax[eV/A]")

	result := &RelaxResult{Atoms: atoms, TrajFile: trajPath}
	for step := 0; step <= o.MaxSteps; step++ {
		forces, res, err := rx.eval()
		if err != nil {
			return nil, errStep(err, step)
		}
		result.Results = res
		result.Steps = step
		fm := dofFmax(forces)
		fmt.Fprintf(logf, "%-6d %-14s %-14.6f %-12.6f\n",
			step, time.Now().Format("15:04:05.000"), res.Energy, fm)
		log.Debugw("relaxation step", "step", step, "energy", res.Energy, "fmax", fm)
		if step%o.StepN == 0 {
			if err := tw.WriteFrame(atoms, res, step, 0); err != nil {
				return nil, errStep(err, step)
			}
		}
		//the restart file always holds the latest state, independent
		//of the trajectory interval
		if err := writeRestart(filepath.Join(o.Dir, RestartName), atoms, res, step); err != nil {
			return nil, errStep(err, step)
		}
		if o.Hook != nil {
			if err := o.Hook(step, atoms, res); err != nil {
				return nil, errStep(err, step)
			}
		}
		if fm < o.Fmax {
			result.Converged = true
			return result, nil
		}
		if step == o.MaxSteps {
			break
		}
		x, err := rx.dof()
		if err != nil {
			return nil, errStep(err, step)
		}
		dr := o.Minimizer.Step(x, forces)
		for i := range x {
			x[i] += dr[i]
		}
		if err := rx.setDof(x); err != nil {
			return nil, errStep(err, step)
		}
	}
	return result, nil
}

func errStep(err error, step int) error {
	return htase.NewError("dyn: relaxation failed at step %d: %v", step, err)
}
