/*
 * vib.go, part of htase.
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

//Package vib computes harmonic vibrational modes from central finite
//differences of the forces. Frequencies come out in 1/cm as complex
//numbers: a mode with negative curvature appears with a positive
//imaginary part instead of being silently dropped, since imaginary
//modes are exactly what transition-state searches look for.
package vib

import (
	"fmt"
	"io"
	"math"
	"sort"

	htase "github.com/arosen93/htase"
	"gonum.org/v1/gonum/mat"
)

const evPerCm = 1.239841984e-4 //h*c in eV*cm

//Options configure a vibrational analysis.
type Options struct {
	//Delta is the finite displacement in Angstrom. Zero means 0.01.
	Delta float64
	//Indices are the atoms to displace; nil means all of them. The
	//frozen atoms' force constants are excluded, as for an adsorbate
	//on a fixed surface.
	Indices []int
}

//Result holds the outcome of a vibrational analysis. Frequencies are
//sorted by the eigenvalue they came from, so imaginary modes come
//first.
type Result struct {
	Frequencies []complex128 //1/cm
	Energies    []complex128 //eV, h*nu
	Hessian     *mat.SymDense //mass-weighted, eV/(Angstrom^2 amu)
	Modes       *mat.Dense    //mass-weighted eigenvectors, one per row
	Indices     []int         //the atoms that were displaced
}

//ZPE returns the zero-point energy in eV, summed over the real modes.
func (r *Result) ZPE() float64 {
	var zpe float64
	for _, e := range r.Energies {
		if imag(e) == 0 {
			zpe += 0.5 * real(e)
		}
	}
	return zpe
}

//NImaginary returns the number of imaginary modes.
func (r *Result) NImaginary() int {
	var n int
	for _, f := range r.Frequencies {
		if imag(f) != 0 {
			n++
		}
	}
	return n
}

//RealFrequencies returns the real frequencies in 1/cm, ascending.
func (r *Result) RealFrequencies() []float64 {
	var out []float64
	for _, f := range r.Frequencies {
		if imag(f) == 0 {
			out = append(out, real(f))
		}
	}
	sort.Float64s(out)
	return out
}

//Run computes the harmonic modes of atoms with the given calculator.
//The structure is restored to its input geometry before returning,
//also when a force call fails midway.
func Run(atoms *htase.Atoms, calc htase.Calculator, opts Options) (*Result, error) {
	if atoms == nil || atoms.Len() == 0 {
		return nil, htase.NewError("vib: empty structure")
	}
	delta := opts.Delta
	if delta <= 0 {
		delta = 0.01
	}
	indices := opts.Indices
	if indices == nil {
		indices = make([]int, atoms.Len())
		for i := range indices {
			indices[i] = i
		}
	}
	for _, i := range indices {
		if i < 0 || i >= atoms.Len() {
			return nil, htase.NewError("vib: displacement index %d out of range", i)
		}
	}
	m := len(indices)
	dim := 3 * m
	coords := atoms.Positions()

	//restore the geometry whatever happens below
	orig := mat.DenseCopyOf(coords)
	defer func() {
		//SetPositions only fails on shape, unchanged here
		_ = atoms.SetPositions(orig)
	}()

	hess := mat.NewDense(dim, dim, nil)
	for a, i := range indices {
		for k := 0; k < 3; k++ {
			base := coords.At(i, k)
			coords.Set(i, k, base+delta)
			plus, err := calc.Calculate(atoms, []string{htase.PropForces})
			if err != nil {
				return nil, htase.NewError("vib: displacement +%d/%d: %v", i, k, err)
			}
			coords.Set(i, k, base-delta)
			minus, err := calc.Calculate(atoms, []string{htase.PropForces})
			if err != nil {
				return nil, htase.NewError("vib: displacement -%d/%d: %v", i, k, err)
			}
			coords.Set(i, k, base)
			if plus.Forces == nil || minus.Forces == nil {
				return nil, htase.NewError("vib: calculator returned no forces")
			}
			for b, j := range indices {
				for l := 0; l < 3; l++ {
					d := -(plus.Forces.At(j, l) - minus.Forces.At(j, l)) / (2 * delta)
					hess.Set(3*a+k, 3*b+l, d)
				}
			}
		}
	}

	//symmetrize and mass-weight
	masses := atoms.Masses()
	sym := mat.NewSymDense(dim, nil)
	for p := 0; p < dim; p++ {
		mi := masses[indices[p/3]]
		for q := p; q < dim; q++ {
			mj := masses[indices[q/3]]
			v := 0.5 * (hess.At(p, q) + hess.At(q, p)) / math.Sqrt(mi*mj)
			sym.SetSym(p, q, v)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, htase.NewError("vib: eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	res := &Result{
		Frequencies: make([]complex128, dim),
		Energies:    make([]complex128, dim),
		Hessian:     sym,
		Modes:       mat.DenseCopyOf(vecs.T()),
		Indices:     indices,
	}
	//eigenvalues within noise of zero are the translation and rotation
	//modes; calling them imaginary would be numerical, not physical
	const eigTol = 1e-8
	for p, v := range vals {
		var f complex128
		switch {
		case v >= eigTol:
			f = complex(htase.VibFreqFactor*math.Sqrt(v), 0)
		case v <= -eigTol:
			f = complex(0, htase.VibFreqFactor*math.Sqrt(-v))
		default:
			f = 0
		}
		res.Frequencies[p] = f
		res.Energies[p] = f * complex(evPerCm, 0)
	}
	return res, nil
}

//WriteSummary writes a human-readable mode table, imaginary modes
//marked with an i suffix.
func WriteSummary(w io.Writer, r *Result) error {
	if _, err := fmt.Fprintf(w, "---------------------\n  #    meV     cm^-1\n---------------------\n"); err != nil {
		return err
	}
	for p, f := range r.Frequencies {
		suffix := " "
		val := real(f)
		ev := real(r.Energies[p])
		if imag(f) != 0 {
			suffix = "i"
			val = imag(f)
			ev = imag(r.Energies[p])
		}
		if _, err := fmt.Fprintf(w, "%3d %8.1f%s %9.1f%s\n", p, ev*1000, suffix, val, suffix); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "---------------------\nZero-point energy: %.3f eV\n", r.ZPE())
	return err
}
