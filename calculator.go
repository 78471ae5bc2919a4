/*
 * calculator.go, part of htase.
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

package htase

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

//Property names a calculator can be asked for. A calculator is free to
//return more than was asked (most return everything they have), but
//asking for a property it cannot produce is an error.
const (
	PropEnergy = "energy"
	PropForces = "forces"
	PropStress = "stress"
)

//Results holds everything a calculator produced for one structure.
//Fields the calculator did not compute are left at their zero value
//(nil for the slices and matrices).
type Results struct {
	Energy  float64
	Forces  *mat.Dense //Nx3, eV/Angstrom
	Stress  []float64  //6 components, Voigt order, eV/Angstrom^3
	Magmoms []float64  //final per-atom magnetic moments
	Charges []float64  //final per-atom charges
	Extra   map[string]interface{}
}

//Copy returns a deep copy of the results.
func (R *Results) Copy() *Results {
	if R == nil {
		return nil
	}
	n := &Results{Energy: R.Energy}
	if R.Forces != nil {
		n.Forces = mat.DenseCopyOf(R.Forces)
	}
	if R.Stress != nil {
		n.Stress = append([]float64{}, R.Stress...)
	}
	if R.Magmoms != nil {
		n.Magmoms = append([]float64{}, R.Magmoms...)
	}
	if R.Charges != nil {
		n.Charges = append([]float64{}, R.Charges...)
	}
	if R.Extra != nil {
		n.Extra = deepCopyInfo(R.Extra)
	}
	return n
}

//Fmax returns the largest per-atom force norm, or 0 if no forces are
//present. This is the convergence measure used by the relaxation
//drivers.
func (R *Results) Fmax() float64 {
	if R == nil || R.Forces == nil {
		return 0
	}
	rows, _ := R.Forces.Dims()
	var fmax float64
	for i := 0; i < rows; i++ {
		fx := R.Forces.At(i, 0)
		fy := R.Forces.At(i, 1)
		fz := R.Forces.At(i, 2)
		f := fx*fx + fy*fy + fz*fz
		if f > fmax {
			fmax = f
		}
	}
	return math.Sqrt(fmax)
}

//Calculator computes energies, forces and derived properties for a
//structure. Implementations must not keep references into the Atoms
//they are passed; the runner relies on structures staying isolated
//between jobs. Calculate runs in whatever the process current working
//directory is -- the runner points that at a scratch directory before
//calling.
type Calculator interface {
	//Calculate evaluates the requested properties for atoms.
	Calculate(atoms *Atoms, properties []string) (*Results, error)

	//Parameters returns the configuration the calculator was built
	//with. The mapping is treated as opaque by the core and ends up
	//verbatim in the result schemas.
	Parameters() map[string]interface{}
}
