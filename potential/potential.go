/*
 * potential.go, part of htase.
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

//Package potential implements analytic model potentials (Lennard-Jones,
//Morse and an effective-medium metal potential) as in-process
//calculators. They exist so workflows can be exercised end to end
//without an external electronic-structure code, but they are real
//potentials: energies, forces and virial stresses are consistent, so
//relaxations and dynamics behave physically.
package potential

import (
	"math"

	htase "github.com/arosen93/htase"
	"gonum.org/v1/gonum/mat"
)

//imager produces pair displacements under the minimum-image convention.
//It is only valid while the cutoff stays below half the smallest cell
//extent, which holds for every model system these potentials target.
type imager struct {
	cell     *mat.Dense
	inv      *mat.Dense
	pbc      [3]bool
	periodic bool
}

func newImager(atoms *htase.Atoms) (*imager, error) {
	im := &imager{cell: atoms.Cell(), pbc: atoms.PBC(), periodic: atoms.AnyPBC()}
	if im.periodic {
		if im.cell == nil {
			return nil, htase.NewError("potential: periodic structure without a cell")
		}
		im.inv = mat.NewDense(3, 3, nil)
		if err := im.inv.Inverse(im.cell); err != nil {
			return nil, htase.NewError("potential: singular cell matrix: %v", err)
		}
	}
	return im, nil
}

//disp returns the minimum-image vector r_i - r_j and its norm.
func (im *imager) disp(coords *mat.Dense, i, j int) (d [3]float64, r float64) {
	for k := 0; k < 3; k++ {
		d[k] = coords.At(i, k) - coords.At(j, k)
	}
	if im.periodic {
		var s [3]float64
		for k := 0; k < 3; k++ {
			for a := 0; a < 3; a++ {
				s[k] += d[a] * im.inv.At(a, k)
			}
		}
		for k := 0; k < 3; k++ {
			if im.pbc[k] {
				s[k] -= math.Round(s[k])
			}
		}
		for a := 0; a < 3; a++ {
			d[a] = 0
			for k := 0; k < 3; k++ {
				d[a] += s[k] * im.cell.At(k, a)
			}
		}
	}
	r = math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	return d, r
}

//pairState accumulates the per-pair contributions every pairwise
//potential produces: energy, forces and the virial.
type pairState struct {
	energy float64
	forces *mat.Dense
	virial [6]float64 //Voigt order xx yy zz yz xz xy
}

func newPairState(n int) *pairState {
	return &pairState{forces: mat.NewDense(n, 3, nil)}
}

//add records one pair at displacement d (r_i - r_j), distance r, pair
//energy u and radial derivative du = dU/dr.
func (ps *pairState) add(i, j int, d [3]float64, r, u, du float64) {
	ps.energy += u
	f := -du / r
	for k := 0; k < 3; k++ {
		ps.forces.Set(i, k, ps.forces.At(i, k)+f*d[k])
		ps.forces.Set(j, k, ps.forces.At(j, k)-f*d[k])
	}
	g := du / r
	ps.virial[0] += g * d[0] * d[0]
	ps.virial[1] += g * d[1] * d[1]
	ps.virial[2] += g * d[2] * d[2]
	ps.virial[3] += g * d[1] * d[2]
	ps.virial[4] += g * d[0] * d[2]
	ps.virial[5] += g * d[0] * d[1]
}

//results packages the accumulated state, attaching the stress only for
//periodic structures (it needs a volume to be defined).
func (ps *pairState) results(atoms *htase.Atoms) (*htase.Results, error) {
	res := &htase.Results{Energy: ps.energy, Forces: ps.forces}
	if atoms.AnyPBC() {
		vol, err := atoms.Volume()
		if err != nil {
			return nil, err
		}
		stress := make([]float64, 6)
		for k := 0; k < 6; k++ {
			stress[k] = ps.virial[k] / vol
		}
		res.Stress = stress
	}
	return res, nil
}
