/*
 * emt.go, part of htase.
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

	htase "github.com/arosen93/htase"
)

//emtParams are the second-moment tight-binding parameters of Cleri and
//Rosato (PRB 48, 22, 1993). Energies in eV, distances in Angstrom.
type emtParams struct {
	a, xi, p, q, r0 float64
}

var emtTable = map[string]emtParams{
	"Ni": {0.0376, 1.070, 16.999, 1.189, 2.491},
	"Cu": {0.0855, 1.224, 10.960, 2.278, 2.556},
	"Pd": {0.1746, 1.718, 10.867, 3.742, 2.749},
	"Ag": {0.1028, 1.178, 10.928, 3.139, 2.889},
	"Pt": {0.2975, 2.695, 10.612, 4.004, 2.775},
	"Au": {0.2061, 1.790, 10.229, 4.036, 2.884},
	"Al": {0.1221, 1.316, 8.612, 2.516, 2.863},
}

//EMT is an effective-medium potential for the late fcc metals, in the
//second-moment approximation: a pairwise Born-Mayer repulsion plus a
//square-root embedding of the local bond density. Parameters for mixed
//pairs are combined by the usual geometric (prefactors) and arithmetic
//(exponents, distances) rules.
type EMT struct {
	cutoff float64
}

//NewEMT returns an effective-medium calculator. The cutoff covers the
//first few neighbor shells of every parameterized element.
func NewEMT() *EMT {
	return &EMT{cutoff: 5.5}
}

func mixEMT(p1, p2 emtParams) emtParams {
	return emtParams{
		a:  math.Sqrt(p1.a * p2.a),
		xi: math.Sqrt(p1.xi * p2.xi),
		p:  0.5 * (p1.p + p2.p),
		q:  0.5 * (p1.q + p2.q),
		r0: 0.5 * (p1.r0 + p2.r0),
	}
}

func (e *EMT) Calculate(atoms *htase.Atoms, properties []string) (*htase.Results, error) {
	if atoms == nil || atoms.Len() == 0 {
		return nil, htase.NewError("potential: EMT: empty structure")
	}
	n := atoms.Len()
	params := make([]emtParams, n)
	for i := 0; i < n; i++ {
		sym := atoms.Atom(i).Symbol
		p, ok := emtTable[sym]
		if !ok {
			return nil, htase.NewError("potential: EMT: no parameters for element %s", sym)
		}
		params[i] = p
	}
	im, err := newImager(atoms)
	if err != nil {
		return nil, err
	}
	coords := atoms.Positions()

	//First pass: repulsive energy and the bond densities.
	var erep float64
	rho := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			_, r := im.disp(coords, i, j)
			if r >= e.cutoff {
				continue
			}
			pp := mixEMT(params[i], params[j])
			erep += 2 * pp.a * math.Exp(-pp.p*(r/pp.r0-1))
			hop := pp.xi * pp.xi * math.Exp(-2*pp.q*(r/pp.r0-1))
			rho[i] += hop
			rho[j] += hop
		}
	}
	energy := erep
	for i := 0; i < n; i++ {
		energy -= math.Sqrt(rho[i])
	}

	//Second pass: forces and virial from the radial derivative, which
	//now needs the embedded densities of both pair members.
	ps := newPairState(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, r := im.disp(coords, i, j)
			if r >= e.cutoff {
				continue
			}
			pp := mixEMT(params[i], params[j])
			du := -2 * pp.a * pp.p / pp.r0 * math.Exp(-pp.p*(r/pp.r0-1))
			hop := pp.xi * pp.xi * math.Exp(-2*pp.q*(r/pp.r0-1))
			emb := 0.0
			if rho[i] > 0 {
				emb += 1 / math.Sqrt(rho[i])
			}
			if rho[j] > 0 {
				emb += 1 / math.Sqrt(rho[j])
			}
			du += pp.q / pp.r0 * hop * emb
			ps.add(i, j, d, r, 0, du)
		}
	}
	ps.energy = energy
	return ps.results(atoms)
}

func (e *EMT) Parameters() map[string]interface{} {
	return map[string]interface{}{"potential": "emt", "cutoff": e.cutoff}
}
