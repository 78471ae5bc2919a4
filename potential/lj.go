/*
 * lj.go, part of htase.
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
	htase "github.com/arosen93/htase"
)

//LennardJones is the 12-6 pair potential with a single epsilon/sigma
//for all pairs. The energy is shifted so it vanishes at the cutoff.
type LennardJones struct {
	Epsilon float64 //well depth, eV
	Sigma   float64 //zero-crossing distance, Angstrom
	Cutoff  float64 //interaction cutoff, Angstrom; <=0 means 3*Sigma
}

//NewLennardJones returns a Lennard-Jones calculator. Non-positive
//epsilon or sigma is a programming error and panics.
func NewLennardJones(epsilon, sigma, cutoff float64) *LennardJones {
	if epsilon <= 0 || sigma <= 0 {
		panic(htase.PanicMsg("potential: Lennard-Jones epsilon and sigma must be positive"))
	}
	if cutoff <= 0 {
		cutoff = 3 * sigma
	}
	return &LennardJones{Epsilon: epsilon, Sigma: sigma, Cutoff: cutoff}
}

func (lj *LennardJones) pair(r float64) (u, du float64) {
	s6 := lj.Sigma / r
	s6 = s6 * s6 * s6
	s6 = s6 * s6
	u = 4 * lj.Epsilon * (s6*s6 - s6)
	du = 24 * lj.Epsilon * (s6 - 2*s6*s6) / r
	return u, du
}

func (lj *LennardJones) Calculate(atoms *htase.Atoms, properties []string) (*htase.Results, error) {
	if atoms == nil || atoms.Len() == 0 {
		return nil, htase.NewError("potential: Lennard-Jones: empty structure")
	}
	im, err := newImager(atoms)
	if err != nil {
		return nil, err
	}
	shift, _ := lj.pair(lj.Cutoff)
	n := atoms.Len()
	ps := newPairState(n)
	coords := atoms.Positions()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, r := im.disp(coords, i, j)
			if r >= lj.Cutoff {
				continue
			}
			u, du := lj.pair(r)
			ps.add(i, j, d, r, u-shift, du)
		}
	}
	return ps.results(atoms)
}

func (lj *LennardJones) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"potential": "lennard-jones",
		"epsilon":   lj.Epsilon,
		"sigma":     lj.Sigma,
		"cutoff":    lj.Cutoff,
	}
}
