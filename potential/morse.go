/*
 * morse.go, part of htase.
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

//Morse is the Morse pair potential,
//U(r) = D (exp(-2a(r-r0)) - 2 exp(-a(r-r0))),
//which is -D at the equilibrium distance r0 and 0 at infinity. Its
//exact vibrational levels make it the standard check for the
//finite-difference Hessian.
type Morse struct {
	D      float64 //well depth, eV
	A      float64 //range parameter, 1/Angstrom
	R0     float64 //equilibrium distance, Angstrom
	Cutoff float64 //<=0 means r0 + 10/a, where the tail is negligible
}

func NewMorse(d, a, r0 float64) *Morse {
	if d <= 0 || a <= 0 || r0 <= 0 {
		panic(htase.PanicMsg("potential: Morse parameters must be positive"))
	}
	return &Morse{D: d, A: a, R0: r0, Cutoff: r0 + 10/a}
}

func (m *Morse) pair(r float64) (u, du float64) {
	x := math.Exp(-m.A * (r - m.R0))
	u = m.D * (x*x - 2*x)
	du = 2 * m.A * m.D * x * (1 - x)
	return u, du
}

func (m *Morse) Calculate(atoms *htase.Atoms, properties []string) (*htase.Results, error) {
	if atoms == nil || atoms.Len() == 0 {
		return nil, htase.NewError("potential: Morse: empty structure")
	}
	im, err := newImager(atoms)
	if err != nil {
		return nil, err
	}
	n := atoms.Len()
	ps := newPairState(n)
	coords := atoms.Positions()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, r := im.disp(coords, i, j)
			if m.Cutoff > 0 && r >= m.Cutoff {
				continue
			}
			u, du := m.pair(r)
			ps.add(i, j, d, r, u, du)
		}
	}
	return ps.results(atoms)
}

func (m *Morse) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"potential": "morse",
		"d":         m.D,
		"a":         m.A,
		"r0":        m.R0,
	}
}
