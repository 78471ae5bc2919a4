/*
 * thermo.go, part of htase.
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

//Package thermo computes ideal-gas thermochemistry (zero-point energy,
//enthalpy, entropy, Gibbs free energy) from a molecular geometry and
//its harmonic frequencies. Energies are in eV and entropies in eV/K;
//the rigid-rotor and translational partition functions are evaluated
//in SI internally because their logarithms need dimensionless
//arguments.
package thermo

import (
	"math"
	"sort"

	htase "github.com/arosen93/htase"
	"gonum.org/v1/gonum/mat"
)

//SI constants for the partition functions.
const (
	kbJ   = 1.380649e-23    //J/K
	hJ    = 6.62607015e-34  //J s
	evJ   = 1.602176634e-19 //J per eV
	refPa = 1.0e5           //reference pressure, 1 bar
)

//Geometry classifies a molecule for the rotational partition function.
type Geometry int

const (
	Monatomic Geometry = iota
	Linear
	Nonlinear
)

//InertiaMoments returns the principal moments of inertia about the
//center of mass in amu*Angstrom^2, ascending.
func InertiaMoments(atoms *htase.Atoms) []float64 {
	com := atoms.CenterOfMass()
	tensor := mat.NewSymDense(3, nil)
	for i := 0; i < atoms.Len(); i++ {
		m := atoms.Atom(i).Mass
		x, y, z := atoms.Position(i)
		r := [3]float64{x - com[0], y - com[1], z - com[2]}
		r2 := r[0]*r[0] + r[1]*r[1] + r[2]*r[2]
		for a := 0; a < 3; a++ {
			for b := a; b < 3; b++ {
				v := -m * r[a] * r[b]
				if a == b {
					v += m * r2
				}
				tensor.SetSym(a, b, tensor.At(a, b)+v)
			}
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(tensor, false) {
		panic(htase.PanicMsg("thermo: inertia eigendecomposition failed"))
	}
	vals := eig.Values(nil)
	sort.Float64s(vals)
	return vals
}

//classify decides the molecular geometry from the inertia moments.
func classify(moments []float64) Geometry {
	const tol = 1e-3 //amu*Angstrom^2
	switch {
	case moments[2] < tol:
		return Monatomic
	case moments[0] < tol:
		return Linear
	default:
		return Nonlinear
	}
}

//IdealGas evaluates the ideal-gas (rigid rotor, harmonic oscillator)
//thermochemistry of one molecule.
type IdealGas struct {
	atoms    *htase.Atoms
	vibs     []float64 //eV, the modes that enter the vibrational sums
	geometry Geometry
	moments  []float64 //amu*Angstrom^2
	spin     int       //multiplicity 2S+1
	symmetry int       //rotational symmetry number
	elec     float64   //electronic energy, eV
}

//NewIdealGas builds a thermochemistry object from the full set of
//harmonic mode energies (eV, as produced by the vibrational analysis).
//Imaginary modes are discarded and only the 3N-6 (3N-5 for linear)
//largest real modes are kept, which silently absorbs the numerically
//nonzero translation and rotation frequencies.
func NewIdealGas(atoms *htase.Atoms, elecEnergy float64, modeEnergies []complex128, spinMultiplicity, symmetryNumber int) (*IdealGas, error) {
	if atoms == nil || atoms.Len() == 0 {
		return nil, htase.NewError("thermo: empty structure")
	}
	if spinMultiplicity < 1 {
		return nil, htase.NewError("thermo: spin multiplicity %d out of range", spinMultiplicity)
	}
	if symmetryNumber < 1 {
		return nil, htase.NewError("thermo: symmetry number %d out of range", symmetryNumber)
	}
	moments := InertiaMoments(atoms)
	geom := classify(moments)
	var reals []float64
	for _, e := range modeEnergies {
		if imag(e) == 0 && real(e) > 0 {
			reals = append(reals, real(e))
		}
	}
	sort.Float64s(reals)
	var nvib int
	switch geom {
	case Monatomic:
		nvib = 0
	case Linear:
		nvib = 3*atoms.Len() - 5
	case Nonlinear:
		nvib = 3*atoms.Len() - 6
	}
	if nvib > len(reals) {
		nvib = len(reals)
	}
	return &IdealGas{
		atoms:    atoms,
		vibs:     reals[len(reals)-nvib:],
		geometry: geom,
		moments:  moments,
		spin:     spinMultiplicity,
		symmetry: symmetryNumber,
		elec:     elecEnergy,
	}, nil
}

//Geometry returns the detected molecular geometry class.
func (t *IdealGas) Geometry() Geometry { return t.geometry }

//ZPE returns the zero-point energy in eV.
func (t *IdealGas) ZPE() float64 {
	var z float64
	for _, e := range t.vibs {
		z += 0.5 * e
	}
	return z
}

//Enthalpy returns H(T) in eV, including the electronic energy.
func (t *IdealGas) Enthalpy(temperatureK float64) float64 {
	kt := htase.KB * temperatureK
	h := t.elec + t.ZPE()
	h += 1.5 * kt //translation
	switch t.geometry {
	case Linear:
		h += kt
	case Nonlinear:
		h += 1.5 * kt
	}
	for _, e := range t.vibs {
		h += e / (math.Exp(e/kt) - 1)
	}
	h += kt //pV
	return h
}

//Entropy returns S(T, p) in eV/K at the given pressure in Pa.
func (t *IdealGas) Entropy(temperatureK, pressurePa float64) float64 {
	tK := temperatureK
	mass := t.atoms.TotalMass() * htase.AmuKg

	//translational, at the reference pressure
	q := math.Pow(2*math.Pi*mass*kbJ*tK/(hJ*hJ), 1.5) * kbJ * tK / refPa
	s := kbJ * (math.Log(q) + 2.5)

	//rotational
	switch t.geometry {
	case Linear:
		iKg := t.moments[2] * htase.AmuKg * 1e-20
		s += kbJ * (math.Log(8*math.Pi*math.Pi*iKg*kbJ*tK/(float64(t.symmetry)*hJ*hJ)) + 1)
	case Nonlinear:
		prod := 1.0
		for _, m := range t.moments {
			prod *= m * htase.AmuKg * 1e-20
		}
		qr := math.Sqrt(math.Pi*prod) / float64(t.symmetry) *
			math.Pow(8*math.Pi*math.Pi*kbJ*tK/(hJ*hJ), 1.5)
		s += kbJ * (math.Log(qr) + 1.5)
	}

	//electronic
	s += kbJ * math.Log(float64(t.spin))

	//pressure correction
	s -= kbJ * math.Log(pressurePa/refPa)

	s /= evJ //J/K -> eV/K

	//vibrational, directly in eV
	kt := htase.KB * tK
	for _, e := range t.vibs {
		x := e / kt
		s += htase.KB * (x/(math.Exp(x)-1) - math.Log(1-math.Exp(-x)))
	}
	return s
}

//Gibbs returns G(T, p) = H - T*S in eV.
func (t *IdealGas) Gibbs(temperatureK, pressurePa float64) float64 {
	return t.Enthalpy(temperatureK) - temperatureK*t.Entropy(temperatureK, pressurePa)
}
