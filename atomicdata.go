/*
 * atomicdata.go, part of htase.
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

//A map for assigning atomic numbers to element symbols. Only the
//elements the bundled potentials and recipes actually deal with are
//present; external programs bring their own tables.
var symbolNumber = map[string]int{
	"H":  1,
	"He": 2,
	"Li": 3,
	"Be": 4,
	"B":  5,
	"C":  6,
	"N":  7,
	"O":  8,
	"F":  9,
	"Ne": 10,
	"Na": 11,
	"Mg": 12,
	"Al": 13,
	"Si": 14,
	"P":  15,
	"S":  16,
	"Cl": 17,
	"Ar": 18,
	"K":  19,
	"Ca": 20,
	"Cr": 24,
	"Mn": 25,
	"Fe": 26,
	"Co": 27,
	"Ni": 28,
	"Cu": 29,
	"Zn": 30,
	"Se": 34,
	"Br": 35,
	"Kr": 36,
	"Pd": 46,
	"Ag": 47,
	"I":  53,
	"Xe": 54,
	"Pt": 78,
	"Au": 79,
}

//A map for assigning mass (in amu) to elements.
var symbolMass = map[string]float64{
	"H":  1.008,
	"He": 4.0026,
	"Li": 6.94,
	"Be": 9.012,
	"B":  10.81,
	"C":  12.011,
	"N":  14.007,
	"O":  15.999,
	"F":  18.998,
	"Ne": 20.180,
	"Na": 22.990,
	"Mg": 24.305,
	"Al": 26.982,
	"Si": 28.085,
	"P":  30.974,
	"S":  32.06,
	"Cl": 35.45,
	"Ar": 39.948,
	"K":  39.098,
	"Ca": 40.078,
	"Cr": 51.996,
	"Mn": 54.938,
	"Fe": 55.845,
	"Co": 58.933,
	"Ni": 58.693,
	"Cu": 63.546,
	"Zn": 65.38,
	"Se": 78.971,
	"Br": 79.904,
	"Kr": 83.798,
	"Pd": 106.42,
	"Ag": 107.87,
	"I":  126.90,
	"Xe": 131.29,
	"Pt": 195.08,
	"Au": 196.97,
}

//SymbolNumber returns the atomic number for an element symbol, or 0 if
//the symbol is not in the internal table.
func SymbolNumber(symbol string) int {
	return symbolNumber[symbol]
}

//SymbolMass returns the standard atomic mass (amu) for an element
//symbol, or 0 if the symbol is not in the internal table.
func SymbolMass(symbol string) float64 {
	return symbolMass[symbol]
}
