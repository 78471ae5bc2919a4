/*
 * units.go, part of htase.
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

//The library works in eV, Angstrom, amu and femtoseconds. These
//constants convert to and from that system. Values follow CODATA 2018.
const (
	//Boltzmann constant in eV/K
	KB = 8.617333262e-5

	//Planck constant in eV*fs
	Planck = 4.135667696

	//hbar in eV*fs
	Hbar = 0.6582119569

	//Hartree to eV
	H2eV = 27.211386245988

	//Hartree to kcal/mol
	H2Kcal = 627.509

	//Bohr to Angstrom
	Bohr2A = 0.529177210903

	//eV to kJ/mol
	EV2KJMol = 96.48533212

	//One atomic mass unit in kg
	AmuKg = 1.66053906660e-27

	//Speed of light in cm/fs, for frequency conversions
	LightCmFs = 2.99792458e-5

	//The MD time unit that makes kinetic energy come out in eV when
	//masses are in amu, distances in Angstrom and time in "ASE time
	//units". One fs is 1/FsPerTimeUnit of these.
	FsPerTimeUnit = 10.180505710774743
)

//VibFreqFactor converts sqrt(k/m), with k in eV/A^2 and m in amu, to a
//wavenumber in 1/cm. Derived from hbar and the amu/eV/Angstrom system;
//a harmonic H2 stretch (k ~ 36 eV/A^2, mu ~ 0.504 amu) lands near the
//observed 4400 1/cm.
const VibFreqFactor = 521.4708336735473
