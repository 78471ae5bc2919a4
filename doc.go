/*
 * doc.go, part of htase.
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

//Package htase provides the atomic-structure data model, the calculator
//abstraction and the file formats shared by the rest of the library. A
//structure (Atoms) is an ordered set of atoms plus an Nx3 coordinate
//matrix, an optional periodic cell and free-form metadata. A Calculator
//computes energies, forces and derived properties for a structure;
//implementations range from in-process pairwise potentials (package
//potential) to wrappers around external quantum-chemistry programs
//(packages under recipes). The runner package executes calculators
//inside disposable scratch directories, and the wflow package
//dispatches such jobs to a pluggable execution engine.
package htase
