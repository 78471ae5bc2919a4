/*
 * atoms.go, part of htase.
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
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

/*Note: several functions here panic instead of returning errors. They
 * are "fundamental" functions: if something goes wrong in them the
 * program is way-most likely wrong and should crash. The panics are
 * related to nil objects and out-of-bounds access.*/

//Atom contains the per-atom data except for the coordinates and
//velocities, which live in matrices in the Atoms object.
type Atom struct {
	Symbol string
	Number int
	Mass   float64
	Charge float64 //partial charge
	Magmom float64 //initial magnetic moment
	Tag    int     //free for the caller, travels with the atom
}

//NewAtom returns an Atom for the given element symbol with the number
//and mass filled in from the internal tables. Unknown symbols are an
//error: silently accepting them produces zero masses that only blow up
//much later, inside dynamics.
func NewAtom(symbol string) (*Atom, error) {
	n := SymbolNumber(symbol)
	if n == 0 {
		return nil, CError{msg: fmt.Sprintf("htase: unknown element symbol %q", symbol)}
	}
	return &Atom{Symbol: symbol, Number: n, Mass: SymbolMass(symbol)}, nil
}

//Copy returns a copy of the Atom object.
func (A *Atom) Copy() *Atom {
	if A == nil {
		panic(ErrNilAtoms)
	}
	newat := *A
	return &newat
}

//Atoms is an ordered collection of atoms plus their Cartesian
//coordinates (an Nx3 matrix, in Angstrom), an optional periodic cell
//and free-form metadata. Coordinates and velocities are kept in
//matrices rather than in the atoms to ease the linear algebra.
type Atoms struct {
	atoms      []*Atom
	coords     *mat.Dense //Nx3
	velocities *mat.Dense //Nx3, nil until set
	cell       *mat.Dense //3x3 row vectors, nil for isolated molecules
	pbc        [3]bool
	Info       map[string]interface{} //metadata that travels with the structure
}

//NewAtoms makes a structure from a slice of atoms and an Nx3
//coordinate matrix. It returns an error if either is nil or the
//dimensions don't match.
func NewAtoms(ats []*Atom, coords *mat.Dense) (*Atoms, error) {
	if ats == nil {
		return nil, CError{msg: "htase: supplied a nil atom slice"}
	}
	if coords == nil {
		return nil, CError{msg: "htase: supplied a nil coordinate matrix"}
	}
	r, c := coords.Dims()
	if c != 3 || r != len(ats) {
		return nil, CError{msg: fmt.Sprintf("htase: coordinate matrix is %dx%d for %d atoms", r, c, len(ats))}
	}
	return &Atoms{atoms: ats, coords: coords, Info: map[string]interface{}{}}, nil
}

//FromSymbols builds a structure from element symbols and an Nx3
//coordinate matrix, filling masses and atomic numbers from the
//internal tables.
func FromSymbols(symbols []string, coords *mat.Dense) (*Atoms, error) {
	ats := make([]*Atom, len(symbols))
	for i, s := range symbols {
		at, err := NewAtom(s)
		if err != nil {
			return nil, errDecorate(err, "FromSymbols")
		}
		ats[i] = at
	}
	return NewAtoms(ats, coords)
}

//Diatomic is a convenience builder for a two-atom molecule with the
//bond along the z axis and the first atom at the origin.
func Diatomic(sym1, sym2 string, r float64) (*Atoms, error) {
	coords := mat.NewDense(2, 3, []float64{
		0, 0, 0,
		0, 0, r,
	})
	return FromSymbols([]string{sym1, sym2}, coords)
}

//Len returns the number of atoms.
func (M *Atoms) Len() int {
	return len(M.atoms)
}

//Atom returns the Atom corresponding to the index i. Panics if out of
//range.
func (M *Atoms) Atom(i int) *Atom {
	if i < 0 || i >= M.Len() {
		panic(ErrIndexOutOfRange)
	}
	return M.atoms[i]
}

//Symbols returns the element symbols in atom order.
func (M *Atoms) Symbols() []string {
	ret := make([]string, M.Len())
	for i, a := range M.atoms {
		ret[i] = a.Symbol
	}
	return ret
}

//Numbers returns the atomic numbers in atom order.
func (M *Atoms) Numbers() []int {
	ret := make([]int, M.Len())
	for i, a := range M.atoms {
		ret[i] = a.Number
	}
	return ret
}

//Masses returns the atomic masses (amu) in atom order.
func (M *Atoms) Masses() []float64 {
	ret := make([]float64, M.Len())
	for i, a := range M.atoms {
		ret[i] = a.Mass
	}
	return ret
}

//TotalMass returns the sum of the atomic masses.
func (M *Atoms) TotalMass() float64 {
	var t float64
	for _, a := range M.atoms {
		t += a.Mass
	}
	return t
}

//Magmoms returns the per-atom initial magnetic moments in atom order.
func (M *Atoms) Magmoms() []float64 {
	ret := make([]float64, M.Len())
	for i, a := range M.atoms {
		ret[i] = a.Magmom
	}
	return ret
}

//Positions returns the live Nx3 coordinate matrix. Mutating it mutates
//the structure; use Copy first when that is not wanted.
func (M *Atoms) Positions() *mat.Dense {
	return M.coords
}

//Position returns the Cartesian coordinates of atom i. Panics if out
//of range.
func (M *Atoms) Position(i int) (x, y, z float64) {
	if i < 0 || i >= M.Len() {
		panic(ErrIndexOutOfRange)
	}
	return M.coords.At(i, 0), M.coords.At(i, 1), M.coords.At(i, 2)
}

//SetPositions replaces the coordinate matrix. The dimensions must
//match the number of atoms.
func (M *Atoms) SetPositions(coords *mat.Dense) error {
	r, c := coords.Dims()
	if c != 3 || r != M.Len() {
		return CError{msg: fmt.Sprintf("htase: SetPositions: matrix is %dx%d for %d atoms", r, c, M.Len())}
	}
	M.coords = coords
	return nil
}

//Velocities returns the Nx3 velocity matrix (Angstrom per ASE time
//unit), or nil if no velocities have been set.
func (M *Atoms) Velocities() *mat.Dense {
	return M.velocities
}

//SetVelocities replaces the velocity matrix. Pass nil to clear.
func (M *Atoms) SetVelocities(v *mat.Dense) error {
	if v == nil {
		M.velocities = nil
		return nil
	}
	r, c := v.Dims()
	if c != 3 || r != M.Len() {
		return CError{msg: fmt.Sprintf("htase: SetVelocities: matrix is %dx%d for %d atoms", r, c, M.Len())}
	}
	M.velocities = v
	return nil
}

//Cell returns the 3x3 cell matrix (rows are the lattice vectors), or
//nil for an isolated molecule.
func (M *Atoms) Cell() *mat.Dense {
	return M.cell
}

//PBC returns the per-axis periodic boundary flags.
func (M *Atoms) PBC() [3]bool {
	return M.pbc
}

//AnyPBC reports whether any axis is periodic.
func (M *Atoms) AnyPBC() bool {
	return M.pbc[0] || M.pbc[1] || M.pbc[2]
}

//SetCell sets the periodic cell and boundary flags. Pass a nil cell to
//make the structure an isolated molecule (all flags are then cleared).
func (M *Atoms) SetCell(cell *mat.Dense, pbc [3]bool) error {
	if cell == nil {
		M.cell = nil
		M.pbc = [3]bool{}
		return nil
	}
	r, c := cell.Dims()
	if r != 3 || c != 3 {
		return CError{msg: string(ErrNot3x3)}
	}
	M.cell = cell
	M.pbc = pbc
	return nil
}

//Volume returns the cell volume. It is an error to call it on a
//structure without a cell.
func (M *Atoms) Volume() (float64, error) {
	if M.cell == nil {
		return 0, CError{msg: "htase: Volume: structure has no cell"}
	}
	v := math.Abs(mat.Det(M.cell))
	return v, nil
}

//Distance returns the distance between atoms i and j, ignoring
//periodicity.
func (M *Atoms) Distance(i, j int) float64 {
	xi, yi, zi := M.Position(i)
	xj, yj, zj := M.Position(j)
	dx, dy, dz := xj-xi, yj-yi, zj-zi
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

//CenterOfMass returns the center of mass as a length-3 slice.
func (M *Atoms) CenterOfMass() []float64 {
	com := make([]float64, 3)
	var total float64
	for i, a := range M.atoms {
		total += a.Mass
		for k := 0; k < 3; k++ {
			com[k] += a.Mass * M.coords.At(i, k)
		}
	}
	if total == 0 {
		panic(PanicMsg("htase: CenterOfMass: all masses are zero"))
	}
	for k := 0; k < 3; k++ {
		com[k] /= total
	}
	return com
}

//KineticEnergy returns the kinetic energy in eV, or 0 if no velocities
//are set.
func (M *Atoms) KineticEnergy() float64 {
	if M.velocities == nil {
		return 0
	}
	var ke float64
	for i, a := range M.atoms {
		for k := 0; k < 3; k++ {
			v := M.velocities.At(i, k)
			ke += 0.5 * a.Mass * v * v
		}
	}
	return ke
}

//Temperature returns the instantaneous kinetic temperature in K,
//assuming 3N degrees of freedom.
func (M *Atoms) Temperature() float64 {
	n := M.Len()
	if n == 0 {
		return 0
	}
	return 2 * M.KineticEnergy() / (3 * float64(n) * KB)
}

//SameSpecies reports whether other has the same sequence of atomic
//numbers as M. Order matters: a reordering of the same composition is
//NOT the same species sequence.
func (M *Atoms) SameSpecies(other *Atoms) bool {
	if other == nil || M.Len() != other.Len() {
		return false
	}
	for i := range M.atoms {
		if M.atoms[i].Number != other.atoms[i].Number {
			return false
		}
	}
	return true
}

//Copy returns a deep copy of the structure: atoms, coordinates,
//velocities, cell and the Info map are all duplicated so that no
//mutation of the copy can reach the original.
func (M *Atoms) Copy() *Atoms {
	if M == nil {
		panic(ErrNilAtoms)
	}
	n := new(Atoms)
	n.atoms = make([]*Atom, len(M.atoms))
	for i, a := range M.atoms {
		n.atoms[i] = a.Copy()
	}
	n.coords = mat.DenseCopyOf(M.coords)
	if M.velocities != nil {
		n.velocities = mat.DenseCopyOf(M.velocities)
	}
	if M.cell != nil {
		n.cell = mat.DenseCopyOf(M.cell)
	}
	n.pbc = M.pbc
	n.Info = deepCopyInfo(M.Info)
	return n
}

//deepCopyInfo copies a metadata map, recursing through nested maps and
//slices. Values of other types are copied by assignment; handles that
//cannot be meaningfully duplicated are therefore shared, which mirrors
//the shallow-copy fallback of the configuration merge in package dicts.
func deepCopyInfo(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyInfo(t)
	case []interface{}:
		c := make([]interface{}, len(t))
		for i, e := range t {
			c[i] = deepCopyValue(e)
		}
		return c
	case []float64:
		c := make([]float64, len(t))
		copy(c, t)
		return c
	default:
		return v
	}
}
