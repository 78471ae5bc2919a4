/*
 * orca.go, part of htase.
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

//Package orca wraps the ORCA quantum chemistry program. Input files
//are rendered from a template; single points ask for an analytic
//gradient, and the relaxation job hands the whole geometry search to
//ORCA's internal optimizer instead of driving it step by step.
package orca

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/files"
	"github.com/arosen93/htase/settings"
	"github.com/arosen93/htase/wflow"
	"gonum.org/v1/gonum/mat"
)

const (
	inpName    = "orca.inp"
	outName    = "orca.out"
	engradName = "orca.engrad"
	//ORCA writes the optimized geometry next to the input, named
	//after it
	optXYZName = "orca.xyz"

	doneStr      = "ORCA TERMINATED NORMALLY"
	convergedStr = "THE OPTIMIZATION HAS CONVERGED"
)

var inputTmpl = template.Must(template.New("orca").Parse(
	`! {{.XC}} {{.Basis}}{{range .Keywords}} {{.}}{{end}}
{{- if gt .NProcs 1}}
%pal nprocs {{.NProcs}} end
{{- end}}
{{- range .Blocks}}
{{.}}
{{- end}}
* xyz {{.Charge}} {{.Mult}}
{{- range .Lines}}
{{.}}
{{- end}}
*
`))

type inputData struct {
	XC       string
	Basis    string
	Keywords []string
	NProcs   int
	Blocks   []string
	Charge   int
	Mult     int
	Lines    []string
}

//Calc runs ORCA for energies and forces.
type Calc struct {
	Cmd    string
	XC     string //exchange-correlation functional keyword
	Basis  string
	Charge int
	Mult   int      //spin multiplicity
	NProcs int      //parallel processes; <2 omits the pal block
	Blocks []string //extra %-blocks, passed through verbatim

	//extra simple-input keywords appended after the functional and
	//basis, e.g. "TightSCF"
	Keywords []string

	workDir  string
	launcher wflow.Launcher
}

//New returns an ORCA calculator with a mid-range DFT setup.
func New() *Calc {
	return &Calc{
		Cmd:      settings.Current().OrcaCmd,
		XC:       "wB97X-D3",
		Basis:    "def2-TZVP",
		Mult:     1,
		launcher: wflow.NewLocal(),
	}
}

func (c *Calc) SetWorkDir(dir string) { c.workDir = dir }

//SetLauncher replaces the command launcher, e.g. with a batch engine.
func (c *Calc) SetLauncher(l wflow.Launcher) {
	if l != nil {
		c.launcher = l
	}
}

func (c *Calc) dir() string {
	if c.workDir == "" {
		return "."
	}
	return c.workDir
}

//WriteInput renders the input file for the given structure with the
//extra simple-input keywords appended, and returns its path.
func (c *Calc) WriteInput(atoms *htase.Atoms, keywords ...string) (string, error) {
	lines := make([]string, atoms.Len())
	for i := 0; i < atoms.Len(); i++ {
		x, y, z := atoms.Position(i)
		lines[i] = fmt.Sprintf("%-3s %20.14f %20.14f %20.14f", atoms.Atom(i).Symbol, x, y, z)
	}
	path := filepath.Join(c.dir(), inpName)
	f, err := os.Create(path)
	if err != nil {
		return "", htase.NewError("orca: %v", err)
	}
	data := inputData{
		XC:       c.XC,
		Basis:    c.Basis,
		Keywords: append(append([]string{}, c.Keywords...), keywords...),
		NProcs:   c.NProcs,
		Blocks:   c.Blocks,
		Charge:   c.Charge,
		Mult:     c.Mult,
		Lines:    lines,
	}
	err = inputTmpl.Execute(f, data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", htase.NewError("orca: rendering input: %v", err)
	}
	return path, nil
}

//run renders the input, launches ORCA and verifies normal termination.
func (c *Calc) run(atoms *htase.Atoms, keywords ...string) error {
	if atoms == nil || atoms.Len() == 0 {
		return htase.NewError("orca: empty structure")
	}
	if c.Mult < 1 {
		return htase.NewError("orca: spin multiplicity must be positive, got %d", c.Mult)
	}
	if _, err := c.WriteInput(atoms, keywords...); err != nil {
		return err
	}
	command := fmt.Sprintf("%s %s > %s 2>&1", c.Cmd, inpName, outName)
	if err := c.launcher.Launch(context.Background(), c.dir(), command); err != nil {
		return htase.NewError("orca: %v", err)
	}
	ok, err := files.CheckLogfile(filepath.Join(c.dir(), outName), doneStr)
	if err != nil {
		return htase.NewError("orca: reading output: %v", err)
	}
	if !ok {
		return htase.NewError("orca: abnormal termination, see %s", filepath.Join(c.dir(), outName))
	}
	return nil
}

func (c *Calc) Calculate(atoms *htase.Atoms, properties []string) (*htase.Results, error) {
	if err := c.run(atoms, "EnGrad"); err != nil {
		return nil, err
	}
	energy, forces, err := parseEngrad(filepath.Join(c.dir(), engradName))
	if err != nil {
		return nil, err
	}
	if n, _ := forces.Dims(); n != atoms.Len() {
		return nil, htase.NewError("orca: engrad has %d atoms, structure has %d", n, atoms.Len())
	}
	return &htase.Results{Energy: energy, Forces: forces}, nil
}

func (c *Calc) Parameters() map[string]interface{} {
	p := map[string]interface{}{
		"program": "orca",
		"xc":      c.XC,
		"basis":   c.Basis,
		"charge":  c.Charge,
		"mult":    c.Mult,
	}
	if c.NProcs > 1 {
		p["nprocs"] = c.NProcs
	}
	if len(c.Keywords) > 0 {
		p["keywords"] = append([]string{}, c.Keywords...)
	}
	return p
}

//parseEngrad reads the .engrad file: atom count, energy in Hartree and
//the gradient in Hartree/Bohr, in that order, with # comment lines in
//between. Returns the energy in eV and the forces in eV/Angstrom.
func parseEngrad(path string) (float64, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, htase.NewError("orca: %v", err)
	}
	defer f.Close()
	var values []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := strconv.ParseFloat(strings.Fields(line)[0], 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return 0, nil, htase.NewError("orca: %v", err)
	}
	if len(values) < 2 {
		return 0, nil, htase.NewError("orca: engrad file %s is truncated", path)
	}
	natoms := int(values[0])
	energy := values[1] * htase.H2eV
	grad := values[2:]
	if len(grad) < 3*natoms {
		return 0, nil, htase.NewError("orca: engrad file %s has %d gradient entries, want %d",
			path, len(grad), 3*natoms)
	}
	forces := mat.NewDense(natoms, 3, nil)
	conv := htase.H2eV / htase.Bohr2A
	for i := 0; i < natoms; i++ {
		for k := 0; k < 3; k++ {
			forces.Set(i, k, -grad[3*i+k]*conv)
		}
	}
	return energy, forces, nil
}

//parseFinalEnergy pulls the last FINAL SINGLE POINT ENERGY from the
//output file.
func parseFinalEnergy(path string) (float64, error) {
	f, err := os.Open(files.Zpath(path))
	if err != nil {
		return 0, htase.NewError("orca: %v", err)
	}
	defer f.Close()
	var energy float64
	found := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "FINAL SINGLE POINT ENERGY") {
			continue
		}
		fields := strings.Fields(line)
		if v, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil {
			energy = v
			found = true
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, htase.NewError("orca: %v", err)
	}
	if !found {
		return 0, htase.NewError("orca: no FINAL SINGLE POINT ENERGY in %s", path)
	}
	return energy * htase.H2eV, nil
}
