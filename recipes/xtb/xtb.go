/*
 * xtb.go, part of htase.
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

//Package xtb wraps the xtb semiempirical program as a calculator and
//provides the ready-made jobs on top of it. The wrapper shells out
//through a wflow launcher, so the same recipe submits to a batch
//system when the batch engine is selected.
package xtb

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/files"
	"github.com/arosen93/htase/settings"
	"github.com/arosen93/htase/wflow"
	"gonum.org/v1/gonum/mat"
)

//File names xtb reads and writes in the working directory.
const (
	geomName = "geom.xyz"
	outName  = "xtb.out"
	gradName = "gradient"
	chrgName = "charges"
)

//Calc runs xtb for energies, forces and partial charges.
type Calc struct {
	Cmd      string  //xtb binary; empty takes the settings value
	GFN      int     //Hamiltonian version, 1 or 2
	Charge   int
	UHF      int     //number of unpaired electrons
	Accuracy float64 //xtb accuracy multiplier; 0 keeps the program default

	workDir  string
	launcher wflow.Launcher
}

//New returns an xtb calculator with the GFN2 Hamiltonian.
func New() *Calc {
	return &Calc{Cmd: settings.Current().XTBCmd, GFN: 2, launcher: wflow.NewLocal()}
}

//SetWorkDir points the calculator at its working directory. The runner
//calls this with the scratch path.
func (c *Calc) SetWorkDir(dir string) { c.workDir = dir }

//SetLauncher replaces the command launcher, e.g. with a batch engine.
func (c *Calc) SetLauncher(l wflow.Launcher) {
	if l != nil {
		c.launcher = l
	}
}

func (c *Calc) commandLine() string {
	cmd := fmt.Sprintf("%s %s --grad --gfn %d --chrg %d --uhf %d",
		c.Cmd, geomName, c.GFN, c.Charge, c.UHF)
	if c.Accuracy > 0 {
		cmd += fmt.Sprintf(" --acc %g", c.Accuracy)
	}
	return cmd + " > " + outName + " 2>&1"
}

func (c *Calc) Calculate(atoms *htase.Atoms, properties []string) (*htase.Results, error) {
	if atoms == nil || atoms.Len() == 0 {
		return nil, htase.NewError("xtb: empty structure")
	}
	dir := c.workDir
	if dir == "" {
		dir = "."
	}
	if err := htase.XYZWriteFile(filepath.Join(dir, geomName), atoms); err != nil {
		return nil, err
	}
	if err := c.launcher.Launch(context.Background(), dir, c.commandLine()); err != nil {
		return nil, htase.NewError("xtb: %v", err)
	}
	ok, err := files.CheckLogfile(filepath.Join(dir, outName), "normal termination")
	if err != nil {
		return nil, htase.NewError("xtb: reading output: %v", err)
	}
	if !ok {
		return nil, htase.NewError("xtb: abnormal termination, see %s", filepath.Join(dir, outName))
	}
	energy, err := parseEnergy(filepath.Join(dir, outName))
	if err != nil {
		return nil, err
	}
	forces, err := parseGradient(filepath.Join(dir, gradName), atoms.Len())
	if err != nil {
		return nil, err
	}
	res := &htase.Results{Energy: energy, Forces: forces}
	//partial charges are a bonus; their absence is not a failure
	if charges, err := parseCharges(filepath.Join(dir, chrgName), atoms.Len()); err == nil {
		res.Charges = charges
	}
	return res, nil
}

func (c *Calc) Parameters() map[string]interface{} {
	p := map[string]interface{}{
		"program": "xtb",
		"gfn":     c.GFN,
		"charge":  c.Charge,
		"uhf":     c.UHF,
	}
	if c.Accuracy > 0 {
		p["accuracy"] = c.Accuracy
	}
	return p
}

//parseEnergy pulls the total energy (in eV) out of the xtb output.
func parseEnergy(path string) (float64, error) {
	f, err := os.Open(files.Zpath(path))
	if err != nil {
		return 0, htase.NewError("xtb: %v", err)
	}
	defer f.Close()
	var energy float64
	found := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "TOTAL ENERGY") {
			continue
		}
		for _, field := range strings.Fields(line) {
			if v, err := strconv.ParseFloat(field, 64); err == nil {
				energy = v
				found = true
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, htase.NewError("xtb: %v", err)
	}
	if !found {
		return 0, htase.NewError("xtb: no TOTAL ENERGY in %s", path)
	}
	return energy * htase.H2eV, nil
}

//parseGradient reads the Turbomole-style gradient file and returns
//forces in eV/Angstrom. Only the last cycle counts; xtb appends one
//block per invocation when the file is kept.
func parseGradient(path string, natoms int) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, htase.NewError("xtb: %v", err)
	}
	defer f.Close()
	var rows [][3]float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "$") || strings.Contains(line, "cycle") {
			if strings.Contains(line, "cycle") {
				rows = rows[:0] //a new cycle supersedes the previous one
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue //coordinate lines carry the element symbol as a 4th field
		}
		var g [3]float64
		ok := true
		for k, field := range fields {
			//Fortran-style D exponents appear in older outputs
			v, err := strconv.ParseFloat(strings.ReplaceAll(field, "D", "E"), 64)
			if err != nil {
				ok = false
				break
			}
			g[k] = v
		}
		if ok {
			rows = append(rows, g)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, htase.NewError("xtb: %v", err)
	}
	if len(rows) < natoms {
		return nil, htase.NewError("xtb: gradient file %s has %d rows, want %d", path, len(rows), natoms)
	}
	rows = rows[len(rows)-natoms:]
	forces := mat.NewDense(natoms, 3, nil)
	conv := htase.H2eV / htase.Bohr2A
	for i, g := range rows {
		for k := 0; k < 3; k++ {
			forces.Set(i, k, -g[k]*conv)
		}
	}
	return forces, nil
}

//parseCharges reads the per-atom Mulliken charges file.
func parseCharges(path string, natoms int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) != natoms {
		return nil, htase.NewError("xtb: charges file has %d entries, want %d", len(out), natoms)
	}
	return out, nil
}
