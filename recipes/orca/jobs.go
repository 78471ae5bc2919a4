/*
 * jobs.go, part of htase.
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

package orca

import (
	"path/filepath"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dicts"
	"github.com/arosen93/htase/dyn"
	"github.com/arosen93/htase/files"
	"github.com/arosen93/htase/runner"
	"github.com/arosen93/htase/schemas"
	"github.com/arosen93/htase/settings"
	"github.com/arosen93/htase/thermo"
	"gonum.org/v1/gonum/mat"
)

func calcDefaults() dicts.Map {
	return dicts.Map{
		"xc":     "wB97X-D3",
		"basis":  "def2-TZVP",
		"charge": 0,
		"mult":   1,
	}
}

func freqDefaults() dicts.Map {
	return dicts.Merge(calcDefaults(), dicts.Map{
		"delta":           0.01,
		"temperature":     298.15,
		"pressure":        1.0e5,
		"symmetry_number": 1,
	})
}

func fromParams(params dicts.Map) *Calc {
	c := New()
	if xc := dicts.String(params, "xc"); xc != "" {
		c.XC = xc
	}
	if basis := dicts.String(params, "basis"); basis != "" {
		c.Basis = basis
	}
	c.Charge = dicts.Int(params, "charge")
	if m := dicts.Int(params, "mult"); m > 0 {
		c.Mult = m
	}
	c.NProcs = dicts.Int(params, "nprocs")
	if cmd := dicts.String(params, "cmd"); cmd != "" {
		c.Cmd = cmd
	}
	c.Keywords = stringsParam(params, "keywords")
	c.Blocks = stringsParam(params, "blocks")
	return c
}

//stringsParam accepts both []string and the []interface{} a generic
//config decoder produces.
func stringsParam(m dicts.Map, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

//StaticJob performs a single-point calculation with an analytic
//gradient. Recognized overrides: xc, basis, charge, mult, nprocs,
//keywords, blocks, cmd.
func StaticJob(atoms *htase.Atoms, overrides dicts.Map) (*schemas.RunSchema, error) {
	params, err := settings.ResolveParams(calcDefaults(), overrides)
	if err != nil {
		return nil, err
	}
	calc := fromParams(params)
	out, err := runner.New(calc).RunCalc(atoms, runner.CalcOptions{})
	if err != nil {
		return nil, err
	}
	return schemas.SummarizeRun("orca-static", out.Dir, atoms, out.Atoms, out.Results, calc), nil
}

//RelaxJob hands the geometry search to ORCA's internal optimizer: one
//program invocation carries the whole relaxation, which is far cheaper
//than shuttling gradients through an external driver when every force
//call is a DFT calculation. Recognized overrides: the StaticJob set.
func RelaxJob(atoms *htase.Atoms, overrides dicts.Map) (*schemas.OptSchema, error) {
	params, err := settings.ResolveParams(calcDefaults(), overrides)
	if err != nil {
		return nil, err
	}
	calc := fromParams(params)
	if atoms == nil {
		return nil, htase.NewError("orca: nil structure")
	}
	sc, err := runner.NewScratch()
	if err != nil {
		return nil, err
	}
	work := atoms.Copy()
	calc.SetWorkDir(sc.TmpDir)
	if err := calc.run(work, "Opt"); err != nil {
		return nil, sc.Fail(err)
	}
	outFile := filepath.Join(sc.TmpDir, outName)
	converged, err := files.CheckLogfile(outFile, convergedStr)
	if err != nil {
		return nil, sc.Fail(err)
	}
	energy, err := parseFinalEnergy(outFile)
	if err != nil {
		return nil, sc.Fail(err)
	}
	final, err := htase.XYZReadFile(filepath.Join(sc.TmpDir, optXYZName))
	if err != nil {
		return nil, sc.Fail(err)
	}
	if !work.SameSpecies(final) {
		return nil, sc.Fail(htase.NewError("orca: optimized geometry changed species"))
	}
	if err := work.SetPositions(mat.DenseCopyOf(final.Positions())); err != nil {
		return nil, sc.Fail(err)
	}
	steps, err := files.CountInLogfile(outFile, "GEOMETRY OPTIMIZATION CYCLE")
	if err != nil {
		return nil, sc.Fail(err)
	}
	if err := sc.Succeed(); err != nil {
		return nil, err
	}
	rr := &dyn.RelaxResult{
		Atoms:     work,
		Results:   &htase.Results{Energy: energy},
		Converged: converged,
		Steps:     steps,
	}
	return schemas.SummarizeOpt("orca-relax", sc.JobDir, atoms, rr, calc), nil
}

//FreqJob computes the harmonic modes by central differences of the
//analytic gradient, plus the ideal-gas thermochemistry. Recognized
//overrides: the StaticJob set plus delta, temperature, pressure and
//symmetry_number.
func FreqJob(atoms *htase.Atoms, overrides dicts.Map) (*schemas.VibSchema, *schemas.ThermoSchema, error) {
	params, err := settings.ResolveParams(freqDefaults(), overrides)
	if err != nil {
		return nil, nil, err
	}
	calc := fromParams(params)
	r := runner.New(calc)
	single, err := r.RunCalc(atoms, runner.CalcOptions{})
	if err != nil {
		return nil, nil, err
	}
	out, err := r.RunVib(atoms, runner.VibOptions{Delta: dicts.Float(params, "delta")})
	if err != nil {
		return nil, nil, err
	}
	vibDoc := schemas.SummarizeVib("orca-freq", out.Dir, out.Atoms, out.Result, calc)
	ig, err := thermo.NewIdealGas(out.Atoms, single.Results.Energy, out.Energies,
		calc.Mult, dicts.Int(params, "symmetry_number"))
	if err != nil {
		return vibDoc, nil, err
	}
	thermoDoc := schemas.SummarizeThermo("orca-freq", ig,
		dicts.Float(params, "temperature"), dicts.Float(params, "pressure"))
	return vibDoc, thermoDoc, nil
}
