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

package xtb

import (
	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dicts"
	"github.com/arosen93/htase/runner"
	"github.com/arosen93/htase/schemas"
	"github.com/arosen93/htase/settings"
	"github.com/arosen93/htase/thermo"
)

func calcDefaults() dicts.Map {
	return dicts.Map{
		"gfn":    2,
		"charge": 0,
		"uhf":    0,
	}
}

func relaxDefaults() dicts.Map {
	return dicts.Merge(calcDefaults(), dicts.Map{
		"fmax":      0.01,
		"max_steps": 500,
	})
}

func freqDefaults() dicts.Map {
	return dicts.Merge(calcDefaults(), dicts.Map{
		"delta":             0.01,
		"temperature":       298.15,
		"pressure":          1.0e5,
		"spin_multiplicity": 1,
		"symmetry_number":   1,
	})
}

//fromParams builds the calculator from a merged parameter map.
func fromParams(params dicts.Map) *Calc {
	c := New()
	if g := dicts.Int(params, "gfn"); g > 0 {
		c.GFN = g
	}
	c.Charge = dicts.Int(params, "charge")
	c.UHF = dicts.Int(params, "uhf")
	if cmd := dicts.String(params, "cmd"); cmd != "" {
		c.Cmd = cmd
	}
	c.Accuracy = dicts.Float(params, "accuracy")
	return c
}

//StaticJob performs a single-point calculation. Recognized overrides:
//gfn, charge, uhf, accuracy, cmd.
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
	return schemas.SummarizeRun("xtb-static", out.Dir, atoms, out.Atoms, out.Results, calc), nil
}

//RelaxJob relaxes the structure with the internal optimizer driving
//xtb forces. Recognized overrides: the StaticJob set plus fmax,
//max_steps and copy_intermediate.
func RelaxJob(atoms *htase.Atoms, overrides dicts.Map) (*schemas.OptSchema, error) {
	params, err := settings.ResolveParams(relaxDefaults(), overrides)
	if err != nil {
		return nil, err
	}
	calc := fromParams(params)
	out, err := runner.New(calc).RunOpt(atoms, runner.OptOptions{
		Fmax:             dicts.Float(params, "fmax"),
		MaxSteps:         dicts.Int(params, "max_steps"),
		CopyIntermediate: dicts.Bool(params, "copy_intermediate"),
	})
	if err != nil {
		return nil, err
	}
	return schemas.SummarizeOpt("xtb-relax", out.Dir, atoms, out.RelaxResult, calc), nil
}

//FreqJob computes the harmonic modes by finite differences of xtb
//forces, plus the ideal-gas thermochemistry. Recognized overrides: the
//StaticJob set plus delta, temperature, pressure, spin_multiplicity
//and symmetry_number.
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
	vibDoc := schemas.SummarizeVib("xtb-freq", out.Dir, out.Atoms, out.Result, calc)
	ig, err := thermo.NewIdealGas(out.Atoms, single.Results.Energy, out.Energies,
		dicts.Int(params, "spin_multiplicity"), dicts.Int(params, "symmetry_number"))
	if err != nil {
		return vibDoc, nil, err
	}
	thermoDoc := schemas.SummarizeThermo("xtb-freq", ig,
		dicts.Float(params, "temperature"), dicts.Float(params, "pressure"))
	return vibDoc, thermoDoc, nil
}
