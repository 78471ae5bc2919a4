/*
 * emt.go, part of htase.
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

//Package emt holds the ready-made jobs for the effective-medium
//potential: cheap metal calculations that exercise the whole pipeline
//without an external code. Every job takes override parameters that
//are merged over the defaults; an override set to dicts.Remove deletes
//the default instead of replacing it.
package emt

import (
	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dicts"
	"github.com/arosen93/htase/potential"
	"github.com/arosen93/htase/runner"
	"github.com/arosen93/htase/schemas"
	"github.com/arosen93/htase/settings"
	"github.com/arosen93/htase/thermo"
)

func staticDefaults() dicts.Map {
	return dicts.Map{}
}

func relaxDefaults() dicts.Map {
	return dicts.Map{
		"fmax":       0.01,
		"max_steps":  500,
		"relax_cell": false,
	}
}

func freqDefaults() dicts.Map {
	return dicts.Map{
		"delta":             0.01,
		"temperature":       298.15,
		"pressure":          1.0e5,
		"spin_multiplicity": 1,
		"symmetry_number":   1,
	}
}

//StaticJob performs a single-point calculation.
func StaticJob(atoms *htase.Atoms, overrides dicts.Map) (*schemas.RunSchema, error) {
	//no knobs yet, but the preset contract holds
	if _, err := settings.ResolveParams(staticDefaults(), overrides); err != nil {
		return nil, err
	}
	calc := potential.NewEMT()
	out, err := runner.New(calc).RunCalc(atoms, runner.CalcOptions{})
	if err != nil {
		return nil, err
	}
	return schemas.SummarizeRun("emt-static", out.Dir, atoms, out.Atoms, out.Results, calc), nil
}

//RelaxJob relaxes the structure. Recognized overrides: fmax,
//max_steps, relax_cell, copy_intermediate.
func RelaxJob(atoms *htase.Atoms, overrides dicts.Map) (*schemas.OptSchema, error) {
	params, err := settings.ResolveParams(relaxDefaults(), overrides)
	if err != nil {
		return nil, err
	}
	calc := potential.NewEMT()
	out, err := runner.New(calc).RunOpt(atoms, runner.OptOptions{
		Fmax:             dicts.Float(params, "fmax"),
		MaxSteps:         dicts.Int(params, "max_steps"),
		RelaxCell:        dicts.Bool(params, "relax_cell"),
		CopyIntermediate: dicts.Bool(params, "copy_intermediate"),
	})
	if err != nil {
		return nil, err
	}
	return schemas.SummarizeOpt("emt-relax", out.Dir, atoms, out.RelaxResult, calc), nil
}

func mdDefaults() dicts.Map {
	return dicts.Map{
		"timestep":    1.0,
		"steps":       500,
		"temperature": 300.0,
		"thermostat":  false,
		"friction":    0.01,
	}
}

//MDJob runs molecular dynamics, microcanonical by default. Recognized
//overrides: timestep (fs), steps, temperature (K), thermostat,
//friction (1/fs).
func MDJob(atoms *htase.Atoms, overrides dicts.Map) (*schemas.DynSchema, error) {
	params, err := settings.ResolveParams(mdDefaults(), overrides)
	if err != nil {
		return nil, err
	}
	calc := potential.NewEMT()
	out, err := runner.New(calc).RunMD(atoms, runner.MDOptions{
		TimestepFs:   dicts.Float(params, "timestep"),
		Steps:        dicts.Int(params, "steps"),
		TemperatureK: dicts.Float(params, "temperature"),
		Thermostat:   dicts.Bool(params, "thermostat"),
		FrictionFs:   dicts.Float(params, "friction"),
	})
	if err != nil {
		return nil, err
	}
	return schemas.SummarizeMD("emt-md", out.Dir, atoms, out.MDResult,
		dicts.Float(params, "timestep"), calc), nil
}

//FreqJob computes the harmonic modes and the ideal-gas
//thermochemistry at the given temperature and pressure. Recognized
//overrides: delta, temperature, pressure, spin_multiplicity,
//symmetry_number.
func FreqJob(atoms *htase.Atoms, overrides dicts.Map) (*schemas.VibSchema, *schemas.ThermoSchema, error) {
	params, err := settings.ResolveParams(freqDefaults(), overrides)
	if err != nil {
		return nil, nil, err
	}
	calc := potential.NewEMT()
	r := runner.New(calc)
	single, err := r.RunCalc(atoms, runner.CalcOptions{})
	if err != nil {
		return nil, nil, err
	}
	out, err := r.RunVib(atoms, runner.VibOptions{Delta: dicts.Float(params, "delta")})
	if err != nil {
		return nil, nil, err
	}
	vibDoc := schemas.SummarizeVib("emt-freq", out.Dir, out.Atoms, out.Result, calc)
	ig, err := thermo.NewIdealGas(out.Atoms, single.Results.Energy, out.Energies,
		dicts.Int(params, "spin_multiplicity"), dicts.Int(params, "symmetry_number"))
	if err != nil {
		return vibDoc, nil, err
	}
	thermoDoc := schemas.SummarizeThermo("emt-freq", ig,
		dicts.Float(params, "temperature"), dicts.Float(params, "pressure"))
	return vibDoc, thermoDoc, nil
}
