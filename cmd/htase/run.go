/*
 * run.go, part of htase.
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

package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dicts"
	"github.com/arosen93/htase/recipes/emt"
	"github.com/arosen93/htase/recipes/orca"
	"github.com/arosen93/htase/recipes/xtb"
	"github.com/arosen93/htase/schemas"
	"github.com/arosen93/htase/settings"
	"github.com/spf13/cobra"
)

type jobFunc func(*htase.Atoms, dicts.Map) (interface{}, error)

func wrap[T any](f func(*htase.Atoms, dicts.Map) (T, error)) jobFunc {
	return func(atoms *htase.Atoms, params dicts.Map) (interface{}, error) {
		return f(atoms, params)
	}
}

//freqWrap folds a frequency job's two documents into one.
func freqWrap(f func(*htase.Atoms, dicts.Map) (*schemas.VibSchema, *schemas.ThermoSchema, error)) jobFunc {
	return func(atoms *htase.Atoms, params dicts.Map) (interface{}, error) {
		vibDoc, thermoDoc, err := f(atoms, params)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"vib": vibDoc, "thermo": thermoDoc}, nil
	}
}

var jobs = map[string]jobFunc{
	"emt.static":  wrap(emt.StaticJob),
	"emt.relax":   wrap(emt.RelaxJob),
	"emt.md":      wrap(emt.MDJob),
	"emt.freq":    freqWrap(emt.FreqJob),
	"xtb.static":  wrap(xtb.StaticJob),
	"xtb.relax":   wrap(xtb.RelaxJob),
	"xtb.freq":    freqWrap(xtb.FreqJob),
	"orca.static": wrap(orca.StaticJob),
	"orca.relax":  wrap(orca.RelaxJob),
	"orca.freq":   freqWrap(orca.FreqJob),
}

func jobNames() []string {
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

//parseSet turns a key=value flag into a typed parameter. "none"
//removes the key from the merged defaults.
func parseSet(kv string) (string, interface{}, error) {
	key, value, found := strings.Cut(kv, "=")
	if !found || key == "" {
		return "", nil, htase.NewError("expected key=value, got %q", kv)
	}
	switch {
	case value == "none":
		return key, dicts.Remove, nil
	case value == "true" || value == "false":
		return key, value == "true", nil
	}
	if i, err := strconv.Atoi(value); err == nil {
		return key, i, nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return key, f, nil
	}
	return key, value, nil
}

var (
	flagSet    []string
	flagOutput string
	flagPreset string
)

var runCmd = &cobra.Command{
	Use:   "run <job> <structure.xyz>",
	Short: "run a ready-made job on an XYZ structure",
	Long: "Runs one of the ready-made jobs on the last frame of an XYZ\n" +
		"file and prints the result document as JSON. Known jobs:\n  " +
		strings.Join(jobNames(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, ok := jobs[args[0]]
		if !ok {
			return htase.NewError("unknown job %q; known jobs: %s",
				args[0], strings.Join(jobNames(), ", "))
		}
		atoms, err := htase.XYZReadFile(args[1])
		if err != nil {
			return err
		}
		params := dicts.Map{}
		if flagPreset != "" {
			params["preset"] = flagPreset
		}
		for _, kv := range flagSet {
			key, value, err := parseSet(kv)
			if err != nil {
				return err
			}
			params[key] = value
		}
		doc, err := job(atoms, params)
		if err != nil {
			return err
		}
		if flagOutput != "" {
			return schemas.WriteJSON(flagOutput, doc)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets <dir>",
	Short: "list the calculator presets in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := settings.ListPresets(args[0])
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&flagSet, "set", nil,
		"override a job parameter as key=value; value \"none\" removes the default")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the document to a file")
	runCmd.Flags().StringVar(&flagPreset, "preset", "", "YAML calculator preset file")
	rootCmd.AddCommand(runCmd, presetsCmd)
}
