/*
 * main_test.go, part of htase.
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
	"bytes"
	"path/filepath"
	"testing"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dicts"
	"github.com/arosen93/htase/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeCu2XYZ(t *testing.T) string {
	t.Helper()
	dimer, err := htase.Diatomic("Cu", "Cu", 2.45)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "cu2.xyz")
	require.NoError(t, htase.XYZWriteFile(path, dimer))
	return path
}

func TestParseSet(t *testing.T) {
	key, v, err := parseSet("fmax=0.05")
	require.NoError(t, err)
	assert.Equal(t, "fmax", key)
	assert.Equal(t, 0.05, v)

	_, v, err = parseSet("max_steps=20")
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	_, v, err = parseSet("relax_cell=true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, v, err = parseSet("basis=def2-SVP")
	require.NoError(t, err)
	assert.Equal(t, "def2-SVP", v)

	_, v, err = parseSet("fmax=none")
	require.NoError(t, err)
	assert.Equal(t, dicts.Remove, v)

	_, _, err = parseSet("novalue")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "htase")
}

func TestRunUnknownJob(t *testing.T) {
	_, err := execute(t, "run", "emt.teleport", writeCu2XYZ(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job")
}

func TestRunStaticToFile(t *testing.T) {
	results := t.TempDir()
	outFile := filepath.Join(t.TempDir(), "doc.json")
	_, err := execute(t, "run", "emt.static", writeCu2XYZ(t),
		"--results-dir", results, "-o", outFile)
	require.NoError(t, err)

	var doc schemas.RunSchema
	require.NoError(t, schemas.ReadJSON(outFile, &doc))
	assert.Equal(t, "emt-static", doc.Name)
	assert.Equal(t, "Cu2", doc.Atoms.Formula)
	assert.Less(t, doc.Results.Energy, 0.0)
}

func TestRunRelaxWithOverrides(t *testing.T) {
	results := t.TempDir()
	outFile := filepath.Join(t.TempDir(), "doc.json")
	_, err := execute(t, "run", "emt.relax", writeCu2XYZ(t),
		"--results-dir", results, "--set", "max_steps=2", "-o", outFile)
	require.NoError(t, err)

	var doc schemas.OptSchema
	require.NoError(t, schemas.ReadJSON(outFile, &doc))
	assert.Equal(t, 2, doc.Steps)
}
