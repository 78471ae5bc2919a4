/*
 * xyz_test.go, part of htase.
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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestXYZRoundTripWithCell(t *testing.T) {
	mol, err := FromSymbols([]string{"Na", "Cl"}, mat.NewDense(2, 3, []float64{
		0, 0, 0,
		2.82, 0, 0,
	}))
	require.NoError(t, err)
	cell := mat.NewDense(3, 3, []float64{5.64, 0, 0, 0, 5.64, 0, 0, 0, 5.64})
	require.NoError(t, mol.SetCell(cell, [3]bool{true, true, false}))

	var buf bytes.Buffer
	require.NoError(t, XYZWrite(&buf, mol))

	frames, err := XYZRead(&buf)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	got := frames[0]
	assert.Equal(t, []string{"Na", "Cl"}, got.Symbols())
	assert.InDelta(t, 2.82, got.Distance(0, 1), 1e-8)
	require.NotNil(t, got.Cell())
	assert.InDelta(t, 5.64, got.Cell().At(0, 0), 1e-8)
	assert.Equal(t, [3]bool{true, true, false}, got.PBC())
}

func TestXYZReadPlainMolecule(t *testing.T) {
	in := "3\nwater\nO 0.0 0.0 0.0\nH 0.96 0.0 0.0\nH -0.24 0.93 0.0\n"
	frames, err := XYZRead(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Nil(t, frames[0].Cell())
	assert.False(t, frames[0].AnyPBC())
	assert.InDelta(t, 0.96, frames[0].Distance(0, 1), 1e-8)
}

func TestXYZReadKeepsUnknownCommentKeys(t *testing.T) {
	in := "1\nenergy=-1.5 label=\"final frame\"\nH 0.0 0.0 0.0\n"
	frames, err := XYZRead(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "-1.5", frames[0].Info["energy"])
	assert.Equal(t, "final frame", frames[0].Info["label"])
}

func TestXYZReadFileReturnsLastFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traj.xyz")
	mol, err := Diatomic("H", "H", 0.7)
	require.NoError(t, err)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, XYZWrite(f, mol))
	require.NoError(t, mol.SetPositions(mat.NewDense(2, 3, []float64{0, 0, 0, 0, 0, 0.75})))
	require.NoError(t, XYZWrite(f, mol))
	require.NoError(t, f.Close())

	got, err := XYZReadFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got.Distance(0, 1), 1e-8)
}

func TestXYZReadFileFindsGzVariant(t *testing.T) {
	dir := t.TempDir()
	mol, err := Diatomic("O", "O", 1.21)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, XYZWrite(&buf, mol))

	gzPath := filepath.Join(dir, "final.xyz.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	//asked for the plain name, served from the compressed variant
	got, err := XYZReadFile(filepath.Join(dir, "final.xyz"))
	require.NoError(t, err)
	assert.InDelta(t, 1.21, got.Distance(0, 1), 1e-8)
}

func TestXYZReadErrors(t *testing.T) {
	for name, in := range map[string]string{
		"bad count": "two\ncomment\nH 0 0 0\nH 0 0 1\n",
		"truncated": "2\ncomment\nH 0 0 0\n",
		"short row": "1\ncomment\nH 0 0\n",
		"empty":     "",
	} {
		_, err := XYZRead(strings.NewReader(in))
		assert.Error(t, err, name)
	}
}

func TestXYZWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mol.xyz")
	first, err := Diatomic("H", "H", 0.7)
	require.NoError(t, err)
	require.NoError(t, XYZWriteFile(path, first))
	second, err := Diatomic("N", "N", 1.10)
	require.NoError(t, err)
	require.NoError(t, XYZWriteFile(path, second))

	got, err := XYZReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"N", "N"}, got.Symbols())
}

func TestOpenDecompressMissingFile(t *testing.T) {
	_, _, err := OpenDecompress(filepath.Join(t.TempDir(), "nope.xyz"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.xyz")
}
