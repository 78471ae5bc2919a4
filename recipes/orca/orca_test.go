/*
 * orca_test.go, part of htase.
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
	"os"
	"path/filepath"
	"testing"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dicts"
	"github.com/arosen93/htase/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engradSample = `#
# Number of atoms
#
 2
#
# The current total energy in Eh
#
    -5.070544440612
#
# The current gradient in Eh/bohr
#
       0.000000000000
       0.000000000000
      -0.000120000000
       0.000000000000
       0.000000000000
       0.000120000000
#
# The atomic numbers and current coordinates in Bohr
#
   1   0.0000000    0.0000000    0.0000000
   1   0.0000000    0.0000000    1.3983972
`

//staticStub pretends to be an EnGrad run on H2.
const staticStub = `#!/bin/sh
cat > orca.engrad <<'EOF'
` + engradSample + `EOF
echo "FINAL SINGLE POINT ENERGY      -5.070544440612"
echo "ORCA TERMINATED NORMALLY"
`

//optStub pretends the internal optimizer converged in two cycles.
const optStub = `#!/bin/sh
cat > orca.xyz <<'EOF'
2
Coordinates from ORCA-job orca
  H   0.00000000   0.00000000   0.00000000
  H   0.00000000   0.00000000   0.76000000
EOF
echo "GEOMETRY OPTIMIZATION CYCLE   1"
echo "FINAL SINGLE POINT ENERGY      -5.068000000000"
echo "GEOMETRY OPTIMIZATION CYCLE   2"
echo "FINAL SINGLE POINT ENERGY      -5.070544440612"
echo "THE OPTIMIZATION HAS CONVERGED"
echo "ORCA TERMINATED NORMALLY"
`

func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orca-stub")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func scoped(t *testing.T, fn func() error) {
	t.Helper()
	cfg := settings.Defaults()
	cfg.ResultsDir = t.TempDir()
	cfg.CreateUniqueDir = true
	require.NoError(t, settings.WithScoped(cfg, fn))
}

func h2(t *testing.T) *htase.Atoms {
	t.Helper()
	mol, err := htase.Diatomic("H", "H", 0.74)
	require.NoError(t, err)
	return mol
}

func TestWriteInput(t *testing.T) {
	c := New()
	c.NProcs = 4
	c.Charge = -1
	c.Mult = 2
	c.Blocks = []string{"%scf maxiter 300 end"}
	c.Keywords = []string{"TightSCF"}
	c.SetWorkDir(t.TempDir())

	path, err := c.WriteInput(h2(t), "EnGrad")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	inp := string(data)
	assert.Contains(t, inp, "! wB97X-D3 def2-TZVP TightSCF EnGrad")
	assert.Contains(t, inp, "%pal nprocs 4 end")
	assert.Contains(t, inp, "%scf maxiter 300 end")
	assert.Contains(t, inp, "* xyz -1 2")
	assert.Contains(t, inp, "H  ")
}

func TestWriteInputOmitsPalBlockSerially(t *testing.T) {
	c := New()
	c.SetWorkDir(t.TempDir())
	path, err := c.WriteInput(h2(t))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "%pal")
}

func TestParseEngrad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orca.engrad")
	require.NoError(t, os.WriteFile(path, []byte(engradSample), 0o644))
	energy, forces, err := parseEngrad(path)
	require.NoError(t, err)
	assert.InDelta(t, -5.070544440612*htase.H2eV, energy, 1e-8)
	want := 0.00012 * htase.H2eV / htase.Bohr2A
	assert.InDelta(t, want, forces.At(0, 2), 1e-10)
	assert.InDelta(t, -want, forces.At(1, 2), 1e-10)
	assert.InDelta(t, 0, forces.At(0, 0), 1e-12)
}

func TestParseFinalEnergyTakesLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orca.out")
	out := "FINAL SINGLE POINT ENERGY   -1.0\nFINAL SINGLE POINT ENERGY   -2.0\n"
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	energy, err := parseFinalEnergy(path)
	require.NoError(t, err)
	assert.InDelta(t, -2.0*htase.H2eV, energy, 1e-10)
}

func TestCalculate(t *testing.T) {
	c := New()
	c.Cmd = writeStub(t, staticStub)
	c.SetWorkDir(t.TempDir())
	res, err := c.Calculate(h2(t), nil)
	require.NoError(t, err)
	assert.InDelta(t, -5.070544440612*htase.H2eV, res.Energy, 1e-6)
	require.NotNil(t, res.Forces)
}

func TestCalculateAbnormalTermination(t *testing.T) {
	c := New()
	c.Cmd = writeStub(t, "#!/bin/sh\necho early death\n")
	c.SetWorkDir(t.TempDir())
	_, err := c.Calculate(h2(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abnormal")
}

func TestStaticJobWithStub(t *testing.T) {
	stub := writeStub(t, staticStub)
	scoped(t, func() error {
		doc, err := StaticJob(h2(t), dicts.Map{"cmd": stub})
		require.NoError(t, err)
		assert.Equal(t, "orca-static", doc.Name)
		assert.Equal(t, "wB97X-D3", doc.Parameters["xc"])
		assert.InDelta(t, -5.070544440612*htase.H2eV, doc.Results.Energy, 1e-6)
		return nil
	})
}

func TestRelaxJobInternalOptimizer(t *testing.T) {
	stub := writeStub(t, optStub)
	scoped(t, func() error {
		doc, err := RelaxJob(h2(t), dicts.Map{"cmd": stub})
		require.NoError(t, err)
		assert.True(t, doc.Converged)
		assert.Equal(t, 2, doc.Steps)
		assert.InDelta(t, -5.070544440612*htase.H2eV, doc.Results.Energy, 1e-6)
		//the optimized bond length comes from the geometry file
		assert.InDelta(t, 0.76, doc.Atoms.Positions[1][2], 1e-8)
		return nil
	})
}
