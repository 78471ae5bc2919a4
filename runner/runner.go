/*
 * runner.go, part of htase.
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

package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dicts"
	"github.com/arosen93/htase/dyn"
	"github.com/arosen93/htase/files"
	"github.com/arosen93/htase/vib"
	"gonum.org/v1/gonum/mat"
)

//WorkDirSetter is implemented by calculators that write files, such as
//the wrappers around external codes. The runner points them at the
//scratch directory before the first force call.
type WorkDirSetter interface {
	SetWorkDir(dir string)
}

//Runner executes calculations for one calculator, wrapping each in the
//scratch-directory lifecycle.
type Runner struct {
	calc      htase.Calculator
	copyFiles []string //staged into scratch before every job
}

//New returns a Runner. copyFiles are staged into the working directory
//of every job this runner starts; compressed sources arrive
//decompressed.
func New(calc htase.Calculator, copyFiles ...string) *Runner {
	if calc == nil {
		panic(htase.PanicMsg("runner: nil calculator"))
	}
	return &Runner{calc: calc, copyFiles: copyFiles}
}

//refreshGeometry re-reads the job geometry from a file in the working
//directory, replacing positions and cell of atoms while keeping
//everything else, the in-memory per-atom properties in particular. A
//file describing a different sequence of species is fatal.
func refreshGeometry(atoms *htase.Atoms, path string) error {
	fromFile, err := htase.XYZReadFile(files.Zpath(path))
	if err != nil {
		return htase.NewError("runner: reading geometry file %s: %v", path, err)
	}
	if !atoms.SameSpecies(fromFile) {
		return htase.NewError(
			"runner: geometry file %s holds different species than the structure; refusing to mix them", path)
	}
	if err := atoms.SetPositions(mat.DenseCopyOf(fromFile.Positions())); err != nil {
		return err
	}
	if cell := fromFile.Cell(); cell != nil {
		return atoms.SetCell(mat.DenseCopyOf(cell), fromFile.PBC())
	}
	return nil
}

//setup prepares the scratch and stages files. The returned atoms are
//a copy; the caller's structure is never touched.
func (r *Runner) setup(atoms *htase.Atoms) (*Scratch, *htase.Atoms, error) {
	if atoms == nil {
		return nil, nil, htase.NewError("runner: nil structure")
	}
	sc, err := NewScratch()
	if err != nil {
		return nil, nil, err
	}
	work := atoms.Copy()
	if err := sc.Stage(r.copyFiles); err != nil {
		return nil, nil, sc.Fail(err)
	}
	if wd, ok := r.calc.(WorkDirSetter); ok {
		wd.SetWorkDir(sc.TmpDir)
	}
	return sc, work, nil
}

//CalcOptions configure a single-point calculation.
type CalcOptions struct {
	//GeomFile names a file in the working directory to re-read after
	//the evaluation: external codes write their final geometry to
	//disk without touching the in-memory structure. A file the code
	//never produced is skipped with a warning.
	GeomFile string
	//Properties to request; nil means energy and forces.
	Properties []string
}

//CalcOutcome is the result of a single-point job.
type CalcOutcome struct {
	Atoms   *htase.Atoms
	Results *htase.Results
	Dir     string //permanent results directory
}

//RunCalc performs a single-point calculation under the scratch
//lifecycle.
func (r *Runner) RunCalc(atoms *htase.Atoms, opts CalcOptions) (*CalcOutcome, error) {
	sc, work, err := r.setup(atoms)
	if err != nil {
		return nil, err
	}
	props := opts.Properties
	if props == nil {
		props = []string{htase.PropEnergy, htase.PropForces}
	}
	res, err := r.calc.Calculate(work, props)
	if err != nil {
		return nil, sc.Fail(err)
	}
	if opts.GeomFile != "" {
		path := files.Zpath(filepath.Join(sc.TmpDir, opts.GeomFile))
		if _, statErr := os.Stat(path); statErr != nil {
			log.Warnf("geometry file %s was not produced, keeping the input geometry", opts.GeomFile)
		} else if err := refreshGeometry(work, path); err != nil {
			return nil, sc.Fail(err)
		}
	}
	if err := sc.Succeed(); err != nil {
		return nil, err
	}
	return &CalcOutcome{Atoms: work, Results: res, Dir: sc.JobDir}, nil
}

//OptOptions configure a relaxation job. Extra carries optimizer knobs
//passed through from recipe parameters; the trajectory file name is
//not one of them, the runner owns it.
type OptOptions struct {
	Fmax      float64
	MaxSteps  int
	Minimizer dyn.Minimizer
	RelaxCell bool
	StepN     int
	//CopyIntermediate snapshots the working directory into stepN/
	//after every step, so each geometry cycle's raw files survive the
	//relaxation. Expensive with external codes; off by default.
	CopyIntermediate bool
	Hook             func(step int, atoms *htase.Atoms, res *htase.Results) error
	Extra            dicts.Map
}

//OptOutcome is the result of a relaxation job.
type OptOutcome struct {
	*dyn.RelaxResult
	Dir string
}

//RunOpt relaxes the structure under the scratch lifecycle. Running out
//of steps is reported through the Converged flag, not as an error.
func (r *Runner) RunOpt(atoms *htase.Atoms, opts OptOptions) (*OptOutcome, error) {
	for _, key := range []string{"trajectory", "trajectory_file", "logfile"} {
		if _, clash := opts.Extra[key]; clash {
			return nil, htase.NewError(
				"runner: the %q option cannot be overridden; output file names are fixed", key)
		}
	}
	minimizer := opts.Minimizer
	if minimizer == nil {
		minimizer = dyn.NewFIRE()
	}
	if err := applyMinimizerKnobs(minimizer, opts.Extra); err != nil {
		return nil, err
	}
	sc, work, err := r.setup(atoms)
	if err != nil {
		return nil, err
	}
	hook := opts.Hook
	if opts.CopyIntermediate {
		userHook := opts.Hook
		hook = func(step int, atoms *htase.Atoms, res *htase.Results) error {
			if err := snapshotWorkDir(sc.TmpDir, step); err != nil {
				return err
			}
			if userHook != nil {
				return userHook(step, atoms, res)
			}
			return nil
		}
	}
	rr, err := dyn.Relax(work, r.calc, dyn.RelaxOptions{
		Fmax:      opts.Fmax,
		MaxSteps:  opts.MaxSteps,
		Minimizer: minimizer,
		RelaxCell: opts.RelaxCell,
		StepN:     opts.StepN,
		Hook:      hook,
		Dir:       sc.TmpDir,
	})
	if err != nil {
		return nil, sc.Fail(err)
	}
	if err := sc.Succeed(); err != nil {
		return nil, err
	}
	//the trajectory now lives in the results directory, possibly
	//compressed
	rr.TrajFile = files.Zpath(filepath.Join(sc.JobDir, dyn.TrajName))
	return &OptOutcome{RelaxResult: rr, Dir: sc.JobDir}, nil
}

//applyMinimizerKnobs maps optimizer keyword parameters onto the
//exported fields of the built-in minimizers. An unknown key is an
//error; a silently dropped knob would look like a tuned run.
func applyMinimizerKnobs(m dyn.Minimizer, extra dicts.Map) error {
	for key := range extra {
		val := dicts.Float(extra, key)
		if val <= 0 {
			return htase.NewError(
				"runner: the optimizer option %q needs a positive number, got %v", key, extra[key])
		}
		applied := false
		switch t := m.(type) {
		case *dyn.FIRE:
			applied = true
			switch key {
			case "dt":
				t.Dt = val
			case "dtmax":
				t.Dtmax = val
			case "maxstep":
				t.MaxStep = val
			default:
				applied = false
			}
		case *dyn.MDMin:
			applied = true
			switch key {
			case "dt":
				t.Dt = val
			case "maxstep":
				t.MaxStep = val
			default:
				applied = false
			}
		}
		if !applied {
			return htase.NewError("runner: unknown optimizer option %q for %T", key, m)
		}
	}
	return nil
}

//snapshotWorkDir copies the current contents of dir into dir/stepN.
//Earlier snapshots are not nested into later ones.
func snapshotWorkDir(dir string, step int) error {
	dst := filepath.Join(dir, fmt.Sprintf("step%d", step))
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "step") {
			continue
		}
		src := filepath.Join(dir, e.Name())
		target := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			if err := files.CopyR(src, target); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(src, target); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

//MDOptions configure a dynamics job.
type MDOptions struct {
	TimestepFs   float64
	Steps        int
	TemperatureK float64 //initial temperature; >0 draws thermal velocities
	Thermostat   bool    //couple to a Langevin bath at TemperatureK
	FrictionFs   float64 //Langevin friction, 1/fs
	Seed         uint64
	StepN        int
	Hook         func(step int, atoms *htase.Atoms, res *htase.Results) error
}

//MDOutcome is the result of a dynamics job.
type MDOutcome struct {
	*dyn.MDResult
	Dir string
}

//RunMD integrates the structure under the scratch lifecycle. With a
//positive initial temperature and no velocities on the structure, the
//run starts from a Maxwell-Boltzmann draw with the drift and rigid
//rotation removed.
func (r *Runner) RunMD(atoms *htase.Atoms, opts MDOptions) (*MDOutcome, error) {
	sc, work, err := r.setup(atoms)
	if err != nil {
		return nil, err
	}
	if opts.TemperatureK > 0 && work.Velocities() == nil {
		dyn.MaxwellBoltzmann(work, opts.TemperatureK, opts.Seed)
		dyn.Stationary(work)
		if !work.AnyPBC() {
			dyn.ZeroRotation(work)
		}
	}
	var integrator dyn.Integrator
	if opts.Thermostat {
		friction := opts.FrictionFs
		if friction <= 0 {
			friction = 0.01
		}
		integrator = dyn.NewLangevin(opts.TemperatureK, friction, opts.Seed+1)
	}
	mr, err := dyn.RunMD(work, r.calc, dyn.MDOptions{
		TimestepFs: opts.TimestepFs,
		Steps:      opts.Steps,
		Integrator: integrator,
		StepN:      opts.StepN,
		Hook:       opts.Hook,
		Dir:        sc.TmpDir,
	})
	if err != nil {
		return nil, sc.Fail(err)
	}
	if err := sc.Succeed(); err != nil {
		return nil, err
	}
	mr.TrajFile = files.Zpath(filepath.Join(sc.JobDir, dyn.TrajName))
	return &MDOutcome{MDResult: mr, Dir: sc.JobDir}, nil
}

//VibOptions configure a vibrational analysis job.
type VibOptions struct {
	Delta   float64
	Indices []int
}

//VibOutcome is the result of a vibrational analysis job.
type VibOutcome struct {
	*vib.Result
	Atoms *htase.Atoms
	Dir   string
}

//VibSummaryName is the mode table written into the job directory.
const VibSummaryName = "vib-summary.txt"

//RunVib computes the harmonic modes under the scratch lifecycle and
//leaves a human-readable mode table next to the results.
func (r *Runner) RunVib(atoms *htase.Atoms, opts VibOptions) (*VibOutcome, error) {
	sc, work, err := r.setup(atoms)
	if err != nil {
		return nil, err
	}
	vr, err := vib.Run(work, r.calc, vib.Options{Delta: opts.Delta, Indices: opts.Indices})
	if err != nil {
		return nil, sc.Fail(err)
	}
	summary, err := os.Create(filepath.Join(sc.TmpDir, VibSummaryName))
	if err != nil {
		return nil, sc.Fail(err)
	}
	err = vib.WriteSummary(summary, vr)
	if cerr := summary.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, sc.Fail(err)
	}
	if err := sc.Succeed(); err != nil {
		return nil, err
	}
	return &VibOutcome{Result: vr, Atoms: work, Dir: sc.JobDir}, nil
}
