/*
 * scratch.go, part of htase.
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

//Package runner ties the pieces together: it prepares a disposable
//working directory per job, stages input files into it, drives the
//calculation (single point, relaxation, dynamics or vibrational
//analysis) and copies the outputs back to the permanent results
//directory. A failed job leaves its working directory behind, with the
//path attached to the returned error, so there is always something to
//inspect.
package runner

import (
	"os"
	"path/filepath"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/files"
	"github.com/arosen93/htase/settings"
	"go.uber.org/zap"
)

var log = zap.NewNop().Sugar()

//SetLogger replaces the package logger, which by default discards
//everything.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

//Scratch is the per-job directory pair: a permanent results directory
//and a disposable working directory the job actually runs in. When the
//two live on different filesystems, a symlink in the results directory
//points at the working one so a running job can be found.
type Scratch struct {
	JobDir  string //permanent results directory
	TmpDir  string //disposable working directory
	symlink string
	gzip    bool
	done    bool
}

//NewScratch prepares the directories for one job according to the
//active settings.
func NewScratch() (*Scratch, error) {
	cfg := settings.Current()
	jobDir := cfg.ResultsDir
	if jobDir == "" {
		var err error
		if jobDir, err = os.Getwd(); err != nil {
			return nil, htase.NewError("runner: %v", err)
		}
	}
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, htase.NewError("runner: %v", err)
	}
	if cfg.CreateUniqueDir {
		var err error
		if jobDir, err = files.MakeUniqueDir(jobDir); err != nil {
			return nil, htase.NewError("runner: %v", err)
		}
	}
	scratchRoot := cfg.ScratchDir
	separate := scratchRoot != ""
	if !separate {
		scratchRoot = jobDir
	}
	tmpDir, err := files.MakeUniqueDir(scratchRoot)
	if err != nil {
		return nil, htase.NewError("runner: %v", err)
	}
	if abs, err := filepath.Abs(tmpDir); err == nil {
		tmpDir = abs
	}
	sc := &Scratch{JobDir: jobDir, TmpDir: tmpDir, gzip: cfg.GzipFiles}
	if separate {
		sc.symlink = filepath.Join(jobDir, "symlink-"+filepath.Base(tmpDir))
		//not all filesystems allow symlinks; the job works without one
		if err := os.Symlink(tmpDir, sc.symlink); err != nil {
			log.Warnf("cannot create scratch symlink: %v", err)
			sc.symlink = ""
		}
	}
	log.Debugw("scratch prepared", "job_dir", sc.JobDir, "tmp_dir", sc.TmpDir)
	return sc, nil
}

//Stage copies (and decompresses) the named files into the working
//directory. Missing sources are warnings, not errors.
func (sc *Scratch) Stage(sources []string) error {
	return files.CopyDecompress(sources, sc.TmpDir)
}

//Succeed finalizes a successful job: outputs are compressed when
//configured, copied back to the results directory, and the working
//directory and its symlink are removed.
func (sc *Scratch) Succeed() error {
	if sc.done {
		return nil
	}
	if sc.gzip {
		if err := files.GzipDir(sc.TmpDir); err != nil {
			return htase.NewError("runner: compressing outputs: %v", err)
		}
	}
	if err := files.CopyR(sc.TmpDir, sc.JobDir); err != nil {
		return htase.NewError("runner: copying results to %s: %v", sc.JobDir, err)
	}
	if sc.symlink != "" {
		os.Remove(sc.symlink)
	}
	if err := os.RemoveAll(sc.TmpDir); err != nil {
		return htase.NewError("runner: removing scratch: %v", err)
	}
	sc.done = true
	return nil
}

//Fail marks the job failed. The working directory is deliberately kept
//and its path attached to the error, which is the only place the
//caller learns it from.
func (sc *Scratch) Fail(cause error) error {
	sc.done = true
	log.Errorw("job failed", "tmp_dir", sc.TmpDir, "error", cause)
	return htase.NewError("runner: job failed (scratch preserved in %s): %v", sc.TmpDir, cause)
}
