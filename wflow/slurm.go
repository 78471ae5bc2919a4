/*
 * slurm.go, part of htase.
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

package wflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	htase "github.com/arosen93/htase"
)

//SlurmConfig tunes the batch engine. The zero value submits with plain
//sbatch and polls every five seconds.
type SlurmConfig struct {
	Sbatch       string        //submission command; empty means "sbatch"
	Directives   []string      //extra #SBATCH lines, without the prefix
	PollInterval time.Duration //how often to look for the sentinel file
	Workers      int           //concurrent in-process jobs; <1 means 4
}

//Slurm runs job closures through an in-process pool and launches
//external command lines by writing a batch script and submitting it.
//Completion is detected through a sentinel file the script touches as
//its last action, which survives scheduler restarts and needs no job
//accounting access.
type Slurm struct {
	cfg  SlurmConfig
	pool *Pool
}

func NewSlurm(cfg SlurmConfig) *Slurm {
	if cfg.Sbatch == "" {
		cfg.Sbatch = "sbatch"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	return &Slurm{cfg: cfg, pool: NewPool(cfg.Workers)}
}

func (*Slurm) sealed() {}

func (s *Slurm) Submit(name string, job Job) Future {
	return s.pool.Submit(name, job)
}

func (s *Slurm) Close() error { return s.pool.Close() }

//ScriptName and SentinelName are the files the batch launcher leaves
//in the job directory.
const (
	ScriptName   = "job.sbatch"
	SentinelName = "job.done"
)

var scriptTmpl = template.Must(template.New("sbatch").Parse(
	`#!/bin/bash
#SBATCH --job-name={{.Name}}
#SBATCH --chdir={{.Dir}}
#SBATCH -o {{.Dir}}/slurm.out
#SBATCH -e {{.Dir}}/slurm.err
{{- range .Directives}}
#SBATCH {{.}}
{{- end}}

{{.Command}}
touch {{.Sentinel}}
`))

type scriptData struct {
	Name       string
	Dir        string
	Directives []string
	Command    string
	Sentinel   string
}

//RenderScript writes the batch script for one command into dir and
//returns its path.
func (s *Slurm) RenderScript(dir, command string) (string, error) {
	path := filepath.Join(dir, ScriptName)
	f, err := os.Create(path)
	if err != nil {
		return "", htase.NewError("wflow: %v", err)
	}
	data := scriptData{
		Name:       filepath.Base(dir),
		Dir:        dir,
		Directives: s.cfg.Directives,
		Command:    command,
		Sentinel:   filepath.Join(dir, SentinelName),
	}
	err = scriptTmpl.Execute(f, data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", htase.NewError("wflow: rendering batch script: %v", err)
	}
	return path, nil
}

//Launch submits the command as a batch job and blocks until the
//script's sentinel file appears or the context ends.
func (s *Slurm) Launch(ctx context.Context, dir, command string) error {
	sentinel := filepath.Join(dir, SentinelName)
	os.Remove(sentinel)
	script, err := s.RenderScript(dir, command)
	if err != nil {
		return err
	}
	if err := execLaunch(ctx, dir, fmt.Sprintf("%s %s", s.cfg.Sbatch, script)); err != nil {
		return err
	}
	log.Debugw("batch job submitted", "dir", dir, "script", script)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(sentinel); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return htase.NewError("wflow: batch job in %s: %v", dir, ctx.Err())
		case <-ticker.C:
		}
	}
}

//Directive is a convenience for building #SBATCH lines from key-value
//pairs.
func Directive(key, value string) string {
	if strings.HasPrefix(key, "--") {
		return fmt.Sprintf("%s=%s", key, value)
	}
	return fmt.Sprintf("--%s=%s", key, value)
}
