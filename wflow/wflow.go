/*
 * wflow.go, part of htase.
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

//Package wflow runs jobs through a pluggable execution engine: in the
//calling goroutine, through a bounded worker pool, or via a Slurm
//batch system. The Engine interface is sealed; engines live here so a
//recipe written against one runs unchanged on the others. Engines also
//act as launchers for the external command lines the calculators shell
//out, which is where the batch engine actually differs from the local
//ones.
package wflow

import (
	"context"
	"os/exec"
	"sync"

	htase "github.com/arosen93/htase"
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

//Job is one unit of work.
type Job func() (interface{}, error)

//Future delivers a submitted job's outcome. Wait may be called any
//number of times and always returns the same values.
type Future interface {
	Wait(ctx context.Context) (interface{}, error)
}

//Launcher executes an external command line in a directory, blocking
//until it finishes. The local engines exec it directly; the batch
//engine submits it to the scheduler.
type Launcher interface {
	Launch(ctx context.Context, dir, command string) error
}

//Engine schedules jobs. The interface is sealed to this package:
//engine semantics (where a closure runs, how commands are launched)
//must stay consistent, so new engines are added here, not outside.
type Engine interface {
	Launcher
	//Submit schedules the job and returns immediately.
	Submit(name string, job Job) Future
	//Close waits for the submitted jobs and releases the engine's
	//resources. No Submit may follow it.
	Close() error
	sealed()
}

//Select returns the engine named by the active settings.
func Select() (Engine, error) {
	cfg := settings.Current()
	switch cfg.WorkflowEngine {
	case "", "local":
		return NewLocal(), nil
	case "pool":
		return NewPool(cfg.PoolSize), nil
	case "slurm":
		return NewSlurm(SlurmConfig{}), nil
	default:
		return nil, htase.NewError("wflow: unknown workflow engine %q", cfg.WorkflowEngine)
	}
}

//future is the shared Future implementation.
type future struct {
	done  chan struct{}
	value interface{}
	err   error
}

func newFuture() *future { return &future{done: make(chan struct{})} }

func (f *future) complete(v interface{}, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

func (f *future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

//execLaunch is the direct command execution shared by the local
//engines.
func execLaunch(ctx context.Context, dir, command string) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return htase.NewError("wflow: command %q failed: %v: %s", command, err, out)
	}
	return nil
}

//Local runs every job synchronously in the submitting goroutine. The
//simplest engine and the default: results exist by the time Submit
//returns, which makes failures easy to attribute.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (*Local) sealed() {}

func (*Local) Submit(name string, job Job) Future {
	f := newFuture()
	log.Debugw("running job", "engine", "local", "name", name)
	f.complete(job())
	return f
}

func (*Local) Launch(ctx context.Context, dir, command string) error {
	return execLaunch(ctx, dir, command)
}

func (*Local) Close() error { return nil }

//Pool runs jobs concurrently through a fixed number of workers.
type Pool struct {
	jobs chan poolItem
	wg   sync.WaitGroup
	once sync.Once
}

type poolItem struct {
	name string
	job  Job
	f    *future
}

//NewPool returns an engine with size workers; size below 1 means 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{jobs: make(chan poolItem)}
	p.wg.Add(size)
	for w := 0; w < size; w++ {
		go func() {
			defer p.wg.Done()
			for item := range p.jobs {
				log.Debugw("running job", "engine", "pool", "name", item.name)
				item.f.complete(item.job())
			}
		}()
	}
	return p
}

func (*Pool) sealed() {}

func (p *Pool) Submit(name string, job Job) Future {
	f := newFuture()
	p.jobs <- poolItem{name: name, job: job, f: f}
	return f
}

func (p *Pool) Launch(ctx context.Context, dir, command string) error {
	return execLaunch(ctx, dir, command)
}

func (p *Pool) Close() error {
	p.once.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
	return nil
}

//Flow composes jobs on one engine.
type Flow struct {
	engine  Engine
	futures []Future
}

//NewFlow returns a Flow running on the given engine, or on the one the
//settings select when engine is nil.
func NewFlow(engine Engine) (*Flow, error) {
	if engine == nil {
		var err error
		if engine, err = Select(); err != nil {
			return nil, err
		}
	}
	return &Flow{engine: engine}, nil
}

//Go submits a job and remembers its future.
func (fl *Flow) Go(name string, job Job) Future {
	f := fl.engine.Submit(name, job)
	fl.futures = append(fl.futures, f)
	return f
}

//Wait gathers the results of every job submitted through the flow, in
//submission order. The first error wins, but every job is waited for.
func (fl *Flow) Wait(ctx context.Context) ([]interface{}, error) {
	out := make([]interface{}, len(fl.futures))
	var firstErr error
	for i, f := range fl.futures {
		v, err := f.Wait(ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[i] = v
	}
	return out, firstErr
}

//Engine returns the engine the flow runs on.
func (fl *Flow) Engine() Engine { return fl.engine }
