/*
 * settings.go, part of htase.
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

//Package settings holds the process-wide configuration. Options are
//late-bound: callers read them through Current() at call time, so a
//scoped override (WithScoped) can change behavior for one region of
//code and is guaranteed to be undone on every exit path, panics
//included.
package settings

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

//Settings are the named options recognized system-wide. The zero value
//is not useful; start from Defaults().
type Settings struct {
	//ResultsDir is the permanent directory calculation outputs end up
	//in. Empty means the current working directory.
	ResultsDir string `yaml:"results_dir"`

	//ScratchDir is the root under which disposable working
	//directories are made. Empty means "next to the results", i.e. no
	//separate scratch filesystem.
	ScratchDir string `yaml:"scratch_dir"`

	//GzipFiles selects whether outputs are gzipped before the
	//copy-back.
	GzipFiles bool `yaml:"gzip_files"`

	//CreateUniqueDir makes every job write into its own uniquely
	//named subdirectory of ResultsDir.
	CreateUniqueDir bool `yaml:"create_unique_dir"`

	//Debug routes optimizer and dynamics logs to stderr instead of
	//files and raises the log level.
	Debug bool `yaml:"debug"`

	//WorkflowEngine selects the execution engine adapter: "local",
	//"pool" or "slurm".
	WorkflowEngine string `yaml:"workflow_engine"`

	//PoolSize bounds the pool engine's concurrency.
	PoolSize int `yaml:"pool_size"`

	//Per-code command paths. Opaque to the core; only the matching
	//recipe package interprets them.
	XTBCmd             string `yaml:"xtb_cmd"`
	OrcaCmd            string `yaml:"orca_cmd"`
	NewtonNetModelPath string `yaml:"newtonnet_model_path"`
}

//Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		GzipFiles:       true,
		CreateUniqueDir: false,
		WorkflowEngine:  "local",
		PoolSize:        4,
		XTBCmd:          "xtb",
		OrcaCmd:         "orca",
	}
}

var (
	mu    sync.RWMutex
	stack = []Settings{fromEnv(Defaults())}
)

//Current returns the active settings. The copy is by value: mutating
//the result does not change the process configuration.
func Current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return stack[len(stack)-1]
}

//Set replaces the process-wide base configuration. Scoped overrides
//stacked on top of the old base stay in effect until they unwind.
func Set(s Settings) {
	mu.Lock()
	defer mu.Unlock()
	stack[0] = s
}

//WithScoped runs fn with s as the active settings, restoring the
//previous settings afterwards no matter how fn exits. Scopes share
//one process-wide stack and must not overlap from different
//goroutines: open a scope around the concurrent work, not inside it.
func WithScoped(s Settings, fn func() error) error {
	mu.Lock()
	stack = append(stack, s)
	mu.Unlock()
	defer func() {
		mu.Lock()
		stack = stack[:len(stack)-1]
		mu.Unlock()
	}()
	return fn()
}

//LoadFile reads settings from a YAML file, layered on top of the
//defaults, and applies environment overrides on top of that.
func LoadFile(path string) (Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("settings: parsing %s: %w", path, err)
	}
	return fromEnv(s), nil
}

//fromEnv applies the HTASE_* environment overrides. Only the options
//that make sense to flip per-run are exposed this way.
func fromEnv(s Settings) Settings {
	if v := os.Getenv("HTASE_SCRATCH_DIR"); v != "" {
		s.ScratchDir = v
	}
	if v := os.Getenv("HTASE_RESULTS_DIR"); v != "" {
		s.ResultsDir = v
	}
	if v := os.Getenv("HTASE_WORKFLOW_ENGINE"); v != "" {
		s.WorkflowEngine = v
	}
	if v := os.Getenv("HTASE_GZIP_FILES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.GzipFiles = b
		}
	}
	if v := os.Getenv("HTASE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Debug = b
		}
	}
	return s
}
