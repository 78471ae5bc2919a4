/*
 * root.go, part of htase.
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
	"fmt"

	"github.com/arosen93/htase/dyn"
	"github.com/arosen93/htase/files"
	"github.com/arosen93/htase/runner"
	"github.com/arosen93/htase/settings"
	"github.com/arosen93/htase/wflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//Version is stamped at build time.
var Version = "dev"

var (
	flagSettings   string
	flagResultsDir string
	flagScratchDir string
	flagEngine     string
	flagDebug      bool
)

var rootCmd = &cobra.Command{
	Use:           "htase",
	Short:         "run atomistic calculations with a managed scratch lifecycle",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := settings.Defaults()
		if flagSettings != "" {
			var err error
			if cfg, err = settings.LoadFile(flagSettings); err != nil {
				return err
			}
		}
		if flagResultsDir != "" {
			cfg.ResultsDir = flagResultsDir
		}
		if flagScratchDir != "" {
			cfg.ScratchDir = flagScratchDir
		}
		if flagEngine != "" {
			cfg.WorkflowEngine = flagEngine
		}
		if flagDebug {
			cfg.Debug = true
		}
		settings.Set(cfg)
		if cfg.Debug {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			sugar := logger.Sugar()
			files.SetLogger(sugar)
			runner.SetLogger(sugar)
			wflow.SetLogger(sugar)
			dyn.SetLogger(sugar)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "htase", Version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagSettings, "settings", "s", "", "YAML settings file")
	pf.StringVar(&flagResultsDir, "results-dir", "", "directory for job results")
	pf.StringVar(&flagScratchDir, "scratch-dir", "", "directory for scratch space")
	pf.StringVar(&flagEngine, "engine", "", "workflow engine: local, pool or slurm")
	pf.BoolVar(&flagDebug, "debug", false, "verbose logging")
	rootCmd.AddCommand(versionCmd)
}
