/*
 * spectrum.go, part of htase.
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
	"github.com/arosen93/htase/schemas"
	"github.com/arosen93/htase/spectra"
	"github.com/spf13/cobra"
)

var (
	flagSpectrumOut  string
	flagSpectrumFWHM float64
	flagGaussian     bool
)

var spectrumCmd = &cobra.Command{
	Use:   "spectrum <vib.json>",
	Short: "plot a broadened vibrational spectrum from a frequency document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var doc schemas.VibSchema
		if err := schemas.ReadJSON(args[0], &doc); err != nil {
			return err
		}
		opts := spectra.Options{FWHM: flagSpectrumFWHM, Gaussian: flagGaussian}
		return spectra.WritePNG(flagSpectrumOut, doc.Name, doc.Frequencies, opts)
	},
}

func init() {
	spectrumCmd.Flags().StringVarP(&flagSpectrumOut, "output", "o", "spectrum.png", "output image")
	spectrumCmd.Flags().Float64Var(&flagSpectrumFWHM, "fwhm", 30, "peak width, 1/cm")
	spectrumCmd.Flags().BoolVar(&flagGaussian, "gaussian", false, "Gaussian peaks instead of Lorentzian")
	rootCmd.AddCommand(spectrumCmd)
}
