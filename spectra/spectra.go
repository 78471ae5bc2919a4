/*
 * spectra.go, part of htase.
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

//Package spectra turns a list of harmonic frequencies into a broadened
//vibrational spectrum and plots it. Imaginary modes, stored as
//negative wavenumbers, are left out.
package spectra

import (
	"math"

	htase "github.com/arosen93/htase"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//Options controls the broadening and the plotted range. The zero value
//asks for Lorentzian peaks of 30 1/cm width over a range padded around
//the modes.
type Options struct {
	FWHM     float64 //full width at half maximum, 1/cm
	Min, Max float64 //wavenumber range; both zero means automatic
	Points   int     //samples across the range; <2 means 2000
	Gaussian bool    //Gaussian line shape instead of Lorentzian
}

func (o Options) withDefaults(freqs []float64) Options {
	if o.FWHM <= 0 {
		o.FWHM = 30
	}
	if o.Points < 2 {
		o.Points = 2000
	}
	if o.Min == 0 && o.Max == 0 {
		o.Max = 4000
		for _, f := range freqs {
			if f+5*o.FWHM > o.Max {
				o.Max = f + 5*o.FWHM
			}
		}
	}
	return o
}

//Broaden samples the sum of one unit-area peak per real mode on a
//uniform wavenumber grid.
func Broaden(freqs []float64, opts Options) (xs, ys []float64) {
	opts = opts.withDefaults(freqs)
	xs = make([]float64, opts.Points)
	ys = make([]float64, opts.Points)
	dx := (opts.Max - opts.Min) / float64(opts.Points-1)
	hwhm := opts.FWHM / 2
	sigma := opts.FWHM / (2 * math.Sqrt(2*math.Log(2)))
	for i := range xs {
		x := opts.Min + float64(i)*dx
		xs[i] = x
		for _, f := range freqs {
			if f <= 0 {
				continue
			}
			d := x - f
			if opts.Gaussian {
				ys[i] += math.Exp(-d*d/(2*sigma*sigma)) / (sigma * math.Sqrt(2*math.Pi))
			} else {
				ys[i] += hwhm / (math.Pi * (d*d + hwhm*hwhm))
			}
		}
	}
	return xs, ys
}

//WritePNG plots the broadened spectrum of the given frequencies. Stick
//heights are uniform; without computed intensities there is nothing
//better to scale them by.
func WritePNG(path, title string, freqs []float64, opts Options) error {
	xs, ys := Broaden(freqs, opts)
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "wavenumber (1/cm)"
	p.Y.Label.Text = "intensity (arb.)"
	line, err := plotter.NewLine(pts)
	if err != nil {
		return htase.NewError("spectra: %v", err)
	}
	p.Add(line)
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return htase.NewError("spectra: saving %s: %v", path, err)
	}
	return nil
}
