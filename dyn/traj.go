/*
 * traj.go, part of htase.
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

package dyn

//The trajectory format: gzipped JSON, one frame object per line. Self
//describing, diffable after decompression, and readable from any
//language, which is what the downstream analysis actually needs.

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	htase "github.com/arosen93/htase"
	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/mat"
)

//Frame is one trajectory snapshot. Optional fields are omitted when
//the driver did not produce them.
type Frame struct {
	Step        int          `json:"step"`
	Time        float64      `json:"time,omitempty"` //fs, dynamics only
	Energy      float64      `json:"energy"`
	Fmax        float64      `json:"fmax,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	Symbols     []string     `json:"symbols"`
	Positions   [][3]float64 `json:"positions"`
	Velocities  [][3]float64 `json:"velocities,omitempty"`
	Cell        [][3]float64 `json:"cell,omitempty"`
	PBC         []bool       `json:"pbc,omitempty"`
	Forces      [][3]float64 `json:"forces,omitempty"`
}

//TrajWriter appends frames to a compressed trajectory file.
type TrajWriter struct {
	f   *os.File
	gz  *gzip.Writer
	enc *json.Encoder
}

func NewTrajWriter(path string) (*TrajWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	gz := gzip.NewWriter(f)
	return &TrajWriter{f: f, gz: gz, enc: json.NewEncoder(gz)}, nil
}

func matRows(m *mat.Dense) [][3]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	out := make([][3]float64, r)
	for i := 0; i < r; i++ {
		out[i] = [3]float64{m.At(i, 0), m.At(i, 1), m.At(i, 2)}
	}
	return out
}

func makeFrame(atoms *htase.Atoms, res *htase.Results, step int, time float64) Frame {
	fr := Frame{
		Step:      step,
		Time:      time,
		Symbols:   atoms.Symbols(),
		Positions: matRows(atoms.Positions()),
	}
	if res != nil {
		fr.Energy = res.Energy
		fr.Fmax = res.Fmax()
		fr.Forces = matRows(res.Forces)
	}
	if atoms.Velocities() != nil {
		fr.Velocities = matRows(atoms.Velocities())
		fr.Temperature = atoms.Temperature()
	}
	if cell := atoms.Cell(); cell != nil {
		fr.Cell = matRows(cell)
		pbc := atoms.PBC()
		fr.PBC = pbc[:]
	}
	return fr
}

//WriteFrame records the current state of atoms together with the
//results of the step that produced it.
func (w *TrajWriter) WriteFrame(atoms *htase.Atoms, res *htase.Results, step int, time float64) error {
	fr := makeFrame(atoms, res, step, time)
	return w.enc.Encode(&fr)
}

//writeRestart overwrites the restart file with the current state. A
//plain single-object JSON file, so it stays readable after a crash.
func writeRestart(path string, atoms *htase.Atoms, res *htase.Results, step int) error {
	fr := makeFrame(atoms, res, step, 0)
	data, err := json.Marshal(&fr)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

//ReadRestart loads the state file a relaxation overwrites every step.
//FrameAtoms turns it back into a structure to resume from.
func ReadRestart(path string) (*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fr Frame
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, err
	}
	return &fr, nil
}

func (w *TrajWriter) Close() error {
	err := w.gz.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

//ReadTraj reads every frame of a trajectory written by TrajWriter.
func ReadTraj(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	var frames []Frame
	dec := json.NewDecoder(bufio.NewReader(gz))
	for {
		var fr Frame
		if err := dec.Decode(&fr); err == io.EOF {
			break
		} else if err != nil {
			return frames, err
		}
		frames = append(frames, fr)
	}
	return frames, nil
}

//FrameAtoms reconstructs a structure from a trajectory frame.
func FrameAtoms(fr Frame) (*htase.Atoms, error) {
	n := len(fr.Symbols)
	coords := mat.NewDense(n, 3, nil)
	for i, p := range fr.Positions {
		coords.SetRow(i, p[:])
	}
	atoms, err := htase.FromSymbols(fr.Symbols, coords)
	if err != nil {
		return nil, err
	}
	if len(fr.Cell) == 3 {
		cell := mat.NewDense(3, 3, nil)
		for i := 0; i < 3; i++ {
			cell.SetRow(i, fr.Cell[i][:])
		}
		var pbc [3]bool
		copy(pbc[:], fr.PBC)
		if err := atoms.SetCell(cell, pbc); err != nil {
			return nil, err
		}
	}
	if len(fr.Velocities) == n && n > 0 {
		v := mat.NewDense(n, 3, nil)
		for i, row := range fr.Velocities {
			v.SetRow(i, row[:])
		}
		if err := atoms.SetVelocities(v); err != nil {
			return nil, err
		}
	}
	return atoms, nil
}
