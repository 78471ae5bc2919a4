/*
 * schemas.go, part of htase.
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

//Package schemas turns the raw outcome of a calculation into the
//result documents that get stored and compared: a flattened, fully
//JSON-serializable record of the input structure, the final structure,
//the calculator parameters and whatever properties were produced.
package schemas

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	htase "github.com/arosen93/htase"
	"github.com/arosen93/htase/dicts"
	"github.com/arosen93/htase/dyn"
	"github.com/arosen93/htase/files"
	"github.com/arosen93/htase/thermo"
	"github.com/arosen93/htase/vib"
	"gonum.org/v1/gonum/mat"
)

//AtomsDoc is the serializable form of a structure.
type AtomsDoc struct {
	Symbols   []string     `json:"symbols"`
	Positions [][3]float64 `json:"positions"`
	Cell      [][3]float64 `json:"cell,omitempty"`
	PBC       []bool       `json:"pbc,omitempty"`
	Magmoms   []float64    `json:"magmoms,omitempty"`
	NAtoms    int          `json:"natoms"`
	Formula   string       `json:"formula"`
}

//Formula returns the Hill-ordered chemical formula: carbon first, then
//hydrogen, then the rest alphabetically.
func Formula(atoms *htase.Atoms) string {
	counts := map[string]int{}
	for _, s := range atoms.Symbols() {
		counts[s]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		if k != "C" && k != "H" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if counts["H"] > 0 {
		keys = append([]string{"H"}, keys...)
	}
	if counts["C"] > 0 {
		keys = append([]string{"C"}, keys...)
	}
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		if counts[k] > 1 {
			fmt.Fprintf(&sb, "%d", counts[k])
		}
	}
	return sb.String()
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

//NewAtomsDoc converts a structure into its document form.
func NewAtomsDoc(atoms *htase.Atoms) *AtomsDoc {
	doc := &AtomsDoc{
		Symbols:   atoms.Symbols(),
		Positions: matRows(atoms.Positions()),
		NAtoms:    atoms.Len(),
		Formula:   Formula(atoms),
	}
	if cell := atoms.Cell(); cell != nil {
		doc.Cell = matRows(cell)
		pbc := atoms.PBC()
		doc.PBC = pbc[:]
	}
	for _, m := range atoms.Magmoms() {
		if m != 0 {
			doc.Magmoms = atoms.Magmoms()
			break
		}
	}
	return doc
}

//ResultsDoc is the serializable form of calculator results.
type ResultsDoc struct {
	Energy  float64                `json:"energy"`
	Forces  [][3]float64           `json:"forces,omitempty"`
	Stress  []float64              `json:"stress,omitempty"`
	Magmoms []float64              `json:"magmoms,omitempty"`
	Charges []float64              `json:"charges,omitempty"`
	Extra   map[string]interface{} `json:"extra,omitempty"`
}

func newResultsDoc(res *htase.Results) *ResultsDoc {
	if res == nil {
		return nil
	}
	return &ResultsDoc{
		Energy:  res.Energy,
		Forces:  matRows(res.Forces),
		Stress:  res.Stress,
		Magmoms: res.Magmoms,
		Charges: res.Charges,
		Extra:   dicts.CleanTaskDoc(res.Extra),
	}
}

//RunSchema is the document for a single-point calculation.
type RunSchema struct {
	Name       string      `json:"name"`
	Dir        string      `json:"dir"` //hostname-qualified results path
	InputAtoms *AtomsDoc   `json:"input_atoms,omitempty"`
	Atoms      *AtomsDoc   `json:"atoms"`
	Parameters dicts.Map   `json:"parameters,omitempty"`
	Results    *ResultsDoc `json:"results"`
}

//SummarizeRun builds the document for one finished calculation. input
//may be nil when the run did not change the structure.
func SummarizeRun(name, dir string, input, final *htase.Atoms, res *htase.Results, calc htase.Calculator) *RunSchema {
	doc := &RunSchema{
		Name:    name,
		Dir:     files.URI(dir),
		Atoms:   NewAtomsDoc(final),
		Results: newResultsDoc(res),
	}
	if input != nil {
		doc.InputAtoms = NewAtomsDoc(input)
	}
	if calc != nil {
		doc.Parameters = dicts.CleanTaskDoc(calc.Parameters())
	}
	return doc
}

//OptSchema is the document for a relaxation.
type OptSchema struct {
	RunSchema
	Converged bool   `json:"converged"`
	Steps     int    `json:"nsteps"`
	NFrames   int    `json:"nframes,omitempty"`
	TrajFile  string `json:"trajectory_file,omitempty"`
}

//SummarizeOpt builds the document for a relaxation, counting the
//trajectory frames if the file is still readable.
func SummarizeOpt(name, dir string, input *htase.Atoms, rr *dyn.RelaxResult, calc htase.Calculator) *OptSchema {
	doc := &OptSchema{
		RunSchema: *SummarizeRun(name, dir, input, rr.Atoms, rr.Results, calc),
		Converged: rr.Converged,
		Steps:     rr.Steps,
		TrajFile:  rr.TrajFile,
	}
	if frames, err := dyn.ReadTraj(files.Zpath(rr.TrajFile)); err == nil {
		doc.NFrames = len(frames)
	}
	return doc
}

//DynSchema is the document for a molecular dynamics run.
type DynSchema struct {
	RunSchema
	Steps       int     `json:"nsteps"`
	TimestepFs  float64 `json:"timestep_fs"`
	Temperature float64 `json:"final_temperature"`
	TrajFile    string  `json:"trajectory_file,omitempty"`
}

//SummarizeMD builds the document for a dynamics run.
func SummarizeMD(name, dir string, input *htase.Atoms, mr *dyn.MDResult, timestepFs float64, calc htase.Calculator) *DynSchema {
	return &DynSchema{
		RunSchema:   *SummarizeRun(name, dir, input, mr.Atoms, mr.Results, calc),
		Steps:       mr.Steps,
		TimestepFs:  timestepFs,
		Temperature: mr.Atoms.Temperature(),
		TrajFile:    mr.TrajFile,
	}
}

//VibSchema is the document for a vibrational analysis. Imaginary
//frequencies are stored as negative numbers, the usual file convention
//for a format without complex values.
type VibSchema struct {
	RunSchema
	Frequencies []float64 `json:"frequencies"` //1/cm, imaginary as negative
	NImaginary  int       `json:"n_imaginary"`
	ZPE         float64   `json:"zpe"`
}

//SummarizeVib builds the document for a vibrational analysis.
func SummarizeVib(name, dir string, atoms *htase.Atoms, vr *vib.Result, calc htase.Calculator) *VibSchema {
	freqs := make([]float64, len(vr.Frequencies))
	for i, f := range vr.Frequencies {
		if imag(f) != 0 {
			freqs[i] = -imag(f)
		} else {
			freqs[i] = real(f)
		}
	}
	return &VibSchema{
		RunSchema:   *SummarizeRun(name, dir, nil, atoms, nil, calc),
		Frequencies: freqs,
		NImaginary:  vr.NImaginary(),
		ZPE:         vr.ZPE(),
	}
}

//ThermoSchema is the document for an ideal-gas thermochemistry
//evaluation at one temperature and pressure.
type ThermoSchema struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"`
	ZPE         float64 `json:"zpe"`
	Enthalpy    float64 `json:"enthalpy"`
	Entropy     float64 `json:"entropy"`
	Gibbs       float64 `json:"gibbs"`
}

//SummarizeThermo evaluates and records the thermochemistry.
func SummarizeThermo(name string, ig *thermo.IdealGas, temperatureK, pressurePa float64) *ThermoSchema {
	return &ThermoSchema{
		Name:        name,
		Temperature: temperatureK,
		Pressure:    pressurePa,
		ZPE:         ig.ZPE(),
		Enthalpy:    ig.Enthalpy(temperatureK),
		Entropy:     ig.Entropy(temperatureK, pressurePa),
		Gibbs:       ig.Gibbs(temperatureK, pressurePa),
	}
}

//WriteJSON stores any schema document as indented JSON.
func WriteJSON(path string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

//ReadJSON loads a schema document written by WriteJSON.
func ReadJSON(path string, doc interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, doc)
}
