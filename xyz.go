/*
 * xyz.go, part of htase.
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

package htase

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
)

//XYZRead reads every frame of an (extended) XYZ stream. The comment
//line may carry a Lattice="ax ay az bx by bz cx cy cz" entry and a
//pbc="T T F" entry, which populate the cell of the returned
//structures. Plain XYZ files yield isolated molecules.
func XYZRead(r io.Reader) ([]*Atoms, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	var frames []*Atoms
	for {
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		natoms, err := strconv.Atoi(line)
		if err != nil {
			return nil, CError{msg: fmt.Sprintf("htase: ill-formatted XYZ: bad atom count line %q", line)}
		}
		if !scanner.Scan() {
			return nil, CError{msg: "htase: ill-formatted XYZ: truncated after atom count"}
		}
		comment := scanner.Text()
		symbols := make([]string, natoms)
		coords := make([]float64, natoms*3)
		for i := 0; i < natoms; i++ {
			if !scanner.Scan() {
				return nil, CError{msg: fmt.Sprintf("htase: ill-formatted XYZ: expected %d atoms, file ended at %d", natoms, i)}
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) < 4 {
				return nil, CError{msg: fmt.Sprintf("htase: ill-formatted XYZ: atom line %d has %d fields", i, len(fields))}
			}
			symbols[i] = fields[0]
			for k := 0; k < 3; k++ {
				coords[i*3+k], err = strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, CError{msg: fmt.Sprintf("htase: ill-formatted XYZ: atom line %d: %v", i, err)}
				}
			}
		}
		frame, err := FromSymbols(symbols, mat.NewDense(natoms, 3, coords))
		if err != nil {
			return nil, errDecorate(err, "XYZRead")
		}
		if err := applyComment(frame, comment); err != nil {
			return nil, errDecorate(err, "XYZRead")
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, errDecorate(err, "XYZRead")
	}
	if frames == nil {
		return nil, CError{msg: "htase: XYZRead: empty stream"}
	}
	return frames, nil
}

//applyComment parses the extended-XYZ key=value entries of a comment
//line into the frame. Unknown keys are kept in Info verbatim.
func applyComment(frame *Atoms, comment string) error {
	for _, kv := range splitKeyVals(comment) {
		switch strings.ToLower(kv[0]) {
		case "lattice":
			fields := strings.Fields(kv[1])
			if len(fields) != 9 {
				return CError{msg: fmt.Sprintf("htase: Lattice entry has %d values, want 9", len(fields))}
			}
			vals := make([]float64, 9)
			for i, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return CError{msg: "htase: bad Lattice entry: " + err.Error()}
				}
				vals[i] = v
			}
			pbc := frame.PBC()
			if !frame.AnyPBC() {
				pbc = [3]bool{true, true, true}
			}
			if err := frame.SetCell(mat.NewDense(3, 3, vals), pbc); err != nil {
				return err
			}
		case "pbc":
			var pbc [3]bool
			for i, f := range strings.Fields(kv[1]) {
				if i > 2 {
					break
				}
				pbc[i] = strings.EqualFold(f, "T") || strings.EqualFold(f, "true")
			}
			if frame.Cell() != nil {
				if err := frame.SetCell(frame.Cell(), pbc); err != nil {
					return err
				}
			}
		case "properties": //we only ever write species:S:1:pos:R:3
		default:
			frame.Info[kv[0]] = kv[1]
		}
	}
	return nil
}

//splitKeyVals splits `a=1 b="x y" c=2` into pairs, honoring double
//quotes.
func splitKeyVals(s string) [][2]string {
	var ret [][2]string
	var key, val strings.Builder
	inKey, inQuote := true, false
	flush := func() {
		if key.Len() > 0 {
			ret = append(ret, [2]string{key.String(), val.String()})
		}
		key.Reset()
		val.Reset()
		inKey = true
	}
	for _, c := range s {
		switch {
		case c == '"':
			inQuote = !inQuote
		case c == '=' && inKey && !inQuote:
			inKey = false
		case (c == ' ' || c == '\t') && !inQuote:
			flush()
		case inKey:
			key.WriteRune(c)
		default:
			val.WriteRune(c)
		}
	}
	flush()
	return ret
}

//XYZWrite writes one structure as extended XYZ. If the structure has a
//cell, Lattice and pbc entries go into the comment line.
func XYZWrite(w io.Writer, M *Atoms) error {
	if M == nil {
		panic(ErrNilAtoms)
	}
	if _, err := fmt.Fprintf(w, "%d\n", M.Len()); err != nil {
		return errDecorate(err, "XYZWrite")
	}
	comment := `Properties=species:S:1:pos:R:3`
	if cell := M.Cell(); cell != nil {
		lat := make([]string, 0, 9)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				lat = append(lat, strconv.FormatFloat(cell.At(i, j), 'f', 8, 64))
			}
		}
		pbc := M.PBC()
		tf := func(b bool) string {
			if b {
				return "T"
			}
			return "F"
		}
		comment = fmt.Sprintf(`Lattice="%s" %s pbc="%s %s %s"`,
			strings.Join(lat, " "), comment, tf(pbc[0]), tf(pbc[1]), tf(pbc[2]))
	}
	if _, err := fmt.Fprintf(w, "%s\n", comment); err != nil {
		return errDecorate(err, "XYZWrite")
	}
	for i := 0; i < M.Len(); i++ {
		x, y, z := M.Position(i)
		if _, err := fmt.Fprintf(w, "%-3s %18.10f %18.10f %18.10f\n", M.Atom(i).Symbol, x, y, z); err != nil {
			return errDecorate(err, "XYZWrite")
		}
	}
	return nil
}

//XYZWriteFile writes one structure to the named file, overwriting it.
func XYZWriteFile(name string, M *Atoms) error {
	f, err := os.Create(name)
	if err != nil {
		return errDecorate(err, "XYZWriteFile")
	}
	defer f.Close()
	return XYZWrite(f, M)
}

//XYZReadFile reads the named XYZ file and returns its LAST frame,
//which is what output-geometry refreshing wants: external codes append
//frames as an optimization proceeds. If the named file does not exist
//but a compressed variant (.gz or .zst) does, the variant is read
//through the matching decompressor.
func XYZReadFile(name string) (*Atoms, error) {
	r, closer, err := OpenDecompress(name)
	if err != nil {
		return nil, errDecorate(err, "XYZReadFile")
	}
	defer closer()
	frames, err := XYZRead(r)
	if err != nil {
		return nil, errDecorate(err, "XYZReadFile "+name)
	}
	return frames[len(frames)-1], nil
}

//OpenDecompress opens name, or its .gz or .zst variant if name itself
//does not exist, decompressing transparently. The returned closer
//must be called when done.
func OpenDecompress(name string) (io.Reader, func() error, error) {
	try := []struct {
		path string
		kind string
	}{
		{name, ""},
		{name + ".gz", "gz"},
		{name + ".zst", "zst"},
	}
	if strings.HasSuffix(name, ".gz") {
		try = []struct{ path, kind string }{{name, "gz"}}
	} else if strings.HasSuffix(name, ".zst") {
		try = []struct{ path, kind string }{{name, "zst"}}
	}
	for _, t := range try {
		f, err := os.Open(t.path)
		if err != nil {
			continue
		}
		switch t.kind {
		case "gz":
			gz, err := gzip.NewReader(f)
			if err != nil {
				f.Close()
				return nil, nil, errDecorate(err, "OpenDecompress")
			}
			return gz, func() error { gz.Close(); return f.Close() }, nil
		case "zst":
			zr, err := zstd.NewReader(f)
			if err != nil {
				f.Close()
				return nil, nil, errDecorate(err, "OpenDecompress")
			}
			return zr.IOReadCloser(), func() error { zr.Close(); return f.Close() }, nil
		default:
			return f, f.Close, nil
		}
	}
	return nil, nil, CError{msg: fmt.Sprintf("htase: cannot find %s or a compressed variant of it", name)}
}
