/*
 * files.go, part of htase.
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

//Package files holds the file-staging utilities the scratch-directory
//lifecycle is built on: copying (and decompressing) input files into a
//working directory, compressing outputs, recursive copy-back, unique
//job-directory naming and compressed-variant path resolution.
package files

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

var log = zap.NewNop().Sugar()

//SetLogger replaces the package logger. The default discards
//everything, which keeps the library quiet unless the caller opts in.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

//Zpath returns path if it exists; otherwise, the first of path.gz and
//path.zst that exists; otherwise path unchanged. Mirrors how external
//codes leave either plain or compressed outputs behind.
func Zpath(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	for _, ext := range []string{".gz", ".zst"} {
		if _, err := os.Stat(path + ext); err == nil {
			return path + ext
		}
	}
	return path
}

//openZ opens path, decompressing .gz and .zst transparently.
func openZ(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{gz, f}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{zr.IOReadCloser(), f}, nil
	default:
		return f, nil
	}
}

//CheckLogfile reports whether the logfile (or its compressed variant)
//contains the given string, case-insensitively.
func CheckLogfile(logfile, checkStr string) (bool, error) {
	r, err := openZ(Zpath(logfile))
	if err != nil {
		return false, err
	}
	defer r.Close()
	needle := strings.ToLower(checkStr)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if strings.Contains(strings.ToLower(scanner.Text()), needle) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

//CountInLogfile counts the lines of the logfile (or its compressed
//variant) containing the given string, case-insensitively.
func CountInLogfile(logfile, checkStr string) (int, error) {
	r, err := openZ(Zpath(logfile))
	if err != nil {
		return 0, err
	}
	defer r.Close()
	needle := strings.ToLower(checkStr)
	count := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if strings.Contains(strings.ToLower(scanner.Text()), needle) {
			count++
		}
	}
	return count, scanner.Err()
}

//CopyDecompress copies the named source files into the destination
//directory, decompressing .gz and .zst files on the way. A source that
//does not exist (in plain or compressed form) is a warning, not an
//error: staging continues without it.
func CopyDecompress(sources []string, destination string) error {
	for _, src := range sources {
		zp := Zpath(src)
		if _, err := os.Stat(zp); err != nil {
			log.Warnf("cannot find file to stage: %s", src)
			continue
		}
		base := filepath.Base(zp)
		base = strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".zst")
		in, err := openZ(zp)
		if err != nil {
			return fmt.Errorf("staging %s: %w", src, err)
		}
		out, err := os.Create(filepath.Join(destination, base))
		if err != nil {
			in.Close()
			return fmt.Errorf("staging %s: %w", src, err)
		}
		_, err = io.Copy(out, in)
		in.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("staging %s: %w", src, err)
		}
	}
	return nil
}

//MakeUniqueDir creates a directory with a collision-free name of the
//form htase-<UTC timestamp>-<uuid fragment> under base (or the current
//directory if base is empty) and returns its path. Uniqueness holds
//across concurrent processes sharing base.
func MakeUniqueDir(base string) (string, error) {
	name := fmt.Sprintf("htase-%s-%s",
		time.Now().UTC().Format("2006-01-02-15-04-05.000000"),
		uuid.NewString()[:8])
	dir := name
	if base != "" {
		dir = filepath.Join(base, name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

//FindRecentLogfile returns the most recently modified file in dir
//whose name contains one of the given extensions, or "" if none
//matches. For an exact match only, pass the full file name.
func FindRecentLogfile(dir string, exts []string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTime time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, ext := range exts {
			if !strings.Contains(e.Name(), ext) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(bestTime) {
				bestTime = info.ModTime()
				best = filepath.Join(dir, e.Name())
			}
		}
	}
	return best
}

//CopyR recursively copies the contents of src into dst, which must
//already exist. Existing files in dst are overwritten. Symlinks are
//skipped: the only symlink this library makes is the scratch-discovery
//link, which must never be dragged into the results directory.
func CopyR(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		_, err = io.Copy(out, in)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	})
}

//isCompressed sniffs the gzip and zstd magic bytes. Extension checks
//are not enough: trajectory files carry compressed content under a
//plain name.
func isCompressed(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [4]byte
	n, _ := io.ReadFull(f, magic[:])
	if n >= 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return true
	}
	return n >= 4 && magic[0] == 0x28 && magic[1] == 0xb5 && magic[2] == 0x2f && magic[3] == 0xfd
}

//GzipDir gzips every regular file in dir (non-recursively replacing
//each file with file.gz). Files that are already compressed, by name
//or by content, are left alone.
func GzipDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".gz") || strings.HasSuffix(name, ".zst") {
			continue
		}
		path := filepath.Join(dir, name)
		if isCompressed(path) {
			continue
		}
		if err := gzipFile(path); err != nil {
			return fmt.Errorf("gzipping %s: %w", path, err)
		}
	}
	return nil
}

func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	out, err := os.Create(path + ".gz")
	if err != nil {
		in.Close()
		return err
	}
	gz := gzip.NewWriter(out)
	_, err = io.Copy(gz, in)
	in.Close()
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Remove(path)
}

//DecompressFile undoes gzipFile for one file, leaving the plain file
//behind. Non-compressed paths are returned unchanged.
func DecompressFile(path string) (string, error) {
	if !strings.HasSuffix(path, ".gz") && !strings.HasSuffix(path, ".zst") {
		return path, nil
	}
	plain := strings.TrimSuffix(strings.TrimSuffix(path, ".gz"), ".zst")
	in, err := openZ(path)
	if err != nil {
		return "", err
	}
	out, err := os.Create(plain)
	if err != nil {
		in.Close()
		return "", err
	}
	_, err = io.Copy(out, in)
	in.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	return plain, os.Remove(path)
}

//URI returns a hostname-qualified path for a directory, so result
//documents written on different file servers stay distinguishable.
func URI(dir string) string {
	full, err := filepath.Abs(dir)
	if err != nil {
		full = dir
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%s", host, full)
}
