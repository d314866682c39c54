// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

// Package report writes the results of a run to the output directory.
package report

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/jcodagnone/safires/fires"
)

// Output file names.
const (
	FileByCountry      = "fires_by_country.csv"
	FileHighConfidence = "high_confidence_fires.csv"
	FileNearBorder     = "fires_near_border.csv"
	FileMismatches     = "mismatches.csv"
	FileDistances      = "point_distances.csv"
	FileGeoJSON        = "fires.geojson"
	FileSummary        = "summary.xlsx"
)

// Writer creates output files under one directory. Files are first written
// to a staging directory next to their destination and only moved into place
// by Commit, so a failed run leaves no partial set of outputs behind. Without
// overwrite an existing destination is never touched.
type Writer struct {
	dir       string
	overwrite bool

	staging string
	// staged holds the names written since the last Commit or Abort, in
	// write order.
	staged []string
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string, overwrite bool) *Writer {
	return &Writer{dir: dir, overwrite: overwrite}
}

// Path returns the destination path of an output file.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Check verifies up front that every named destination can be written, so a
// run fails before doing any work rather than halfway through its outputs.
func (w *Writer) Check(names ...string) error {
	info, err := os.Stat(w.dir)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fires.NewOutputWriteError(w.dir, "cannot access output directory", err)
	case !info.IsDir():
		return fires.NewOutputWriteError(w.dir, "output path is not a directory", nil)
	}

	for _, name := range names {
		if err := w.checkDestination(w.Path(name)); err != nil {
			return err
		}
	}

	return nil
}

// checkDestination fails when path exists and may not be replaced.
func (w *Writer) checkDestination(path string) error {
	info, err := os.Lstat(path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fires.NewOutputWriteError(path, "cannot access destination", err)
	case !w.overwrite:
		return fires.NewOutputWriteError(path, "destination exists and overwrite is off", fs.ErrExist)
	case !info.Mode().IsRegular():
		return fires.NewOutputWriteError(path, "destination is not a regular file", nil)
	}

	return nil
}

func (w *Writer) create(name string) (*os.File, error) {
	if err := w.checkDestination(w.Path(name)); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fires.NewOutputWriteError(w.dir, "cannot create output directory", err)
	}

	if w.staging == "" {
		staging, err := os.MkdirTemp(w.dir, ".safires-")
		if err != nil {
			return nil, fires.NewOutputWriteError(w.dir, "cannot create staging directory", err)
		}

		w.staging = staging
	}

	path := filepath.Join(w.staging, name)

	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fires.NewOutputWriteError(w.Path(name), "cannot create destination", err)
	}

	return f, nil
}

// write stages name with fn's output. A failed write removes the partial file.
func (w *Writer) write(name string, fn func(io.Writer) error) error {
	f, err := w.create(name)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)

	err = fn(bw)
	if err == nil {
		err = bw.Flush()
	}

	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err == nil {
		w.staged = append(w.staged, name)

		return nil
	}

	if rerr := os.Remove(f.Name()); rerr != nil {
		err = errors.Join(err, rerr)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fires.NewOutputWriteError(w.Path(name), fmt.Sprintf("writing %s", name), err)
}

// Commit moves every staged file to its destination and returns the
// destination paths in write order. When a file cannot be moved, the files
// already moved by this call are removed along with the staging directory.
func (w *Writer) Commit() ([]string, error) {
	var paths []string

	for _, name := range w.staged {
		dest := w.Path(name)

		err := w.checkDestination(dest)
		if err == nil {
			if rerr := os.Rename(filepath.Join(w.staging, name), dest); rerr != nil {
				err = fires.NewOutputWriteError(dest, "cannot move output into place", rerr)
			}
		}

		if err != nil {
			for _, p := range paths {
				if rerr := os.Remove(p); rerr != nil {
					log.Printf("Failed to remove %s: %v", p, rerr)
				}
			}

			return nil, errors.Join(err, w.Abort())
		}

		paths = append(paths, dest)
	}

	return paths, w.Abort()
}

// Abort discards every staged file.
func (w *Writer) Abort() error {
	staging := w.staging
	w.staging, w.staged = "", nil

	if staging == "" {
		return nil
	}

	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("removing staging directory: %w", err)
	}

	return nil
}
