// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package placement

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MarkerFile is written by UFrame into a product directory when the request is done.
const MarkerFile = "status.txt"

// markerComplete must be the marker's entire first line.
const markerComplete = "complete"

// ErrNotFoundYet means the product directory has no completion marker yet, or
// the marker does not say complete. The entry is re-queued.
var ErrNotFoundYet = errors.New("request not completed yet")

// checkMarker reads the product directory's completion marker.
func checkMarker(productDir string) error {
	path := filepath.Join(productDir, MarkerFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s missing", ErrNotFoundYet, path)
	}
	if err != nil {
		return err
	}

	first, _, _ := strings.Cut(string(data), "\n")
	first = strings.TrimRight(first, "\r")
	if first != markerComplete {
		return fmt.Errorf("%w: %s says %q", ErrNotFoundYet, path, first)
	}
	return nil
}

// findProductFiles returns the NetCDF files for stream in productDir and in
// its immediate sub-directories, sorted. UFrame shards output into numbered
// sub-directories.
func findProductFiles(productDir, stream string) ([]string, error) {
	match := func(name string) bool {
		return strings.HasSuffix(name, ".nc") && strings.Contains(name, stream)
	}

	entries, err := os.ReadDir(productDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		full := filepath.Join(productDir, e.Name())
		if e.Type().IsRegular() {
			if match(e.Name()) {
				files = append(files, full)
			}
			continue
		}
		if !e.IsDir() {
			continue
		}

		sub, err := os.ReadDir(full)
		if err != nil {
			return nil, err
		}
		for _, s := range sub {
			if s.Type().IsRegular() && match(s.Name()) {
				files = append(files, filepath.Join(full, s.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// pruneTree removes every empty directory under and including dir, deepest
// first. Non-empty directories are left alone.
func pruneTree(dir string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	var removed []string
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(d); err != nil {
			return removed, err
		}
		removed = append(removed, d)
	}
	return removed, nil
}
