// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package fsutil holds the filesystem primitives shared by placement and
// maintenance: atomic whole-file writes, no-clobber copies and bottom-up
// pruning of empty directories.
//
// Every write goes to a temporary sibling first and is renamed into place, so
// an interrupted run never leaves a half-written file under its final name.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrDestinationExists is returned by CopyFile when the target already exists.
var ErrDestinationExists = errors.New("destination file exists")

// FilePerm is the mode of files written into the catalog tree.
const FilePerm os.FileMode = 0o644

// DirPerm is the mode of directories created in the catalog tree.
const DirPerm os.FileMode = 0o755

// WriteFileAtomic writes path by calling write on a temporary file in the same
// directory, then renaming it over path.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	tmp = nil

	if err = os.Chmod(tmpName, FilePerm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists (any type).
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CopyFile copies src to dst without ever overwriting dst. An existing dst
// yields ErrDestinationExists and leaves both files untouched.
func CopyFile(src, dst string) (err error) {
	if Exists(dst) {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	dir, base := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpName)
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	tmp = nil
	if err = os.Chmod(tmpName, FilePerm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	// Link fails if dst appeared in the meantime, which keeps the copy no-clobber.
	if err = os.Link(tmpName, dst); err == nil {
		return nil
	}
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}
	// Filesystems without hard links fall back to a checked rename.
	if Exists(dst) {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}
	if err = os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename into %s: %w", dst, err)
	}
	return nil
}

// PruneEmptyDirs removes empty directories along rel, starting at the leaf and
// walking up towards root. It stops at the first directory that is missing or
// not empty and never removes root itself. The removed directories are
// returned in the order they were deleted.
func PruneEmptyDirs(root, rel string) ([]string, error) {
	rel = filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))
	if rel == "." || rel == "" {
		return nil, nil
	}
	if strings.HasPrefix(rel, "../") || rel == ".." || filepath.IsAbs(rel) {
		return nil, fmt.Errorf("relative path %q escapes %s", rel, root)
	}

	segments := strings.Split(rel, "/")
	var deleted []string
	for len(segments) > 0 {
		target := filepath.Join(append([]string{root}, segments...)...)

		entries, err := os.ReadDir(target)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return deleted, nil
			}
			return deleted, fmt.Errorf("read %s: %w", target, err)
		}
		if len(entries) > 0 {
			return deleted, nil
		}

		if err := os.Remove(target); err != nil {
			return deleted, fmt.Errorf("remove %s: %w", target, err)
		}
		deleted = append(deleted, target)
		segments = segments[:len(segments)-1]
	}
	return deleted, nil
}
