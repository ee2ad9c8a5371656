// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package catalogtree exports a directory tree, usually the THREDDS root, as
// nested JSON nodes.
package catalogtree

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Node types.
const (
	TypeDirectory = "directory"
	TypeFile      = "file"
)

// Node is one entry of the tree. Files carry an empty, non-nil Children list
// so every node has the same shape.
type Node struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Children []Node `json:"children"`
}

// Count returns the number of directories and files below and including n.
func (n *Node) Count() (dirs, files int) {
	if n.Type == TypeFile {
		return 0, 1
	}
	dirs = 1
	for i := range n.Children {
		d, f := n.Children[i].Count()
		dirs += d
		files += f
	}
	return dirs, files
}

// Build walks root and returns its tree. Children are sorted by name.
// Symbolic links are reported as files and not followed.
func Build(ctx context.Context, root string) (*Node, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	n, err := build(ctx, root, info)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func build(ctx context.Context, path string, info os.FileInfo) (Node, error) {
	n := Node{Name: filepath.Base(path), Type: TypeFile, Children: []Node{}}
	if !info.IsDir() {
		return n, nil
	}
	if err := ctx.Err(); err != nil {
		return Node{}, err
	}

	n.Type = TypeDirectory
	entries, err := os.ReadDir(path)
	if err != nil {
		return Node{}, fmt.Errorf("read %s: %w", path, err)
	}
	for _, e := range entries {
		childInfo, err := e.Info()
		if err != nil {
			return Node{}, fmt.Errorf("stat %s: %w", filepath.Join(path, e.Name()), err)
		}
		child, err := build(ctx, filepath.Join(path, e.Name()), childInfo)
		if err != nil {
			return Node{}, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// WriteJSON encodes the tree to w, indented when indent is set.
func (n *Node) WriteJSON(w io.Writer, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(n)
}
