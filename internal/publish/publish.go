// Package publish copies run artifacts to their final destination.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Publisher stores the file at path under key.
type Publisher interface {
	Put(ctx context.Context, key, path string) error
	// Location returns a human readable location of key.
	Location(key string) string
}

// Dir publishes artifacts by copying them under a local directory.
type Dir struct {
	Root string
}

func (d Dir) Location(key string) string {
	return filepath.Join(d.Root, filepath.FromSlash(key))
}

func (d Dir) Put(ctx context.Context, key, path string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := d.Location(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	fp, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(fp, src); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// checkKey rejects keys that would escape the publisher root.
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "" {
			return fmt.Errorf("invalid key %q", key)
		}
	}
	return nil
}

// All publishes every file in paths under prefix/<base name> and returns the
// locations written.
func All(ctx context.Context, p Publisher, prefix string, paths ...string) ([]string, error) {
	locs := make([]string, 0, len(paths))
	for _, path := range paths {
		key := filepath.Base(path)
		if prefix != "" {
			key = strings.TrimSuffix(prefix, "/") + "/" + key
		}
		if err := p.Put(ctx, key, path); err != nil {
			return locs, fmt.Errorf("publishing %s: %w", path, err)
		}
		locs = append(locs, p.Location(key))
	}
	return locs, nil
}
