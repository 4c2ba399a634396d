// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package stagingdir builds a directory tree in a temporary location and
// atomically moves it into place once it is complete.
package stagingdir

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// D manages a staging directory.
//
// While D is active, it resides in a temporary location. Once finished, D
// can either be committed or destroyed. On commit, it is atomically moved into
// its destination; on destroy, it is deleted along with all of its contents.
type D struct {
	// tempDir is the directory that the staging directory was created in.
	tempDir string

	// path is the path of the staging directory.
	path string
}

// New creates a new staging directory underneath of tempDir, which is created
// if it does not exist.
//
// Commit renames the staging directory, so tempDir should reside on the same
// filesystem as the eventual destination.
func New(tempDir, prefix string) (*D, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating temporary directory %q", tempDir)
	}

	stagingPath, err := os.MkdirTemp(tempDir, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "creating staging directory")
	}

	return &D{
		tempDir: tempDir,
		path:    stagingPath,
	}, nil
}

// Root returns the path of the staging directory.
func (sd *D) Root() string { return sd.path }

// Path builds a path relative to the staging directory from the provided
// components.
func (sd *D) Path(components ...string) string {
	if sd.path == "" {
		panic("staging directory is not active")
	}
	return filepath.Join(append([]string{sd.path}, components...)...)
}

// Destroy purges the staging directory and its contents.
//
// Destroy may be called after Commit, in which case it does nothing.
func (sd *D) Destroy() error {
	if sd.path == "" {
		return nil
	}

	if err := os.RemoveAll(sd.path); err != nil {
		return err
	}
	sd.path = ""
	return nil
}

// Commit finalizes the staging directory, atomically moving it to dest.
//
// If something already exists at dest, it is replaced.
func (sd *D) Commit(dest string) error {
	if sd.path == "" {
		return errors.New("invalid staging directory")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrapf(err, "creating parent of %q", dest)
	}

	// Move anything already at dest out of the way. It is moved under tempDir
	// rather than deleted in place, so that dest is never partially removed.
	if _, err := os.Lstat(dest); err == nil {
		killDir, err := os.MkdirTemp(sd.tempDir, "overwrite")
		if err != nil {
			return errors.Wrap(err, "create overwrite directory")
		}
		defer func() {
			_ = os.RemoveAll(killDir)
		}()

		if err := os.Rename(dest, filepath.Join(killDir, filepath.Base(dest))); err != nil {
			return errors.Wrapf(err, "moving existing %q aside", dest)
		}
	}

	if err := os.Rename(sd.path, dest); err != nil {
		return errors.Wrapf(err, "moving staging directory into place (%q => %q)", sd.path, dest)
	}
	sd.path = ""
	return nil
}
