// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/natefinch/atomic"
)

const (
	DefaultDirPerm  = 0755
	DefaultFilePerm = 0644
)

// IsExist returns true if the file name exists.
func IsExist(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}

// WriteFile writes data to a temp file in the same dir and renames it over filename,
// so that readers never observe a partially written file.
func WriteFile(filename string, data []byte) error {
	if err := atomic.WriteFile(filename, bytes.NewReader(data)); err != nil {
		return err
	}
	// New files get the temp file permissions.
	return os.Chmod(filename, DefaultFilePerm)
}

// ListDir returns sorted names of regular files in dir.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dir %v: %w", dir, err)
	}
	var names []string
	for _, ent := range entries {
		if ent.Type().IsRegular() {
			names = append(names, ent.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
