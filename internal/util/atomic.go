// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to a temp file next to path, syncs it and
// renames it into place, so readers never observe a partial file. Missing
// parent directories are created.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("atomic write %s: mkdir: %w", path, err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(target)+"-")
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	write := func() error {
		_, err := tmp.Write(data)
		return err
	}
	steps := []struct {
		name string
		run  func() error
	}{
		{"write", write},
		{"sync", tmp.Sync},
		// Windows refuses to rename an open file.
		{"close", tmp.Close},
		{"chmod", func() error { return os.Chmod(tmp.Name(), perm) }},
		{"rename", func() error { return os.Rename(tmp.Name(), target) }},
	}
	for _, step := range steps {
		if err = step.run(); err != nil {
			return fmt.Errorf("atomic write %s: %s: %w", path, step.name, err)
		}
	}
	return nil
}
