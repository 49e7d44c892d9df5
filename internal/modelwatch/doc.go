// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modelwatch notices when the configured model file is created or
// replaced on disk, so the on-device tier can reload it.
//
// Writes are debounced: a large model copied in place produces many write
// events but a single callback once the file goes quiet.
//
// # Usage
//
//	w, err := modelwatch.New(cfg.Engine.ModelPath, 0, func(path string) {
//	    provider.LoadModel(path)
//	})
//	if err != nil {
//	    return err
//	}
//	if err := w.Watch(); err != nil {
//	    return err
//	}
//	defer w.Close()
package modelwatch
