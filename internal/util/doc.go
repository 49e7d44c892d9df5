// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across jeeves packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateRunes: UTF-8 safe truncation with ellipsis, for log lines
//   - TruncateWidth, PadWidth: column-aware truncation for terminal tables
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	log.Printf("ROUTING | input=%q", util.TruncateRunes(req.Input, 60))
package util
