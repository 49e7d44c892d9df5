// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !llamacpp || !cgo

package engine

// nativeBackend reports that no native library was compiled in.
func nativeBackend() Backend {
	return nil
}
