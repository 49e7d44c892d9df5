// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline keeps inference on the device.
//
// Offline mode is on by default. While it is on, the only network peer a
// provider may talk to is a daemon on the loopback interface; the secondary
// tier validates its base URL here before every connection.
//
// # Usage
//
//	if err := offline.ValidateURL(baseURL); err != nil {
//		return err
//	}
package offline
