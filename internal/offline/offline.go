// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNonLocalhost is returned for a non-loopback host while offline.
	ErrNonLocalhost = errors.New("offline: only loopback hosts are reachable")

	// ErrInvalidURLScheme is returned for anything but http and https.
	ErrInvalidURLScheme = errors.New("offline: only http and https schemes are allowed")

	// ErrMalformedURL is returned when the URL cannot be parsed or has no host.
	ErrMalformedURL = errors.New("offline: malformed URL")
)

// =============================================================================
// MODE
// =============================================================================

// offlineMode is on from process start.
var offlineMode atomic.Bool

func init() { offlineMode.Store(true) }

// SetOfflineMode enables or disables loopback enforcement process-wide.
func SetOfflineMode(enabled bool) { offlineMode.Store(enabled) }

// IsOfflineMode reports whether loopback enforcement is active.
func IsOfflineMode() bool { return offlineMode.Load() }

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost reports whether host (optionally with a port or IPv6
// brackets) names the loopback interface.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks rawURL for the secondary tier. The scheme is always
// checked; the host must be loopback while offline mode is on.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ErrMalformedURL
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return ErrInvalidURLScheme
	}
	if IsOfflineMode() && !IsLocalhost(parsed.Hostname()) {
		return ErrNonLocalhost
	}
	return nil
}

// StatusBadge returns "[OFFLINE]" while offline mode is on.
func StatusBadge() string {
	if IsOfflineMode() {
		return "[OFFLINE]"
	}
	return ""
}
