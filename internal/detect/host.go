// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/cpu"
)

// hostDetectTimeout bounds the external commands used for memory detection.
const hostDetectTimeout = 5 * time.Second

// =============================================================================
// HOST INFO
// =============================================================================

// HostInfo describes the CPU inference capabilities of this machine.
type HostInfo struct {
	OS        string
	Arch      string
	NumCPU    int
	MemoryMB  int
	HasAVX2   bool
	HasAVX512 bool
	HasFMA    bool
	HasNEON   bool
}

// String returns a one-line summary for logs and the CLI.
func (h *HostInfo) String() string {
	var feats []string
	if h.HasAVX2 {
		feats = append(feats, "avx2")
	}
	if h.HasAVX512 {
		feats = append(feats, "avx512")
	}
	if h.HasFMA {
		feats = append(feats, "fma")
	}
	if h.HasNEON {
		feats = append(feats, "neon")
	}
	if len(feats) == 0 {
		feats = append(feats, "none")
	}
	return fmt.Sprintf("%s/%s %d cpus, %d MB RAM, simd=%s",
		h.OS, h.Arch, h.NumCPU, h.MemoryMB, strings.Join(feats, ","))
}

// DetectHost probes CPU features and system memory.
func DetectHost(ctx context.Context) *HostInfo {
	ctx, cancel := context.WithTimeout(ctx, hostDetectTimeout)
	defer cancel()

	return &HostInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		MemoryMB:  systemMemoryMB(ctx),
		HasAVX2:   cpu.X86.HasAVX2,
		HasAVX512: cpu.X86.HasAVX512F,
		HasFMA:    cpu.X86.HasFMA,
		HasNEON:   cpu.ARM64.HasASIMD,
	}
}

var (
	hostCacheMu   sync.Mutex
	hostCache     *HostInfo
	hostCacheTime time.Time
)

// hostCacheDuration is how long a detection result stays fresh.
const hostCacheDuration = 5 * time.Minute

// DetectHostCached returns a cached HostInfo while it is fresh.
func DetectHostCached() *HostInfo {
	hostCacheMu.Lock()
	defer hostCacheMu.Unlock()

	if hostCache != nil && time.Since(hostCacheTime) < hostCacheDuration {
		return hostCache
	}
	hostCache = DetectHost(context.Background())
	hostCacheTime = time.Now()
	return hostCache
}

// ClearHostCache forces fresh detection on the next DetectHostCached call.
func ClearHostCache() {
	hostCacheMu.Lock()
	defer hostCacheMu.Unlock()
	hostCache = nil
	hostCacheTime = time.Time{}
}

// systemMemoryMB returns total RAM in MB, or 0 when it cannot be read.
func systemMemoryMB(ctx context.Context) int {
	switch runtime.GOOS {
	case "linux", "android":
		data, err := os.ReadFile("/proc/meminfo")
		if err != nil {
			return 0
		}
		return parseMeminfo(string(data))
	case "darwin":
		out, err := exec.CommandContext(ctx, "sysctl", "-n", "hw.memsize").Output()
		if err != nil {
			return 0
		}
		b, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
		if err != nil {
			return 0
		}
		return int(b / (1 << 20))
	case "windows":
		out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command",
			`[Math]::Round((Get-CimInstance Win32_ComputerSystem).TotalPhysicalMemory / 1MB, 0)`).Output()
		if err != nil {
			return 0
		}
		v, err := strconv.Atoi(strings.TrimSpace(string(out)))
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

// parseMeminfo reads MemTotal from /proc/meminfo content.
func parseMeminfo(data string) int {
	for _, line := range strings.Split(data, "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return 0
		}
		kb, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return 0
		}
		return int(kb / 1024)
	}
	return 0
}

// =============================================================================
// THREAD RECOMMENDATION
// =============================================================================

// RecommendThreads picks a llama.cpp thread count. Generation is memory-bound,
// so past the physical core count extra threads only add contention; half
// the logical CPUs approximates physical cores on SMT machines. Machines
// without wide SIMD get one fewer thread to leave room for the caller.
func RecommendThreads(h *HostInfo) int {
	if h == nil || h.NumCPU <= 0 {
		return 1
	}
	n := h.NumCPU
	if n > 4 {
		n /= 2
	}
	if !h.HasAVX2 && !h.HasNEON && n > 2 {
		n--
	}
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}
