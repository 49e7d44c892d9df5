// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"context"
	"strings"
	"testing"
)

// =============================================================================
// MODEL NAME TESTS
// =============================================================================

func TestModelFamily(t *testing.T) {
	tests := []struct {
		id   string
		want Family
	}{
		{"/models/Phi-3-mini-4k-instruct-q4.gguf", FamilyPhi3},
		{"qwen2.5:0.5b", FamilyChatML},
		{"Qwen2.5-1.5B-Instruct-Q4_K_M.gguf", FamilyChatML},
		{"Llama-3.2-1B-Instruct-Q4_K_M.gguf", FamilyLlama3},
		{"gemma-2-2b-it-Q4_K_M.gguf", FamilyGemma},
		{"mistral-7b-instruct-v0.3.Q4_K_M.gguf", FamilyMistral},
		{"tinyllama-1.1b-chat.gguf", FamilyChatML},
		{"custom-model.bin", FamilyPlain},
		{"", FamilyPlain},
	}
	for _, tc := range tests {
		if got := ModelFamily(tc.id); got != tc.want {
			t.Errorf("ModelFamily(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestParamCount(t *testing.T) {
	tests := []struct {
		id   string
		want float64
	}{
		{"phi-3-mini-4k-instruct-q4.gguf", 3.8},
		{"qwen2.5:0.5b", 0.5},
		{"Llama-3.2-1B-Instruct-Q4_K_M.gguf", 1},
		{"mistral-7b-instruct", 7},
		{"tinyllama-1.1b-chat.gguf", 1.1},
		{"mystery.gguf", 0},
	}
	for _, tc := range tests {
		if got := ParamCount(tc.id); got != tc.want {
			t.Errorf("ParamCount(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestQuantization(t *testing.T) {
	tests := map[string]string{
		"Llama-3.2-1B-Instruct-Q4_K_M.gguf": "Q4_K_M",
		"phi-3-mini-4k-instruct-q4.gguf":    "Q4",
		"model-f16.gguf":                    "F16",
		"plain.gguf":                        "",
	}
	for id, want := range tests {
		if got := Quantization(id); got != want {
			t.Errorf("Quantization(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestEstimateMemory(t *testing.T) {
	small := EstimateMemoryMB("qwen2.5-0.5b-q4_k_m.gguf", 2048)
	large := EstimateMemoryMB("mistral-7b-q4_k_m.gguf", 2048)
	if small >= large {
		t.Errorf("0.5b estimate %d should be below 7b estimate %d", small, large)
	}
	if got := EstimateMemoryMB("unknown.gguf", 2048); got != 3072 {
		t.Errorf("unknown estimate = %d, want 3072", got)
	}
	if !WillModelFit("qwen2.5-0.5b-q4_k_m.gguf", 2048, 8192) {
		t.Error("0.5b model should fit in 8 GB")
	}
	if WillModelFit("mistral-7b-q4_k_m.gguf", 2048, 1024) {
		t.Error("7b model should not fit in 1 GB")
	}
}

// =============================================================================
// HOST TESTS
// =============================================================================

func TestParseMeminfo(t *testing.T) {
	data := "MemTotal:       16318024 kB\nMemFree:         1234 kB\n"
	if got := parseMeminfo(data); got != 15935 {
		t.Errorf("parseMeminfo = %d, want 15935", got)
	}
	if got := parseMeminfo("garbage"); got != 0 {
		t.Errorf("parseMeminfo(garbage) = %d, want 0", got)
	}
}

func TestRecommendThreads(t *testing.T) {
	tests := []struct {
		host *HostInfo
		want int
	}{
		{nil, 1},
		{&HostInfo{NumCPU: 1}, 1},
		{&HostInfo{NumCPU: 4, HasAVX2: true}, 4},
		{&HostInfo{NumCPU: 4}, 3},
		{&HostInfo{NumCPU: 8, HasNEON: true}, 4},
		{&HostInfo{NumCPU: 64, HasAVX2: true}, 8},
	}
	for _, tc := range tests {
		if got := RecommendThreads(tc.host); got != tc.want {
			t.Errorf("RecommendThreads(%+v) = %d, want %d", tc.host, got, tc.want)
		}
	}
}

func TestDetectHost(t *testing.T) {
	h := DetectHost(context.Background())
	if h.NumCPU < 1 {
		t.Errorf("NumCPU = %d, want >= 1", h.NumCPU)
	}
	if !strings.Contains(h.String(), "cpus") {
		t.Errorf("String() = %q", h.String())
	}

	ClearHostCache()
	a := DetectHostCached()
	b := DetectHostCached()
	if a != b {
		t.Error("DetectHostCached should return the cached pointer")
	}
}
