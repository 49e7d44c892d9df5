// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// PERFORMANCE: Pre-compiled regex (compiled once at startup)
// =============================================================================

var (
	// "3.8b", "1.5b", "7b" anywhere in the name.
	paramRegex = regexp.MustCompile(`(?:^|[^a-z0-9.])(\d+(?:\.\d+)?)b(?:[^a-z]|$)`)

	// "phi-3-mini" style names carry no parameter count.
	sizeWordParams = []struct {
		word   string
		params float64
	}{
		{"phi-3-mini", 3.8},
		{"phi3-mini", 3.8},
		{"phi-3.5-mini", 3.8},
		{"tinyllama", 1.1},
	}

	quantRegex = regexp.MustCompile(`(?i)(iq\d_[a-z]+|q\d(?:_k)?(?:_[sml])?|q\d_\d|f16|f32|bf16)`)
)

// =============================================================================
// MODEL FAMILY
// =============================================================================

// Family is the prompt format a model was trained with.
type Family string

const (
	FamilyPhi3    Family = "phi3"
	FamilyChatML  Family = "chatml"
	FamilyLlama3  Family = "llama3"
	FamilyGemma   Family = "gemma"
	FamilyMistral Family = "mistral"
	FamilyPlain   Family = "plain"
)

// familyHints are checked in order; the first substring match wins.
var familyHints = []struct {
	needle string
	family Family
}{
	{"phi-3", FamilyPhi3},
	{"phi3", FamilyPhi3},
	{"phi-4", FamilyPhi3},
	{"qwen", FamilyChatML},
	{"smollm", FamilyChatML},
	{"tinyllama", FamilyChatML},
	{"chatml", FamilyChatML},
	{"llama-3", FamilyLlama3},
	{"llama3", FamilyLlama3},
	{"gemma", FamilyGemma},
	{"mistral", FamilyMistral},
	{"mixtral", FamilyMistral},
}

// modelName lower-cases the base name of a path or model id.
func modelName(modelID string) string {
	return strings.ToLower(filepath.Base(strings.TrimSpace(modelID)))
}

// ModelFamily infers the prompt family from a model file name or model id
// ("/models/Phi-3-mini-4k-instruct-q4.gguf", "qwen2.5:0.5b").
func ModelFamily(modelID string) Family {
	name := modelName(modelID)
	for _, h := range familyHints {
		if strings.Contains(name, h.needle) {
			return h.family
		}
	}
	return FamilyPlain
}

// ParamCount extracts the parameter count in billions, or 0 when unknown.
func ParamCount(modelID string) float64 {
	name := modelName(modelID)
	for _, sw := range sizeWordParams {
		if strings.Contains(name, sw.word) {
			return sw.params
		}
	}
	if m := paramRegex.FindStringSubmatch(name); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	return 0
}

// Quantization returns the quantization tag of a GGUF file name ("Q4_K_M"),
// or "" when none is present.
func Quantization(modelID string) string {
	m := quantRegex.FindString(filepath.Base(modelID))
	return strings.ToUpper(m)
}

// bytesPerParam approximates storage per parameter for a quantization.
func bytesPerParam(quant string) float64 {
	switch {
	case quant == "F32":
		return 4
	case quant == "F16" || quant == "BF16":
		return 2
	case strings.HasPrefix(quant, "Q8"):
		return 1.06
	case strings.HasPrefix(quant, "Q6"):
		return 0.82
	case strings.HasPrefix(quant, "Q5"):
		return 0.69
	case strings.HasPrefix(quant, "Q3"), strings.HasPrefix(quant, "IQ3"):
		return 0.44
	case strings.HasPrefix(quant, "Q2"), strings.HasPrefix(quant, "IQ2"):
		return 0.33
	default:
		// Q4_K_M, the common on-device choice.
		return 0.56
	}
}

// EstimateMemoryMB estimates resident memory for a model on CPU, including
// KV cache for contextSize tokens. Unknown sizes default to 3 GB.
func EstimateMemoryMB(modelID string, contextSize int) int {
	params := ParamCount(modelID)
	if params == 0 {
		return 3072
	}
	weightsGB := params * bytesPerParam(Quantization(modelID))
	// KV cache grows with context length and model width.
	kvMB := float64(contextSize) * params * 0.06
	return int(weightsGB*1024 + kvMB + 256)
}

// WillModelFit checks if a model fits in availableMB with a 20% safety buffer.
func WillModelFit(modelID string, contextSize, availableMB int) bool {
	need := int(float64(EstimateMemoryMB(modelID, contextSize)) * 1.2)
	return need <= availableMB
}
