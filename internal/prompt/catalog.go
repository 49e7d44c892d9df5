// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"

	"github.com/jeranaias/jeeves/internal/detect"
)

// =============================================================================
// TEMPLATE CATALOG
// =============================================================================

// Template holds the turn delimiters of one model family. The rendered prompt
// is System + system text + User + user text + Assistant.
type Template struct {
	Family    detect.Family
	System    string
	User      string
	Assistant string

	// MergeSystem folds the system text into the user turn for families
	// without a system role.
	MergeSystem bool
}

var catalog = map[detect.Family]Template{
	detect.FamilyPhi3: {
		Family:    detect.FamilyPhi3,
		System:    "<|system|>\n",
		User:      "<|end|>\n<|user|>\n",
		Assistant: "<|end|>\n<|assistant|>\n",
	},
	detect.FamilyChatML: {
		Family:    detect.FamilyChatML,
		System:    "<|im_start|>system\n",
		User:      "<|im_end|>\n<|im_start|>user\n",
		Assistant: "<|im_end|>\n<|im_start|>assistant\n",
	},
	detect.FamilyLlama3: {
		Family:    detect.FamilyLlama3,
		System:    "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n\n",
		User:      "<|eot_id|><|start_header_id|>user<|end_header_id|>\n\n",
		Assistant: "<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n\n",
	},
	detect.FamilyGemma: {
		Family:      detect.FamilyGemma,
		User:        "<start_of_turn>user\n",
		Assistant:   "<end_of_turn>\n<start_of_turn>model\n",
		MergeSystem: true,
	},
	detect.FamilyMistral: {
		Family:      detect.FamilyMistral,
		User:        "[INST] ",
		Assistant:   " [/INST]",
		MergeSystem: true,
	},
	detect.FamilyPlain: {
		Family:      detect.FamilyPlain,
		User:        "",
		Assistant:   "\n\nResponse:\n",
		MergeSystem: true,
	},
}

// Lookup returns the template for a model id or model file path. Unknown
// models get the plain template.
func Lookup(modelID string) Template {
	return ForFamily(detect.ModelFamily(modelID))
}

// ForFamily returns the template of a family, or the plain template.
func ForFamily(f detect.Family) Template {
	if t, ok := catalog[f]; ok {
		return t
	}
	return catalog[detect.FamilyPlain]
}

// Wrap places system and user text between the template delimiters.
func (t Template) Wrap(system, user string) string {
	var b strings.Builder
	if t.MergeSystem {
		b.WriteString(t.User)
		if system != "" {
			b.WriteString(system)
			b.WriteString("\n\n")
		}
		b.WriteString(user)
		b.WriteString(t.Assistant)
		return b.String()
	}
	b.WriteString(t.System)
	b.WriteString(system)
	b.WriteString(t.User)
	b.WriteString(user)
	b.WriteString(t.Assistant)
	return b.String()
}
