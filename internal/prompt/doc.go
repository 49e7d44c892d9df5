// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt renders requests into model prompts and parses model output
// back into typed results.
//
// Templates are static data keyed by model family; the family is inferred
// from the model id or file name. Model output is decoded leniently: the JSON
// object is cut from the first '{' to the last '}', confidences may be
// numbers, strings or percentages, and quadrant names accept common aliases.
//
// # Usage
//
//	tmpl := prompt.Lookup("/models/Phi-3-mini-4k-instruct-q4.gguf")
//	text := prompt.Render(tmpl, req)
//	out := eng.Generate(ctx, text, params)
//	result, err := prompt.Parse(req.Operation, out.Text)
package prompt
