// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect provides host capability detection and model file inspection
// for on-device inference.
//
// # Key Types
//
//   - HostInfo: CPU count, SIMD features and system memory
//   - Family: prompt format family inferred from a model id or file name
//
// # Model Names
//
// ModelFamily, ParamCount and Quantization read only the file name, so
// "/models/Phi-3-mini-4k-instruct-q4.gguf" yields phi3, 3.8 and Q4.
//
// # Usage
//
//	host := detect.DetectHostCached()
//	threads := detect.RecommendThreads(host)
//	fam := detect.ModelFamily(cfg.Engine.ModelPath)
//	if !detect.WillModelFit(cfg.Engine.ModelPath, 2048, host.MemoryMB) {
//		log.Printf("ENGINE | model may not fit in %d MB", host.MemoryMB)
//	}
package detect
