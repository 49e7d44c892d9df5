// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the jeeves commands behind the cobra front end in
// cmd/jeeves.
//
// Each command is a Handle* function that takes an Output (human or --json)
// and the provider Stack. The stack is built once from configuration and
// holds the rule tier, the on-device tier, the optional Ollama secondary
// tier and the router over them.
//
// # Key Types
//
//   - Stack: every tier plus the router, built by NewStack
//   - Output: human vs JSON rendering, JSONResponse envelope
//
// # Commands
//
//   - classify: one request through the background worker
//   - run: one request per stdin line, optional model hot reload
//   - bench: labeled samples through selected providers
//   - history: past benchmark runs from SQLite
//   - status: host, engine and tier readiness
//   - config: show, get, set, keys, init, path
//
// # Usage
//
//	s, err := cli.NewStack(cfg)
//	if err := s.Initialize(ctx); err != nil { ... }
//	defer s.Close()
//	w := cli.NewWorker(s)
//	w.Start()
//	defer w.Stop()
//	err = cli.HandleClassify(ctx, cli.Output{W: os.Stdout}, s, w, cli.ClassifyArgs{
//	    Operation: ai.OpClassifyPriority,
//	    Input:     "Production server down",
//	})
package cli
