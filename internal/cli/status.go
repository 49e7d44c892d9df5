// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jeranaias/jeeves/internal/detect"
	"github.com/jeranaias/jeeves/internal/offline"
	"github.com/jeranaias/jeeves/internal/router"
)

// =============================================================================
// STATUS COMMAND
// =============================================================================

// StatusOutput is the payload of the status command.
type StatusOutput struct {
	Host      HostStatus       `json:"host"`
	Engine    EngineStatus     `json:"engine"`
	Mode      string           `json:"mode"`
	Offline   bool             `json:"offline"`
	Providers []ProviderStatus `json:"providers"`
	Stats     router.Stats     `json:"stats"`
}

// HostStatus summarizes detected hardware.
type HostStatus struct {
	Summary  string `json:"summary"`
	NumCPU   int    `json:"num_cpu"`
	MemoryMB int    `json:"memory_mb"`
	Threads  int    `json:"threads"`
}

// EngineStatus describes the on-device engine.
type EngineStatus struct {
	State      string `json:"state"`
	Stub       bool   `json:"stub"`
	ModelPath  string `json:"model_path,omitempty"`
	Family     string `json:"family,omitempty"`
	EstimateMB int    `json:"estimate_mb,omitempty"`
	Fits       bool   `json:"fits"`
	LoadMs     int64  `json:"load_ms,omitempty"`
}

// ProviderStatus is one tier's readiness.
type ProviderStatus struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
	Ops       string `json:"ops"`
}

// HandleStatus reports what the initialized stack has ready.
func HandleStatus(out Output, s *Stack) error {
	return out.Emit("status", func() (any, error) {
		return collectStatus(s), nil
	}, func(w io.Writer, data any) {
		renderStatus(w, data.(*StatusOutput))
	})
}

func collectStatus(s *Stack) *StatusOutput {
	cfg := s.Config
	eng := s.OnDevice.Engine()
	m := eng.Metrics()

	st := &StatusOutput{
		Host: HostStatus{
			Summary:  s.Host.String(),
			NumCPU:   s.Host.NumCPU,
			MemoryMB: s.Host.MemoryMB,
			Threads:  s.Threads(),
		},
		Engine: EngineStatus{
			State:     eng.State().String(),
			Stub:      eng.IsStub(),
			ModelPath: cfg.Engine.ModelPath,
			LoadMs:    m.LoadTime.Milliseconds(),
			Fits:      true,
		},
		Mode:    s.Router.Mode().String(),
		Offline: offline.IsOfflineMode(),
		Stats:   s.Router.Stats(),
	}
	if path := cfg.Engine.ModelPath; path != "" {
		id := filepath.Base(path)
		st.Engine.Family = string(detect.ModelFamily(id))
		st.Engine.EstimateMB = detect.EstimateMemoryMB(id, cfg.Engine.ContextSize)
		if s.Host.MemoryMB > 0 {
			st.Engine.Fits = detect.WillModelFit(id, cfg.Engine.ContextSize, s.Host.MemoryMB)
		}
	}
	for _, p := range s.Router.Providers() {
		st.Providers = append(st.Providers, ProviderStatus{
			ID:        p.ID(),
			Available: p.Availability().Get(),
			Ops:       p.Capabilities().String(),
		})
	}
	return st
}

func renderStatus(w io.Writer, st *StatusOutput) {
	title := "jeeves status"
	if badge := offline.StatusBadge(); badge != "" {
		title += " " + badge
	}
	fmt.Fprintln(w, TitleStyle.Render(title))
	fmt.Fprintln(w, RenderSeparator(50))

	fmt.Fprintln(w, SectionStyle.Render("Host"))
	fmt.Fprintln(w, RenderField("CPU", st.Host.Summary))
	fmt.Fprintln(w, RenderField("Threads", fmt.Sprintf("%d", st.Host.Threads)))

	fmt.Fprintln(w, SectionStyle.Render("Engine"))
	engineState := "ok"
	switch {
	case st.Engine.Stub:
		engineState = "stub"
	case st.Engine.State != "model_loaded":
		engineState = "warn"
	}
	fmt.Fprintln(w, RenderField("State", RenderStatus(engineState)+" "+st.Engine.State))
	if st.Engine.ModelPath != "" {
		fmt.Fprintln(w, RenderField("Model", st.Engine.ModelPath))
		fmt.Fprintln(w, RenderField("Family", st.Engine.Family))
		fit := fmt.Sprintf("~%d MB", st.Engine.EstimateMB)
		if !st.Engine.Fits {
			fit = WarningStyle.Render(fit + " (may not fit)")
		}
		fmt.Fprintln(w, RenderField("Memory", fit))
	} else {
		fmt.Fprintln(w, RenderField("Model", DimStyle.Render("not configured")))
	}

	fmt.Fprintln(w, SectionStyle.Render("Routing"))
	fmt.Fprintln(w, RenderField("Mode", st.Mode))
	for _, p := range st.Providers {
		state := "unavailable"
		if p.Available {
			state = "ready"
		}
		fmt.Fprintln(w, RenderField(p.ID, RenderStatus(state)+" "+DimStyle.Render(p.Ops)))
	}
}
