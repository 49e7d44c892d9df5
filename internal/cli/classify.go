// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/router"
	"github.com/jeranaias/jeeves/internal/tasks"
)

// =============================================================================
// CLASSIFY COMMAND
// =============================================================================

// ClassifyArgs holds the arguments of the classify command.
type ClassifyArgs struct {
	Operation ai.Operation
	Input     string

	// MinConfidence overrides the configured threshold when > 0
	MinConfidence float64

	// Stream prints model output as it is generated
	Stream bool
}

// ClassifyOutput is the payload of the classify command.
type ClassifyOutput struct {
	Operation  string       `json:"operation"`
	Success    bool         `json:"success"`
	ProviderID string       `json:"provider_id"`
	ModelID    string       `json:"model_id,omitempty"`
	Route      ai.Route     `json:"route,omitempty"`
	Confidence float64      `json:"confidence"`
	LatencyMs  int64        `json:"latency_ms"`
	Result     ai.Result    `json:"result,omitempty"`
	ErrorCode  ai.ErrorCode `json:"error_code,omitempty"`
	Error      string       `json:"error,omitempty"`
	Mode       string       `json:"mode"`
	Stats      router.Stats `json:"stats"`
}

// BuildRequest creates the request for args using the configured options.
func BuildRequest(s *Stack, args ClassifyArgs) *ai.Request {
	req := ai.NewRequest(args.Operation, args.Input)
	req.Options = s.Config.RequestOptions()
	if args.MinConfidence > 0 {
		req.Options.MinConfidence = args.MinConfidence
	}
	return req
}

// NewWorker creates the background worker over the router.
func NewWorker(s *Stack) *tasks.Worker {
	return tasks.NewWorker(s.Router, s.Config.TaskWorker())
}

// HandleClassify runs one request through the worker and prints the answer.
func HandleClassify(ctx context.Context, out Output, s *Stack, w *tasks.Worker, args ClassifyArgs) error {
	if args.Stream && !out.JSON {
		return streamClassify(ctx, out.W, s, args)
	}
	return out.Emit("classify", func() (any, error) {
		resp, err := w.Run(ctx, BuildRequest(s, args))
		if err != nil {
			return nil, err
		}
		return newClassifyOutput(args.Operation, resp, s.Router), nil
	}, func(w io.Writer, data any) {
		renderClassify(w, data.(*ClassifyOutput))
	})
}

func newClassifyOutput(op ai.Operation, resp *ai.Response, r *router.Router) *ClassifyOutput {
	o := &ClassifyOutput{
		Operation:  op.String(),
		Success:    resp.Success,
		ProviderID: resp.Metadata.ProviderID,
		ModelID:    resp.Metadata.ModelID,
		Route:      resp.Metadata.Route,
		Confidence: resp.Confidence(),
		LatencyMs:  resp.Metadata.Latency.Milliseconds(),
		Result:     resp.Result,
		ErrorCode:  resp.ErrorCode,
		Mode:       r.Mode().String(),
		Stats:      r.Stats(),
	}
	if !resp.Success {
		o.Error = resp.Err().Error()
	}
	return o
}

func renderClassify(w io.Writer, o *ClassifyOutput) {
	if !o.Success {
		fmt.Fprintf(w, "%s %s\n", RenderStatus("fail"), ErrorStyle.Render(o.Error))
		return
	}

	switch v := o.Result.(type) {
	case *ai.PriorityClassification:
		style, ok := quadrantStyles[string(v.Quadrant)]
		if !ok {
			style = ValueStyle
		}
		fmt.Fprintln(w, style.Render(string(v.Quadrant)))
		fmt.Fprintln(w, RenderField("Urgency", fmt.Sprintf("%.2f (urgent=%v)", v.UrgencyScore, v.IsUrgent)))
		fmt.Fprintln(w, RenderField("Importance", fmt.Sprintf("%.2f (important=%v)", v.ImportanceScore, v.IsImportant)))
		if v.Explanation != "" {
			fmt.Fprintln(w, RenderField("Why", v.Explanation))
		}
		if len(v.Signals) > 0 {
			fmt.Fprintln(w, RenderField("Signals", strings.Join(v.Signals, ", ")))
		}
	case *ai.ParsedTask:
		fmt.Fprintln(w, SectionStyle.Render(v.Title))
		if v.DueDate != nil {
			fmt.Fprintln(w, RenderField("Due", v.DueDate.Format("2006-01-02 15:04")))
		}
		if v.Quadrant != "" {
			fmt.Fprintln(w, RenderField("Quadrant", string(v.Quadrant)))
		}
		if len(v.Tags) > 0 {
			fmt.Fprintln(w, RenderField("Tags", strings.Join(v.Tags, ", ")))
		}
		if v.EstimatedMinutes > 0 {
			fmt.Fprintln(w, RenderField("Estimate", fmt.Sprintf("%d min", v.EstimatedMinutes)))
		}
	default:
		fmt.Fprintln(w, ai.ResultText(o.Result))
	}

	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("confidence=%.2f provider=%s route=%s %dms",
		o.Confidence, o.ProviderID, o.Route, o.LatencyMs)))
}

// streamClassify prints incremental output. Tiers that cannot stream
// deliver their answer as a single chunk; a rule answer that replaces a
// failed model stream is printed on its own line.
func streamClassify(ctx context.Context, w io.Writer, s *Stack, args ClassifyArgs) error {
	ch, err := s.Router.Stream(ctx, BuildRequest(s, args))
	if err != nil {
		return err
	}
	for chunk := range ch {
		if chunk.Err != nil {
			fmt.Fprintln(w)
			return chunk.Err
		}
		if chunk.Fallback {
			fmt.Fprintln(w)
			fmt.Fprint(w, WarningStyle.Render("[fallback] "))
		}
		fmt.Fprint(w, chunk.Text)
	}
	fmt.Fprintln(w)
	return nil
}
