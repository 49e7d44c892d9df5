// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// JSONResponse is the envelope every command prints in --json mode.
type JSONResponse struct {
	// Success is false when the command itself failed
	Success bool `json:"success"`

	// Data holds the command-specific payload
	Data any `json:"data"`

	// Error is the failure message, null on success
	Error *string `json:"error"`

	// Timestamp is RFC3339 UTC
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response as indented JSON.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Output selects between human and JSON rendering for a command.
type Output struct {
	W    io.Writer
	JSON bool
}

// Emit runs handler. In JSON mode its data (or error) is wrapped in a
// JSONResponse; otherwise render prints the data. The handler error is
// returned in both modes.
func (o Output) Emit(command string, handler func() (any, error), render func(w io.Writer, data any)) error {
	data, err := handler()
	if o.JSON {
		resp := NewJSONResponse(command, data)
		if err != nil {
			resp = NewJSONErrorResponse(command, err)
		}
		if werr := resp.Write(o.W); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return err
	}
	if render != nil {
		render(o.W, data)
	}
	return nil
}

// Printf writes human output; it is silent in JSON mode.
func (o Output) Printf(format string, args ...any) {
	if o.JSON {
		return
	}
	fmt.Fprintf(o.W, format, args...)
}
