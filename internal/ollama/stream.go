// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 1 << 20

// StreamReader parses a newline-delimited JSON generate stream.
type StreamReader struct {
	scanner     *bufio.Scanner
	accumulator strings.Builder
	pieces      int
	final       *GenerateResponse
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &StreamReader{scanner: sc}
}

// Process reads the stream and calls callback for each object. Malformed
// lines are skipped. An in-band error object ends the stream with an error.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return &ClientError{Type: ErrTypeTimeout, Message: "stream cancelled", Cause: err}
		}
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk GenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: chunk.Error}
		}
		if chunk.Response != "" {
			s.accumulator.WriteString(chunk.Response)
			s.pieces++
		}
		callback(chunk)
		if chunk.Done {
			s.final = &chunk
			return nil
		}
	}
	if err := s.scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
	}
	return nil
}

// Text returns everything received so far.
func (s *StreamReader) Text() string { return s.accumulator.String() }

// Pieces returns the number of non-empty pieces received.
func (s *StreamReader) Pieces() int { return s.pieces }

// Final returns the closing object, or nil if the stream ended early.
func (s *StreamReader) Final() *GenerateResponse { return s.final }
