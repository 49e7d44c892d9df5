// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ai

import (
	"context"
	"strings"
)

// Provider is a single inference tier.
//
// Complete must not panic and must always return a non-nil *Response.
// Implementations may serialize calls internally; only single-call
// correctness is guaranteed.
type Provider interface {
	// ID is the stable registry key of the provider.
	ID() string

	// Capabilities reports which operations the provider can answer.
	Capabilities() Capabilities

	// Availability is the observable readiness flag.
	Availability() *Availability

	// Complete answers a request.
	Complete(ctx context.Context, req *Request) *Response

	// Initialize prepares the provider. It is safe to call more than once.
	Initialize(ctx context.Context) error

	// Release frees any resources held by the provider.
	Release() error
}

// Streamer is implemented by providers that can emit incremental output.
type Streamer interface {
	// Stream returns a finite channel that is closed after the final chunk.
	// The last chunk has Done set or a non-nil Err.
	Stream(ctx context.Context, req *Request) (<-chan StreamChunk, error)
}

// StreamChunk is one piece of streamed output.
type StreamChunk struct {
	Text string
	Done bool
	Err  error

	// Fallback marks a chunk carrying the rule answer after a model stream
	// failed; text streamed before it is incomplete.
	Fallback bool
}

// =============================================================================
// CAPABILITIES
// =============================================================================

// Capabilities is a bit set over Operation.
type Capabilities uint32

// CapabilitiesOf builds a set from the given operations.
func CapabilitiesOf(ops ...Operation) Capabilities {
	var c Capabilities
	for _, op := range ops {
		c = c.With(op)
	}
	return c
}

// AllCapabilities is the set of every defined operation.
func AllCapabilities() Capabilities {
	return CapabilitiesOf(AllOperations()...)
}

// Has reports whether op is in the set.
func (c Capabilities) Has(op Operation) bool {
	if !op.Valid() {
		return false
	}
	return c&(1<<uint(op)) != 0
}

// With returns the set plus op.
func (c Capabilities) With(op Operation) Capabilities {
	if !op.Valid() {
		return c
	}
	return c | 1<<uint(op)
}

// Union returns the set of operations in either c or o.
func (c Capabilities) Union(o Capabilities) Capabilities {
	return c | o
}

// Operations lists the members in declaration order.
func (c Capabilities) Operations() []Operation {
	var ops []Operation
	for _, op := range AllOperations() {
		if c.Has(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

func (c Capabilities) String() string {
	ops := c.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return "[" + strings.Join(names, ",") + "]"
}
