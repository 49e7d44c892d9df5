// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ai

import "time"

// Route records which path the router took to produce a response.
type Route string

const (
	RouteNone       Route = ""
	RouteRuleDirect Route = "rule_direct"
	RouteEscalated  Route = "escalated"
	RouteFallback   Route = "fallback"
	RouteModelOnly  Route = "model_only"
)

// Metadata describes how a response was produced.
type Metadata struct {
	ProviderID       string        `json:"provider_id"`
	ModelID          string        `json:"model_id,omitempty"`
	Latency          time.Duration `json:"latency"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	FromRuleBased    bool          `json:"from_rule_based"`
	IsLLMFallback    bool          `json:"is_llm_fallback"`
	Route            Route         `json:"route,omitempty"`
}

// Response is what every provider returns from Complete. It is never nil.
// On success Result is set and Error is nil; on failure the reverse.
type Response struct {
	Success   bool      `json:"success"`
	RequestID string    `json:"request_id"`
	Result    Result    `json:"result,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// Succeed builds a successful response, normalizing the result's confidence.
func Succeed(req *Request, providerID string, result Result) *Response {
	result.Normalize()
	return &Response{
		Success:   true,
		RequestID: requestID(req),
		Result:    result,
		Metadata:  Metadata{ProviderID: providerID},
	}
}

// Fail builds a failed response from any error. Errors without a code are
// reported as GENERATION_FAILED.
func Fail(req *Request, providerID string, err error) *Response {
	e := AsError(err, CodeGenerationFailed)
	if e == nil {
		e = ErrGenerationFailed
	}
	return &Response{
		Success:   false,
		RequestID: requestID(req),
		Error:     e,
		ErrorCode: e.Code,
		Metadata:  Metadata{ProviderID: providerID},
	}
}

// Confidence returns the result confidence, or 0 for failed responses.
func (r *Response) Confidence() float64 {
	if r == nil || !r.Success || r.Result == nil {
		return 0
	}
	return ClampConfidence(r.Result.GetConfidence())
}

// Err returns the typed error as a plain error, nil on success.
func (r *Response) Err() error {
	if r == nil {
		return ErrGenerationFailed
	}
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// Classification returns the priority classification carried by the
// response, if any.
func (r *Response) Classification() (*PriorityClassification, bool) {
	if r == nil || r.Result == nil {
		return nil, false
	}
	pc, ok := r.Result.(*PriorityClassification)
	return pc, ok
}

func requestID(req *Request) string {
	if req == nil {
		return ""
	}
	return req.ID
}
