// Package model provides the language model client and its shared gate.
//
// The Client interface takes a turn sequence plus an optional trailing
// directive and returns the model's text. The Anthropic implementation
// maps session turns onto the Messages API, lifting a leading system
// turn into the system prompt and folding the directive into the final
// user message.
//
// All calls pass through a process-wide Gate that combines a request
// rate limit with a concurrency cap. Acquisition waits up to a bounded
// timeout and then fails with ErrRateLimited, so one user's burst
// degrades into polite rejections instead of unbounded queueing.
//
// Failures are reduced to a small taxonomy (ErrRateLimited,
// ErrTimeout, ErrContentPolicy, ErrUpstream) that callers can map to
// user-facing messages without knowing API details.
package model
