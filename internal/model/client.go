// ABOUTME: ModelClient contract shared by the chat service and reasoning scheduler
// ABOUTME: Defines the error taxonomy surfaced by model call failures

package model

import (
	"context"
	"errors"

	"github.com/2389/ponder/internal/session"
)

// Model call failure taxonomy. All of these abort the current turn
// without mutating session state.
var (
	// ErrRateLimited is returned when the shared gate or the upstream
	// service throttles the request past the bounded wait.
	ErrRateLimited = errors.New("model request rate limited")
	// ErrTimeout is returned when the request deadline expires.
	ErrTimeout = errors.New("model request timed out")
	// ErrUpstream is returned for model service failures.
	ErrUpstream = errors.New("model service error")
	// ErrContentPolicy is returned when the service refuses the request.
	ErrContentPolicy = errors.New("content policy violation")
)

// Client performs one inference call against the hosted model.
//
// The context turns are sent in order; a non-empty directive rides
// along as the final user message. Implementations are shared across
// all users and must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, turns []session.Turn, directive string) (string, error)
}
