// ABOUTME: Budget-forced reasoning scheduler for scaling-mode turns
// ABOUTME: Runs up to effort continuation calls, then forces a final answer

package scaling

import (
	"context"
	"log/slog"
	"strings"

	"github.com/2389/ponder/internal/model"
	"github.com/2389/ponder/internal/session"
)

// AnswerMarker is the termination contract between the scheduler and
// the model: the first directive instructs the model to end its reply
// with this literal once reasoning is complete. Detection is a
// case-sensitive substring match; the marker is stripped from the
// surfaced answer.
const AnswerMarker = "ANSWER_COMPLETE"

const (
	firstDirective = "Think step by step. When your reasoning is complete, end your reply with the line " + AnswerMarker + "."
	nextDirective  = "Continue."
	finalDirective = "Stop reasoning and give your final answer now."
)

// Attempt is one reasoning iteration's output. Attempts live only for
// the duration of a single Answer call and are never persisted.
type Attempt struct {
	Seq  int
	Text string
}

// Scheduler executes the budget-forced reasoning protocol. Iterations
// are strictly sequential: each continuation depends on the prior
// response.
type Scheduler struct {
	client model.Client
	logger *slog.Logger
}

// NewScheduler creates a scheduler over the shared model client.
func NewScheduler(client model.Client, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		client: client,
		logger: logger.With("component", "scaling"),
	}
}

// Answer produces the final answer for one scaling-mode turn given the
// session context and the user's effort budget.
//
// effort == 0 is the defined zero-budget policy: a single direct
// request with no directive. Otherwise up to effort continuation calls
// run; a reply containing AnswerMarker ends the loop and becomes the
// answer. If the budget exhausts without a marker, exactly one forced
// final call (outside the budget) produces the answer. Any model
// failure aborts the whole operation; a partial trace is never
// surfaced as an answer.
func (s *Scheduler) Answer(ctx context.Context, history []session.Turn, effort int) (string, error) {
	if effort <= 0 {
		return s.client.Complete(ctx, history, "")
	}

	var trace []Attempt
	for attempt := 0; attempt < effort; attempt++ {
		directive := nextDirective
		if len(trace) == 0 {
			directive = firstDirective
		}

		text, err := s.client.Complete(ctx, s.request(history, trace), directive)
		if err != nil {
			return "", err
		}
		trace = append(trace, Attempt{Seq: len(trace) + 1, Text: text})

		if strings.Contains(text, AnswerMarker) {
			s.logger.Debug("reasoning terminated early", "attempts", len(trace), "budget", effort)
			return stripMarker(text), nil
		}
	}

	// Budget exhausted: one forced-final call, never retried as a
	// continuation.
	s.logger.Debug("budget exhausted, forcing final answer", "budget", effort)
	text, err := s.client.Complete(ctx, s.request(history, trace), finalDirective)
	if err != nil {
		return "", err
	}
	return stripMarker(text), nil
}

// request builds the turn sequence for one call: session context plus
// the trace so far as assistant turns. Attachment blocks ride only on
// the first call of a scaling turn; continuations see short text
// placeholders to bound request size.
func (s *Scheduler) request(history []session.Turn, trace []Attempt) []session.Turn {
	turns := history
	if len(trace) > 0 {
		turns = redactAttachments(history)
	}
	out := append([]session.Turn(nil), turns...)
	for _, a := range trace {
		out = append(out, session.TextTurn(session.RoleAssistant, a.Text))
	}
	return out
}

// redactAttachments replaces image and document blocks with text
// placeholders, leaving text blocks untouched.
func redactAttachments(turns []session.Turn) []session.Turn {
	out := make([]session.Turn, len(turns))
	for i, turn := range turns {
		out[i] = turn
		redacted := make([]session.ContentBlock, len(turn.Blocks))
		for j, b := range turn.Blocks {
			switch b.Type {
			case session.BlockImage:
				redacted[j] = session.TextBlock("[image attachment shown earlier]")
			case session.BlockDocument:
				redacted[j] = session.TextBlock("[document attachment shown earlier]")
			default:
				redacted[j] = b
			}
		}
		out[i].Blocks = redacted
	}
	return out
}

// stripMarker removes the termination marker from an answer.
func stripMarker(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, AnswerMarker, ""))
}
