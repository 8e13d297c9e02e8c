// ABOUTME: Central chat service - every inbound event flows through here
// ABOUTME: Dispatches commands, runs the normal or scaling answer path, persists turn pairs

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/ponder/internal/command"
	"github.com/2389/ponder/internal/ingest"
	"github.com/2389/ponder/internal/mode"
	"github.com/2389/ponder/internal/model"
	"github.com/2389/ponder/internal/research"
	"github.com/2389/ponder/internal/scaling"
	"github.com/2389/ponder/internal/session"
)

// InboundEvent is one message-equivalent event from the transport.
type InboundEvent struct {
	AuthorID  string
	ChannelID string
	Text      string
	// CommandText is the text with the transport's command prefix
	// stripped; empty when the message was not prefixed. Unrecognized
	// prefixed text still falls through to normal conversation.
	CommandText string
	Attachments []ingest.Attachment
}

// Service wires the session manager, mode controller, reasoning
// scheduler and model client into the per-turn control flow.
type Service struct {
	sessions  *session.Manager
	modes     *mode.Controller
	ingestor  *ingest.Ingestor
	client    model.Client
	scheduler *scaling.Scheduler
	research  research.Client // nil when the research sidecar is disabled
	logger    *slog.Logger
}

// New creates the chat service. research may be nil.
func New(sessions *session.Manager, modes *mode.Controller, ingestor *ingest.Ingestor,
	client model.Client, scheduler *scaling.Scheduler, res research.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions:  sessions,
		modes:     modes,
		ingestor:  ingestor,
		client:    client,
		scheduler: scheduler,
		research:  res,
		logger:    logger.With("component", "chat"),
	}
}

// Handle processes one inbound event and returns the reply text. The
// whole event runs inside the author's session lock, so rapid-repeat
// messages from one user are handled strictly in order while other
// users proceed concurrently.
func (s *Service) Handle(ctx context.Context, evt InboundEvent) (string, error) {
	unlock := s.sessions.Lock(evt.AuthorID)
	defer unlock()

	if evt.CommandText != "" {
		if cmd := command.Parse(evt.CommandText); cmd.Kind != command.None {
			return s.runCommand(ctx, evt.AuthorID, cmd)
		}
	}

	return s.converse(ctx, evt)
}

// runCommand routes a recognized command to the mode controller or the
// session manager and phrases the reply.
func (s *Service) runCommand(ctx context.Context, userID string, cmd command.Command) (string, error) {
	switch cmd.Kind {
	case command.ToggleScale:
		m, err := s.modes.Toggle(ctx, userID)
		if err != nil {
			return "", err
		}
		if m == session.ModeScaling {
			return "Test-time scaling enabled. Answers will take longer but think harder.", nil
		}
		return "Test-time scaling disabled. Back to single-pass answers.", nil

	case command.SetEffort:
		effective, err := s.modes.SetEffort(ctx, userID, cmd.EffortRaw)
		if errors.Is(err, mode.ErrInvalidEffort) {
			lo, hi := s.modes.Range()
			return fmt.Sprintf("Effort must be an integer between %d and %d.", lo, hi), nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Effort set to %d.", effective), nil

	case command.Status:
		status, err := s.modes.Status(ctx, userID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Mode: %s. Effort: %d.", status.Mode, status.Effort), nil

	case command.DeleteHistory:
		if err := s.sessions.DeleteHistory(ctx, userID); err != nil {
			return "", err
		}
		return "Conversation history deleted. Mode and effort are unchanged.", nil
	}

	return "", fmt.Errorf("unhandled command kind %d", cmd.Kind)
}

// converse runs the conversational path: ingest attachments, build the
// user turn, produce an answer via the mode-selected path, and persist
// the user/assistant pair atomically. A failed model call leaves the
// session untouched.
func (s *Service) converse(ctx context.Context, evt InboundEvent) (string, error) {
	var blocks []session.ContentBlock
	if evt.Text != "" {
		blocks = append(blocks, session.TextBlock(evt.Text))
	}

	attBlocks, err := s.ingestor.Blocks(evt.Attachments)
	if err != nil {
		return "", err
	}
	blocks = append(blocks, attBlocks...)
	if len(blocks) == 0 {
		return "", nil
	}

	s.registerPapers(ctx, evt.Attachments)

	sess, err := s.sessions.GetOrCreate(ctx, evt.AuthorID)
	if err != nil {
		return "", err
	}

	userTurn := session.NewTurn(session.RoleUser, blocks...)
	history := append(append([]session.Turn(nil), sess.Turns...), userTurn)

	answer, err := s.answer(ctx, sess, history, evt.Text)
	if err != nil {
		return "", err
	}

	assistantTurn := session.TextTurn(session.RoleAssistant, answer)
	if err := s.sessions.AppendTurns(ctx, sess, userTurn, assistantTurn); err != nil {
		return "", err
	}

	s.logger.Debug("turn completed",
		"user", evt.AuthorID,
		"mode", sess.Mode,
		"turns", len(sess.Turns),
	)
	return answer, nil
}

// answer produces the reply text: research-first when enabled, then
// the mode-selected model path.
func (s *Service) answer(ctx context.Context, sess *session.Session, history []session.Turn, question string) (string, error) {
	if s.research != nil && question != "" {
		answer, err := s.research.Answer(ctx, question)
		if err == nil {
			return answer, nil
		}
		if !errors.Is(err, research.ErrNoAnswer) {
			s.logger.Warn("research sidecar failed, using model", "error", err)
		}
	}

	if sess.Mode == session.ModeScaling {
		return s.scheduler.Answer(ctx, history, sess.Effort)
	}
	return s.client.Complete(ctx, history, "")
}

// registerPapers feeds PDF attachments to the research corpus.
// Failures are logged, never fatal to the turn.
func (s *Service) registerPapers(ctx context.Context, attachments []ingest.Attachment) {
	if s.research == nil {
		return
	}
	for _, att := range attachments {
		if att.MimeType != "application/pdf" {
			continue
		}
		if err := s.research.AddPaper(ctx, att.Filename, att.Data); err != nil {
			s.logger.Warn("adding paper failed", "file", att.Filename, "error", err)
		}
	}
}
