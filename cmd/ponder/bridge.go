// ABOUTME: Matrix transport for ponder
// ABOUTME: Turns room messages into chat events and sends formatted replies back

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/ponder/internal/chat"
	"github.com/2389/ponder/internal/config"
	"github.com/2389/ponder/internal/dedupe"
	"github.com/2389/ponder/internal/ingest"
	"github.com/2389/ponder/internal/model"
)

// dedupeTTL bounds how long handled event IDs are remembered.
const dedupeTTL = 10 * time.Minute

// typingTimeout is the duration the typing indicator shows.
const typingTimeout = 30 * time.Second

// networkTimeout is the timeout for small Matrix API calls.
const networkTimeout = 10 * time.Second

// Bridge connects Matrix rooms to the chat service.
type Bridge struct {
	config *config.Config
	matrix *mautrix.Client
	svc    *chat.Service
	seen   *dedupe.Events
	logger *slog.Logger

	// ctx is the parent context for message processing goroutines
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates the Matrix bridge.
func NewBridge(cfg *config.Config, svc *chat.Service, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Matrix.Homeserver, id.UserID(cfg.Matrix.UserID), cfg.Matrix.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	return &Bridge{
		config: cfg,
		matrix: client,
		svc:    svc,
		seen:   dedupe.NewEvents(dedupeTTL, 4096),
		logger: logger.With("component", "bridge"),
	}, nil
}

// Run starts the bridge and blocks until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("starting matrix bridge",
		"homeserver", b.config.Matrix.Homeserver,
		"user_id", b.config.Matrix.UserID,
	)

	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	b.logger.Info("connecting to matrix homeserver")

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(b.ctx)
	}()

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		b.cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent filters and converts incoming Matrix messages.
func (b *Bridge) handleMessageEvent(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == id.UserID(b.config.Matrix.UserID) {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}

	roomID := evt.RoomID.String()
	if !b.isRoomAllowed(roomID) {
		b.logger.Debug("ignoring message from non-allowed room", "room", roomID)
		return
	}

	// Sync restarts replay recent events; drop ones we already handled
	if b.seen.Seen(evt.ID.String()) {
		b.logger.Debug("dropping duplicate event", "event_id", evt.ID.String())
		return
	}

	inbound, err := b.toInbound(ctx, evt, content)
	if err != nil {
		b.logger.Error("reading message content", "room", roomID, "error", err)
		go b.sendReply(evt.RoomID, "I couldn't read that message.")
		return
	}
	if inbound == nil {
		return
	}

	b.logger.Info("received message",
		"room", roomID,
		"sender", evt.Sender.String(),
		"content", truncate(inbound.Text, 50),
	)

	// Process in a goroutine to not block sync; the chat service's
	// per-user lock keeps one user's messages strictly ordered.
	go b.process(b.ctx, evt.RoomID, *inbound)
}

// toInbound converts a Matrix message event into a chat event.
// Returns nil for message types the bridge does not handle.
func (b *Bridge) toInbound(ctx context.Context, evt *event.Event, content *event.MessageEventContent) (*chat.InboundEvent, error) {
	inbound := &chat.InboundEvent{
		AuthorID:  evt.Sender.String(),
		ChannelID: evt.RoomID.String(),
	}

	switch content.MsgType {
	case event.MsgText:
		text := strings.TrimSpace(content.Body)
		if text == "" {
			return nil, nil
		}
		inbound.Text = text
		if prefix := b.config.Matrix.CommandPrefix; prefix != "" && strings.HasPrefix(text, prefix) {
			inbound.CommandText = strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}

	case event.MsgImage, event.MsgFile:
		att, err := b.downloadAttachment(ctx, content)
		if err != nil {
			return nil, err
		}
		inbound.Text = strings.TrimSpace(content.Body)
		if inbound.Text == att.Filename {
			// Body is just the filename, not a caption
			inbound.Text = ""
		}
		inbound.Attachments = []ingest.Attachment{*att}

	default:
		return nil, nil
	}

	return inbound, nil
}

// downloadAttachment fetches the event's media from the homeserver.
func (b *Bridge) downloadAttachment(ctx context.Context, content *event.MessageEventContent) (*ingest.Attachment, error) {
	uri, err := content.URL.Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing media URL: %w", err)
	}

	data, err := b.matrix.DownloadBytes(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("downloading media: %w", err)
	}

	mimeType := ""
	if content.Info != nil {
		mimeType = content.Info.MimeType
	}
	return &ingest.Attachment{
		Filename: content.Body,
		MimeType: mimeType,
		Data:     data,
	}, nil
}

// process runs one event through the chat service and replies.
func (b *Bridge) process(ctx context.Context, roomID id.RoomID, inbound chat.InboundEvent) {
	if b.config.Matrix.TypingIndicator {
		b.setTyping(roomID, true)
		defer b.setTyping(roomID, false)
	}

	reply, err := b.svc.Handle(ctx, inbound)
	if err != nil {
		b.logger.Error("handling message failed",
			"room", roomID.String(),
			"sender", inbound.AuthorID,
			"error", err,
		)
		b.sendReply(roomID, userFacingError(err))
		return
	}
	if reply == "" {
		return
	}

	for _, chunk := range chunkText(reply, maxChunkSize) {
		b.sendReply(roomID, chunk)
	}
}

// sendReply sends one markdown-formatted message to a room.
func (b *Bridge) sendReply(roomID id.RoomID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := b.matrix.SendMessageEvent(ctx, roomID, event.EventMessage, renderMessage(text))
	if err != nil {
		b.logger.Error("failed to send message", "room", roomID.String(), "error", err)
	}
}

// setTyping sends a typing indicator to the room.
func (b *Bridge) setTyping(roomID id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.matrix.UserTyping(ctx, roomID, typing, timeout); err != nil {
		b.logger.Debug("failed to set typing indicator", "room", roomID.String(), "error", err)
	}
}

// isRoomAllowed checks if the room is in the allowed list.
func (b *Bridge) isRoomAllowed(roomID string) bool {
	if len(b.config.Matrix.AllowedRooms) == 0 {
		return true // Allow all if no filter
	}
	for _, allowed := range b.config.Matrix.AllowedRooms {
		if allowed == roomID {
			return true
		}
	}
	return false
}

// userFacingError phrases a turn failure for the room. Every failure
// is scoped to the triggering message; the process keeps running.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, model.ErrRateLimited):
		return "I'm handling too many requests right now. Please try again in a moment."
	case errors.Is(err, model.ErrTimeout):
		return "That request timed out. Please try again."
	case errors.Is(err, model.ErrContentPolicy):
		return "I can't help with that request."
	case errors.Is(err, ingest.ErrUnsupportedAttachment):
		return "I can't read that attachment type. I understand images, PDFs and text files."
	default:
		return "I'm sorry, I encountered an error while processing your request."
	}
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
