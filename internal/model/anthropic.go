// ABOUTME: Anthropic Messages API implementation of the model client
// ABOUTME: Builds block-typed requests from session turns and maps API failures to the taxonomy

package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/2389/ponder/internal/session"
)

// AnthropicConfig holds the settings the client needs.
type AnthropicConfig struct {
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// Anthropic is the production Client backed by the Anthropic Messages
// API, admission-controlled by a shared Gate.
type Anthropic struct {
	client      anthropic.Client
	gate        *Gate
	model       anthropic.Model
	maxTokens   int64
	temperature float64
	system      string
	logger      *slog.Logger
}

// NewAnthropic creates the shared model client.
func NewAnthropic(cfg AnthropicConfig, gate *Gate, logger *slog.Logger) *Anthropic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Anthropic{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		gate:        gate,
		model:       anthropic.Model(cfg.Model),
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		system:      cfg.SystemPrompt,
		logger:      logger.With("component", "model"),
	}
}

// Complete performs one inference call. It waits at the gate, sends
// the turns (plus directive) and returns the concatenated text of the
// response.
func (a *Anthropic) Complete(ctx context.Context, turns []session.Turn, directive string) (string, error) {
	release, err := a.gate.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	messages, extraSystem := buildMessages(turns, directive)

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  messages,
	}
	if a.temperature > 0 {
		params.Temperature = anthropic.Float(a.temperature)
	}
	system := a.system
	if extraSystem != "" {
		system = strings.TrimSpace(system + "\n\n" + extraSystem)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		a.logger.Warn("model call failed", "error", err)
		return "", mapError(err)
	}
	if msg.StopReason == anthropic.StopReasonRefusal {
		return "", ErrContentPolicy
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	a.logger.Debug("model call completed",
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)
	return sb.String(), nil
}

// buildMessages converts session turns into API messages. A pinned
// leading system turn is lifted into the system prompt. The directive,
// when present, becomes the final user message; if the context already
// ends with a user turn it is folded into that turn as an extra text
// block to keep roles alternating.
func buildMessages(turns []session.Turn, directive string) ([]anthropic.MessageParam, string) {
	var (
		messages    []anthropic.MessageParam
		extraSystem string
	)

	for i, turn := range turns {
		if i == 0 && turn.Role == session.RoleSystem {
			extraSystem = turn.Text()
			continue
		}
		switch turn.Role {
		case session.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Text())))
		default:
			messages = append(messages, anthropic.NewUserMessage(blocksOf(turn)...))
		}
	}

	if directive != "" {
		block := anthropic.NewTextBlock(directive)
		if n := len(messages); n > 0 && messages[n-1].Role == anthropic.MessageParamRoleUser {
			messages[n-1].Content = append(messages[n-1].Content, block)
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	return messages, extraSystem
}

// blocksOf converts a turn's content blocks into API content blocks.
func blocksOf(turn session.Turn) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Blocks))
	for _, b := range turn.Blocks {
		switch b.Type {
		case session.BlockImage:
			blocks = append(blocks, anthropic.NewImageBlockBase64(b.MimeType, b.Data))
		case session.BlockDocument:
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: b.Data}))
		default:
			blocks = append(blocks, anthropic.NewTextBlock(b.Text))
		}
	}
	return blocks
}

// mapError translates transport and API errors into the taxonomy.
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apierr.StatusCode == 408 || apierr.StatusCode == 504:
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		default:
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
