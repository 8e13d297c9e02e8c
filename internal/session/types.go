// ABOUTME: Domain types for per-user conversation sessions
// ABOUTME: Defines Turn, ContentBlock, Mode and the Session aggregate

package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// BlockType tags the content variant carried by a ContentBlock.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockImage    BlockType = "image"
	BlockDocument BlockType = "document"
)

// Estimated token cost of non-text blocks. Images and documents are
// referenced by payload, so a flat estimate keeps trimming cheap.
const (
	imageTokenEstimate    = 1600
	documentTokenEstimate = 2000
)

// ContentBlock is one typed unit of message content.
// Exactly one of Text or Data is populated depending on Type.
type ContentBlock struct {
	Type     BlockType `json:"type"`
	Text     string    `json:"text,omitempty"`
	Data     string    `json:"data,omitempty"` // base64 payload for image/document
	MimeType string    `json:"mime_type,omitempty"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ImageBlock creates an image content block from a base64 payload.
func ImageBlock(data, mimeType string) ContentBlock {
	return ContentBlock{Type: BlockImage, Data: data, MimeType: mimeType}
}

// DocumentBlock creates a document content block from a base64 payload.
func DocumentBlock(data, mimeType string) ContentBlock {
	return ContentBlock{Type: BlockDocument, Data: data, MimeType: mimeType}
}

// estimatedTokens approximates the model-side cost of a block.
func (b ContentBlock) estimatedTokens() int {
	switch b.Type {
	case BlockImage:
		return imageTokenEstimate
	case BlockDocument:
		return documentTokenEstimate
	default:
		return (len(b.Text) + 3) / 4
	}
}

// Turn is one message-equivalent unit within a session.
type Turn struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Blocks    []ContentBlock `json:"blocks"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewTurn creates a turn with a fresh ID and timestamp.
func NewTurn(role Role, blocks ...ContentBlock) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Blocks:    blocks,
		CreatedAt: time.Now().UTC(),
	}
}

// TextTurn creates a single-text-block turn.
func TextTurn(role Role, text string) Turn {
	return NewTurn(role, TextBlock(text))
}

// Text returns the concatenated text content of the turn.
func (t Turn) Text() string {
	var out string
	for _, b := range t.Blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// EstimatedTokens approximates the model-side cost of the whole turn.
func (t Turn) EstimatedTokens() int {
	total := 0
	for _, b := range t.Blocks {
		total += b.estimatedTokens()
	}
	return total
}

// Mode selects how a user's turns are answered.
type Mode string

const (
	// ModeNormal answers each turn with a single model call.
	ModeNormal Mode = "normal"
	// ModeScaling answers each turn with the budget-forced reasoning loop.
	ModeScaling Mode = "scaling"
)

// Session is one user's persisted conversation plus their mode and
// effort settings. Settings are independent of history: clearing the
// turns never resets Mode or Effort.
type Session struct {
	UserID    string    `json:"user_id"`
	Turns     []Turn    `json:"turns"`
	Mode      Mode      `json:"mode"`
	Effort    int       `json:"effort"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EstimatedTokens approximates the model-side cost of the full history.
func (s *Session) EstimatedTokens() int {
	total := 0
	for _, t := range s.Turns {
		total += t.EstimatedTokens()
	}
	return total
}
