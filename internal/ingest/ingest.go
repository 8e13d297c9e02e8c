// ABOUTME: Attachment ingestion - decodes inbound files into model-consumable content blocks
// ABOUTME: Images and PDFs become typed blocks, readable text is inlined, the rest is rejected

package ingest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/2389/ponder/internal/session"
)

// ErrUnsupportedAttachment is returned for attachment types the model
// cannot consume.
var ErrUnsupportedAttachment = errors.New("unsupported attachment type")

// maxImagesPerMessage caps inline images due to API constraints.
const maxImagesPerMessage = 20

// supportedImageTypes are the image formats the model service accepts.
var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Attachment is one inbound file, already fetched by the transport.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Ingestor decodes attachments into content blocks.
type Ingestor struct {
	logger *slog.Logger
}

// NewIngestor creates an attachment ingestor.
func NewIngestor(logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{logger: logger.With("component", "ingest")}
}

// Blocks converts attachments into content blocks, preserving order.
// Any unsupported attachment fails the whole batch with
// ErrUnsupportedAttachment naming the file.
func (ing *Ingestor) Blocks(attachments []Attachment) ([]session.ContentBlock, error) {
	var blocks []session.ContentBlock
	images := 0

	for _, att := range attachments {
		switch {
		case supportedImageTypes[att.MimeType]:
			if images >= maxImagesPerMessage {
				ing.logger.Warn("image cap reached, skipping", "file", att.Filename)
				continue
			}
			images++
			blocks = append(blocks, session.ImageBlock(encode(att.Data), att.MimeType))

		case att.MimeType == "application/pdf":
			blocks = append(blocks, session.DocumentBlock(encode(att.Data), att.MimeType))

		case strings.HasPrefix(att.MimeType, "text/") || utf8.Valid(att.Data):
			blocks = append(blocks, session.TextBlock(string(att.Data)))

		default:
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedAttachment, att.Filename, att.MimeType)
		}
	}

	return blocks, nil
}

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
