// Package ingest decodes message attachments into session content
// blocks: images become base64 image blocks, PDFs become document
// blocks, and text files become plain text blocks. A batch with any
// unsupported attachment fails whole with ErrUnsupportedAttachment.
package ingest
