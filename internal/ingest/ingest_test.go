package ingest

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ponder/internal/session"
)

func TestBlocks_Image(t *testing.T) {
	ing := NewIngestor(nil)

	blocks, err := ing.Blocks([]Attachment{
		{Filename: "cat.png", MimeType: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}},
	})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, session.BlockImage, blocks[0].Type)
	assert.Equal(t, "image/png", blocks[0].MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4e, 0x47}), blocks[0].Data)
}

func TestBlocks_PDF(t *testing.T) {
	ing := NewIngestor(nil)

	blocks, err := ing.Blocks([]Attachment{
		{Filename: "paper.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.7")},
	})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, session.BlockDocument, blocks[0].Type)
}

func TestBlocks_TextInlined(t *testing.T) {
	ing := NewIngestor(nil)

	blocks, err := ing.Blocks([]Attachment{
		{Filename: "notes.txt", MimeType: "text/plain", Data: []byte("some notes")},
		{Filename: "data.json", MimeType: "application/json", Data: []byte(`{"k":1}`)}, // UTF-8 fallback
	})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "some notes", blocks[0].Text)
	assert.Equal(t, `{"k":1}`, blocks[1].Text)
}

func TestBlocks_UnsupportedFailsBatch(t *testing.T) {
	ing := NewIngestor(nil)

	_, err := ing.Blocks([]Attachment{
		{Filename: "notes.txt", MimeType: "text/plain", Data: []byte("fine")},
		{Filename: "song.mp3", MimeType: "audio/mpeg", Data: []byte{0xff, 0xfb, 0x90, 0x00}},
	})
	require.ErrorIs(t, err, ErrUnsupportedAttachment)
	assert.Contains(t, err.Error(), "song.mp3")
}

func TestBlocks_ImageCap(t *testing.T) {
	ing := NewIngestor(nil)

	atts := make([]Attachment, maxImagesPerMessage+3)
	for i := range atts {
		atts[i] = Attachment{Filename: "img.png", MimeType: "image/png", Data: []byte{0x89}}
	}

	blocks, err := ing.Blocks(atts)
	require.NoError(t, err)
	assert.Len(t, blocks, maxImagesPerMessage)
}

func TestBlocks_OrderPreserved(t *testing.T) {
	ing := NewIngestor(nil)

	blocks, err := ing.Blocks([]Attachment{
		{Filename: "a.txt", MimeType: "text/plain", Data: []byte("first")},
		{Filename: "b.png", MimeType: "image/png", Data: []byte{0x89}},
		{Filename: "c.txt", MimeType: "text/plain", Data: []byte("third")},
	})
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, session.BlockText, blocks[0].Type)
	assert.Equal(t, session.BlockImage, blocks[1].Type)
	assert.Equal(t, "third", blocks[2].Text)
}
