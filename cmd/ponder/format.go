// ABOUTME: Reply formatting for the Matrix bridge
// ABOUTME: Renders model markdown to HTML bodies and chunks long replies on line boundaries

package main

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"maunium.net/go/mautrix/event"
)

// maxChunkSize caps one outbound message; longer replies are split on
// line boundaries.
const maxChunkSize = 2000

// renderMessage builds a message with the raw text as the plain body
// and a markdown-rendered HTML formatted body.
func renderMessage(text string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &htmlBuf); err == nil {
		content.Format = event.FormatHTML
		content.FormattedBody = strings.TrimSpace(htmlBuf.String())
	}

	return content
}

// chunkText splits text into chunks of at most max bytes, preferring
// line boundaries. A single line longer than max is hard-split.
func chunkText(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	current := ""
	for _, line := range splitLinesKeepEnds(text) {
		for len(line) > max {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			chunks = append(chunks, line[:max])
			line = line[max:]
		}
		if len(current)+len(line) > max {
			chunks = append(chunks, current)
			current = ""
		}
		current += line
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitLinesKeepEnds splits text into lines, keeping the newline on
// each line so that joining the result reproduces the input.
func splitLinesKeepEnds(text string) []string {
	var lines []string
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			if text != "" {
				lines = append(lines, text)
			}
			return lines
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
}
