// ABOUTME: Client for the external research-QA sidecar (paper retrieval and cited answers)
// ABOUTME: Fixed interface only - the retrieval/citation pipeline itself lives elsewhere

package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// noAnswerMarker is the sidecar's exact reply when its corpus cannot
// support an answer; callers fall through to the plain model path.
const noAnswerMarker = "INSUFFICIENT_CONTEXT"

// ErrNoAnswer is returned when the research corpus has insufficient
// context for the question. It is an expected outcome, not a failure.
var ErrNoAnswer = errors.New("research corpus has insufficient context")

// Client is the fixed interface to the research-QA subsystem.
type Client interface {
	// AddPaper registers a PDF with the research corpus.
	AddPaper(ctx context.Context, filename string, data []byte) error
	// Answer returns a cited answer, or ErrNoAnswer when the corpus
	// cannot support one.
	Answer(ctx context.Context, question string) (string, error)
}

// HTTPClient talks to a paperqa-style sidecar service.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewHTTPClient creates a research client for the sidecar at baseURL.
func NewHTTPClient(baseURL string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
		logger:  logger.With("component", "research"),
	}
}

type addPaperRequest struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"` // base64 via encoding/json
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

// AddPaper registers a PDF with the sidecar's corpus.
func (c *HTTPClient) AddPaper(ctx context.Context, filename string, data []byte) error {
	body, err := json.Marshal(addPaperRequest{Filename: filename, Data: data})
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, "/papers", body)
	if err != nil {
		return fmt.Errorf("adding paper %s: %w", filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("adding paper %s: sidecar returned %d", filename, resp.StatusCode)
	}
	c.logger.Info("paper added to research corpus", "file", filename)
	return nil
}

// Answer queries the sidecar and maps the insufficient-context marker
// to ErrNoAnswer.
func (c *HTTPClient) Answer(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(queryRequest{Question: question})
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, "/query", body)
	if err != nil {
		return "", fmt.Errorf("querying research sidecar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("research sidecar returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var parsed queryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decoding research answer: %w", err)
	}

	if strings.TrimSpace(parsed.Answer) == noAnswerMarker {
		return "", ErrNoAnswer
	}
	return parsed.Answer, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}
