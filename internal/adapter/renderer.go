package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crivus/quiziq/internal/logger"
)

// DocumentRenderer converts HTML markup into a rendered binary document.
// PDF generation is delegated to an external rendering service; this adapter
// only speaks its wire contract.
//
//go:generate mockgen -source=renderer.go -destination=../mocks/renderer.go -package=mocks -mock_names=DocumentRenderer=MockDocumentRenderer
type DocumentRenderer interface {
	// RenderPDF submits HTML markup and returns the rendered PDF bytes.
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// HTTPRenderer implements DocumentRenderer against an HTTP rendering service
// that accepts "text/html" bodies and responds with "application/pdf".
type HTTPRenderer struct {
	url    string
	client *http.Client
}

// NewHTTPRenderer creates a renderer client for the given service URL.
func NewHTTPRenderer(url string, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// RenderPDF submits HTML markup and returns the rendered PDF bytes.
func (r *HTTPRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/html")
	req.Header.Set("Accept", "application/pdf")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach renderer: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close renderer response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("renderer returned status %d: %s", resp.StatusCode, string(body))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered document: %w", err)
	}

	return pdf, nil
}
