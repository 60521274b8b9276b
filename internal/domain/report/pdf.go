package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Converter turns report markup into a PDF file and returns its path.
type Converter interface {
	Convert(ctx context.Context, markup string) (string, error)
}

const convertHTMLPath = "/forms/chromium/convert/html"

// GotenbergConverter posts markup to a Gotenberg-compatible HTML route and
// writes the returned PDF into TempDir.
type GotenbergConverter struct {
	baseURL string
	tempDir string
	client  *http.Client
}

// NewGotenbergConverter creates a converter for the Gotenberg instance at
// baseURL. PDFs are written to tempDir, os.TempDir() when empty.
func NewGotenbergConverter(baseURL, tempDir string, timeout time.Duration) (*GotenbergConverter, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid converter url %q", baseURL)
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GotenbergConverter{
		baseURL: strings.TrimRight(baseURL, "/"),
		tempDir: tempDir,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (g *GotenbergConverter) Convert(ctx context.Context, markup string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "index.html")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.WriteString(part, markup); err != nil {
		return "", fmt.Errorf("write markup: %w", err)
	}
	if err := mw.WriteField("printBackground", "true"); err != nil {
		return "", fmt.Errorf("write form field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+convertHTMLPath, &body)
	if err != nil {
		return "", fmt.Errorf("build convert request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("convert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("converter returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := os.MkdirAll(g.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(g.tempDir, fmt.Sprintf("Vaccination_Details_%s.pdf", uuid.New().String()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create pdf file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write pdf file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close pdf file: %w", err)
	}
	return path, nil
}
