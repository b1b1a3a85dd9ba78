package detector

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
	"time"

	"PollinatorTracker/internal/entity"
)

const maxErrorBody = 512

type HTTPConfig struct {
	// URL receives the image as multipart field "file".
	URL string
	// HealthURL defaults to /health on the same host as URL.
	HealthURL string
	Timeout   time.Duration
	// Names is used when a response carries no names table.
	Names ClassNames
	// Client overrides the default client, mostly for tests.
	Client *http.Client
}

type httpDetector struct {
	url       string
	healthURL string
	names     ClassNames
	client    *http.Client
}

func NewHTTP(cfg HTTPConfig) (IDetector, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("detector url is required")
	}

	healthURL := cfg.HealthURL
	if healthURL == "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse detector url: %w", err)
		}
		healthURL = (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/health"}).String()
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &httpDetector{
		url:       cfg.URL,
		healthURL: healthURL,
		names:     cfg.Names,
		client:    client,
	}, nil
}

func (d *httpDetector) Name() string {
	return "http"
}

func (d *httpDetector) Detect(ctx context.Context, imagePath string) ([]entity.Detection, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	return decodeResponse(respBody, d.names)
}

func (d *httpDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.healthURL, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detector unhealthy: %d", resp.StatusCode)
	}

	return nil
}

func (d *httpDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
