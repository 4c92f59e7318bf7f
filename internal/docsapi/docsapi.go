// Package docsapi is the HTTP client for the documentation-generation service.
package docsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/csheth/docscribe/internal/submission"
)

const (
	defaultBaseURL = "http://localhost:8000"
	baseURLEnvVar  = "DOCSCRIBE_API_URL"
)

// Config describes how to build a service client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Result is the body of a successful generation call.
type Result struct {
	Markdown string `json:"markdown"`
}

// Artifact is the binary document returned by the download endpoint.
type Artifact struct {
	Data        []byte
	ContentType string
	// Filename is the server's suggestion from Content-Disposition, if any.
	Filename string
}

// Client exposes the four service operations. Payloads are built by the
// submission package; every call fails with *RequestError or a context error.
type Client interface {
	GenerateFromText(ctx context.Context, payload submission.Payload) (Result, error)
	GenerateFromFile(ctx context.Context, payload submission.Payload) (Result, error)
	GenerateFromRepository(ctx context.Context, payload submission.Payload) (Result, error)
	RetrieveArtifact(ctx context.Context, payload submission.Payload) (Artifact, error)
	BaseURL() string
}

// NewFromEnv builds a client from explicit config, falling back to the
// DOCSCRIBE_API_URL environment variable and then to the local default.
func NewFromEnv(cfg Config) (Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		if env := os.Getenv(baseURLEnvVar); env != "" {
			base = env
		} else {
			base = defaultBaseURL
		}
	}
	base = strings.TrimRight(base, "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid service url %q: %w", base, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid service url %q: scheme must be http or https", base)
	}
	return &httpClient{
		base:   base,
		client: pickHTTPClient(cfg.HTTPClient),
	}, nil
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Generations can take minutes; cancellation is left to the caller's context.
	return &http.Client{}
}
