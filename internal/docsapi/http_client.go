package docsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/csheth/docscribe/internal/submission"
)

type replyKind int

const (
	replyDocument replyKind = iota
	replyArtifact
)

type endpoint struct {
	path     string
	fallback string
	kind     replyKind
}

var (
	textEndpoint       = endpoint{path: "/docs/gen", fallback: "Error generating docs", kind: replyDocument}
	uploadEndpoint     = endpoint{path: "/docs/from-upload", fallback: "Error processing file", kind: replyDocument}
	repositoryEndpoint = endpoint{path: "/docs/from-github", fallback: "Error with GitHub URL", kind: replyDocument}
	artifactEndpoint   = endpoint{path: "/docs/download", fallback: "Download failed", kind: replyArtifact}
)

// reply holds exactly one decoded success shape, chosen by the endpoint.
type reply struct {
	kind     replyKind
	result   Result
	artifact Artifact
}

type httpClient struct {
	base   string
	client *http.Client
}

func (c *httpClient) BaseURL() string {
	return c.base
}

func (c *httpClient) GenerateFromText(ctx context.Context, payload submission.Payload) (Result, error) {
	r, err := c.post(ctx, textEndpoint, payload)
	return r.result, err
}

func (c *httpClient) GenerateFromFile(ctx context.Context, payload submission.Payload) (Result, error) {
	r, err := c.post(ctx, uploadEndpoint, payload)
	return r.result, err
}

func (c *httpClient) GenerateFromRepository(ctx context.Context, payload submission.Payload) (Result, error) {
	r, err := c.post(ctx, repositoryEndpoint, payload)
	return r.result, err
}

func (c *httpClient) RetrieveArtifact(ctx context.Context, payload submission.Payload) (Artifact, error) {
	r, err := c.post(ctx, artifactEndpoint, payload)
	return r.artifact, err
}

func (c *httpClient) post(ctx context.Context, ep endpoint, payload submission.Payload) (reply, error) {
	requestID := uuid.NewString()
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+ep.path, payload.Reader())
	if err != nil {
		return reply{}, err
	}
	req.Header.Set("Content-Type", payload.ContentType)
	req.Header.Set("X-Request-ID", requestID)
	if ep.kind == replyDocument {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Printf("[docsapi] %s canceled (request=%s): %v", ep.path, requestID, ctxErr)
			return reply{}, ctxErr
		}
		log.Printf("[docsapi] %s network failure (request=%s): %v", ep.path, requestID, err)
		return reply{}, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[docsapi] %s body read failed (request=%s): %v", ep.path, requestID, err)
		return reply{}, networkError(err)
	}
	log.Printf("[docsapi] %s %s -> %d (request=%s, %s body, %d bytes, took %s)",
		http.MethodPost, ep.path, resp.StatusCode, requestID, payload.Encoding, len(body), time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Error bodies are inspected as JSON for every endpoint, including the
		// binary download, before any binary handling is committed to.
		return reply{}, &RequestError{
			StatusCode: resp.StatusCode,
			Message:    extractDetail(body, ep.fallback),
		}
	}
	return settle(ep, resp, body)
}

func settle(ep endpoint, resp *http.Response, body []byte) (reply, error) {
	switch ep.kind {
	case replyArtifact:
		return reply{kind: replyArtifact, artifact: Artifact{
			Data:        body,
			ContentType: resp.Header.Get("Content-Type"),
			Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		}}, nil
	case replyDocument:
		var result Result
		if err := json.Unmarshal(body, &result); err != nil {
			return reply{}, &RequestError{
				StatusCode: resp.StatusCode,
				Message:    ep.fallback,
				Err:        fmt.Errorf("decode %s response: %w", ep.path, err),
			}
		}
		return reply{kind: replyDocument, result: result}, nil
	default:
		return reply{}, errors.New("unknown reply kind")
	}
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
