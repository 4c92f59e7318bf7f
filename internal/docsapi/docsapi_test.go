package docsapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/csheth/docscribe/internal/submission"
)

func newTestClient(t *testing.T, server *httptest.Server) *httpClient {
	t.Helper()
	return &httpClient{base: server.URL, client: server.Client()}
}

func mustPayload(t *testing.T, sub submission.Submission) submission.Payload {
	t.Helper()
	payload, err := submission.BuildGenerate(sub)
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	return payload
}

func TestGenerateFromText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/gen" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatal("expected request id header")
		}
		var payload struct {
			Code     string `json:"code"`
			IsBase64 bool   `json:"isBase64"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.Code != "print(1)" || payload.IsBase64 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"markdown":"# Docs"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.GenerateFromText(context.Background(), mustPayload(t, submission.Text("print(1)")))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if result.Markdown != "# Docs" {
		t.Fatalf("unexpected markdown: %q", result.Markdown)
	}
}

func TestGenerateFromFileSendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/from-upload" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "app.js" || string(data) != "console.log(1)" {
			t.Fatalf("unexpected upload %s: %q", header.Filename, data)
		}
		w.Write([]byte(`{"markdown":"file docs"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	payload := mustPayload(t, submission.Upload(&submission.File{Name: "app.js", Data: []byte("console.log(1)")}))
	result, err := client.GenerateFromFile(context.Background(), payload)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if result.Markdown != "file docs" {
		t.Fatalf("unexpected markdown: %q", result.Markdown)
	}
}

func TestGenerateFromRepositoryErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/from-github" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"invalid url"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GenerateFromRepository(context.Background(), mustPayload(t, submission.Repository("nope")))
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T (%v)", err, err)
	}
	if reqErr.Message != "invalid url" {
		t.Fatalf("unexpected message: %q", reqErr.Message)
	}
	if reqErr.StatusCode != http.StatusBadRequest || reqErr.Network {
		t.Fatalf("unexpected error shape: %+v", reqErr)
	}
}

func TestErrorFallbackMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(*httpClient) error
		want string
	}{
		{
			name: "text non-json body",
			body: "Internal Server Error",
			call: func(c *httpClient) error {
				_, err := c.GenerateFromText(context.Background(), submission.Payload{})
				return err
			},
			want: "Error generating docs",
		},
		{
			name: "upload missing detail",
			body: `{"error":"boom"}`,
			call: func(c *httpClient) error {
				_, err := c.GenerateFromFile(context.Background(), submission.Payload{})
				return err
			},
			want: "Error processing file",
		},
		{
			name: "repository empty detail",
			body: `{"detail":""}`,
			call: func(c *httpClient) error {
				_, err := c.GenerateFromRepository(context.Background(), submission.Payload{})
				return err
			},
			want: "Error with GitHub URL",
		},
		{
			name: "validation list",
			body: `{"detail":[{"msg":"field required"},{"msg":"bad type"}]}`,
			call: func(c *httpClient) error {
				_, err := c.GenerateFromText(context.Background(), submission.Payload{})
				return err
			},
			want: "field required; bad type",
		},
		{
			name: "download binary body",
			body: "\x00\x01",
			call: func(c *httpClient) error {
				_, err := c.RetrieveArtifact(context.Background(), submission.Payload{})
				return err
			},
			want: "Download failed",
		},
		{
			name: "download json detail",
			body: `{"detail":"No input provided"}`,
			call: func(c *httpClient) error {
				_, err := c.RetrieveArtifact(context.Background(), submission.Payload{})
				return err
			},
			want: "No input provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := tt.call(newTestClient(t, server))
			if got := Message(err, "unexpected"); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
			if IsNetwork(err) {
				t.Fatal("application errors must not be reported as network errors")
			}
		})
	}
}

func TestSuccessWithMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).GenerateFromText(context.Background(), submission.Payload{})
	if got := Message(err, ""); got != "Error generating docs" {
		t.Fatalf("unexpected message %q (%v)", got, err)
	}
}

func TestRetrieveArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/download" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.FormValue("code") != "x = 1" || r.FormValue("isBase64") != "false" {
			t.Fatalf("unexpected form: %v", r.MultipartForm.Value)
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="documentation_20240101_101010.md"`)
		w.Write([]byte("# Artifact"))
	}))
	defer server.Close()

	payload, err := submission.BuildArtifact(submission.Text("x = 1"))
	if err != nil {
		t.Fatalf("build artifact: %v", err)
	}
	artifact, err := newTestClient(t, server).RetrieveArtifact(context.Background(), payload)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if string(artifact.Data) != "# Artifact" {
		t.Fatalf("unexpected data: %q", artifact.Data)
	}
	if artifact.Filename != "documentation_20240101_101010.md" {
		t.Fatalf("unexpected filename: %q", artifact.Filename)
	}
	if !strings.HasPrefix(artifact.ContentType, "text/markdown") {
		t.Fatalf("unexpected content type: %q", artifact.ContentType)
	}
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	client := &httpClient{base: base, client: &http.Client{}}
	_, err := client.GenerateFromText(context.Background(), submission.Payload{})
	if !IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if err.Error() != "Network error" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestCanceledContextIsNotNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markdown":"late"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, server).GenerateFromText(ctx, submission.Payload{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsNetwork(err) {
		t.Fatal("cancellation must not be reported as a network error")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(baseURLEnvVar, "http://docs.internal:9000/")
	client, err := NewFromEnv(Config{})
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
	if client.BaseURL() != "http://docs.internal:9000" {
		t.Fatalf("unexpected base url: %s", client.BaseURL())
	}

	client, err = NewFromEnv(Config{BaseURL: "https://override.example"})
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
	if client.BaseURL() != "https://override.example" {
		t.Fatalf("explicit config should win, got %s", client.BaseURL())
	}

	if _, err := NewFromEnv(Config{BaseURL: "ftp://nope"}); err == nil {
		t.Fatal("expected scheme validation error")
	}
}

func TestNewFromEnvDefault(t *testing.T) {
	t.Setenv(baseURLEnvVar, "")
	client, err := NewFromEnv(Config{})
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
	if client.BaseURL() != defaultBaseURL {
		t.Fatalf("unexpected base url: %s", client.BaseURL())
	}
}

func TestPickHTTPClientHonorsCustomClient(t *testing.T) {
	custom := &http.Client{}
	if got := pickHTTPClient(custom); got != custom {
		t.Fatalf("expected custom client to be returned")
	}
	if got := pickHTTPClient(nil); got.Timeout != 0 {
		t.Fatalf("default client should not impose a timeout, got %s", got.Timeout)
	}
}
