// Package backend is the HTTP client for the remote question-answering and
// PDF ingestion service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Backend defines the two remote calls the chat view makes.
type Backend interface {
	AskQuestion(ctx context.Context, question string) (string, error)
	UploadPDFs(ctx context.Context, name string, r io.Reader) (*UploadResult, error)
}

// UploadResult carries the backend's per-file ingestion report. Any 2xx
// response counts as upload success regardless of its content; the report
// is surfaced to the user verbatim when present.
type UploadResult struct {
	Results []FileResult `json:"results"`
}

// FileResult is the backend's status for one ingested file.
type FileResult struct {
	Filename       string `json:"filename"`
	Status         string `json:"status,omitempty"`
	ChunksUploaded int    `json:"chunks_uploaded,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Client talks to the backend over HTTP. Requests are single-shot: there is
// no retry or backoff, failures are collapsed into one error per action at
// the call site.
type Client struct {
	baseURL      string
	askClient    *http.Client
	uploadClient *http.Client
}

// NewClient creates a backend client with separate timeouts for the two
// actions. Uploads get a longer budget since the backend parses, chunks and
// embeds the document before responding.
func NewClient(baseURL string, askTimeout, uploadTimeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		askClient: &http.Client{
			Timeout:   askTimeout,
			Transport: transport,
		},
		uploadClient: &http.Client{
			Timeout:   uploadTimeout,
			Transport: transport,
		},
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AskQuestion submits a question and returns the backend's answer. Any
// transport error, non-2xx status or response without an answer string is
// an error.
func (c *Client) AskQuestion(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("marshaling question: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask_question", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.askClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ask_question request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ask_question returned HTTP %d: %s", resp.StatusCode, string(detail))
	}

	var result askResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding ask_question response: %w", err)
	}
	if result.Answer == "" {
		return "", fmt.Errorf("ask_question response contained no answer")
	}

	return result.Answer, nil
}

// UploadPDFs sends one PDF to the backend's ingestion endpoint as multipart
// form data under the field name "files".
func (c *Client) UploadPDFs(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("files", name)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("writing file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload_pdfs", body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload_pdfs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upload_pdfs returned HTTP %d: %s", resp.StatusCode, string(detail))
	}

	// The ingestion report is informational; a 2xx with an unreadable body
	// is still a successful upload.
	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &UploadResult{}, nil
	}

	return &result, nil
}
