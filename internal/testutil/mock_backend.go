// mock_backend.go - Mock backend implementation for testing
package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/doc-chat/frontend/internal/backend"
)

// MockBackend implements backend.Backend for testing. Responses are
// scripted via AskFunc/UploadFunc; calls are recorded for assertions.
type MockBackend struct {
	mu         sync.Mutex
	AskFunc    func(ctx context.Context, question string) (string, error)
	UploadFunc func(ctx context.Context, name string, r io.Reader) (*backend.UploadResult, error)

	askCalls    []string
	uploadCalls []UploadCall
}

// UploadCall records one UploadPDFs invocation.
type UploadCall struct {
	Name string
	Data []byte
}

// NewMockBackend creates a mock with permissive defaults: every question is
// answered with a canned string and every upload succeeds.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (m *MockBackend) AskQuestion(ctx context.Context, question string) (string, error) {
	m.mu.Lock()
	m.askCalls = append(m.askCalls, question)
	fn := m.AskFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, question)
	}
	return "mock answer", nil
}

func (m *MockBackend) UploadPDFs(ctx context.Context, name string, r io.Reader) (*backend.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.uploadCalls = append(m.uploadCalls, UploadCall{Name: name, Data: data})
	fn := m.UploadFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, name, r)
	}
	return &backend.UploadResult{
		Results: []backend.FileResult{{Filename: name, Status: "success"}},
	}, nil
}

// AskCalls returns the questions submitted so far.
func (m *MockBackend) AskCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]string, len(m.askCalls))
	copy(calls, m.askCalls)
	return calls
}

// UploadCalls returns the uploads submitted so far.
func (m *MockBackend) UploadCalls() []UploadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]UploadCall, len(m.uploadCalls))
	copy(calls, m.uploadCalls)
	return calls
}
