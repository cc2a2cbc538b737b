// handlers_upload_test.go - Tests for pending-upload handlers
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doc-chat/frontend/internal/backend"
	"github.com/doc-chat/frontend/internal/models"
	"github.com/doc-chat/frontend/internal/session"
	"github.com/doc-chat/frontend/internal/staging"
	"github.com/doc-chat/frontend/internal/testutil"
	"github.com/labstack/echo/v4"
)

type uploadTestEnv struct {
	e        *echo.Echo
	sessions *session.Manager
	spool    staging.Spool
	mock     *testutil.MockBackend
	handler  UploadHandler
}

func newUploadTestEnv(t *testing.T) *uploadTestEnv {
	t.Helper()
	spool, err := staging.NewLocalSpool(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create spool: %v", err)
	}
	mock := testutil.NewMockBackend()
	sessions := session.NewManager(spool)
	return &uploadTestEnv{
		e:        echo.New(),
		sessions: sessions,
		spool:    spool,
		mock:     mock,
		handler:  NewUploadHandler(sessions, spool, mock),
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(content)
	writer.Close()
	return body, writer.FormDataContentType()
}

func (env *uploadTestEnv) stageContext(sessionID string, body io.Reader, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/chat/"+sessionID+"/pending", body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sessionID)
	return c, rec
}

func (env *uploadTestEnv) submitContext(sessionID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/chat/"+sessionID+"/upload", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sessionID)
	return c, rec
}

func TestUploadHandler_HandleStageFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
		errCode  string
	}{
		{
			name:     "valid pdf",
			filename: "report.pdf",
		},
		{
			name:     "pdf extension is case-insensitive",
			filename: "REPORT.PDF",
		},
		{
			name:     "non-pdf rejected",
			filename: "notes.txt",
			wantErr:  true,
			errCode:  "BAD_REQUEST",
		},
		{
			name:     "no extension rejected",
			filename: "report",
			wantErr:  true,
			errCode:  "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newUploadTestEnv(t)
			sess := env.sessions.CreateSession()

			body, contentType := multipartBody(t, "file", tt.filename, []byte("%PDF-1.4"))
			c, rec := env.stageContext(sess.ID, body, contentType)
			err := env.handler.HandleStageFile(c)

			if tt.wantErr {
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Fatalf("expected APIError, got %v", err)
				}
				if apiErr.Code != tt.errCode {
					t.Errorf("expected code %s, got %s", tt.errCode, apiErr.Code)
				}
				if _, ok := env.spool.Pending(sess.ID); ok {
					t.Error("rejected file must not be staged")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusCreated {
				t.Errorf("expected status 201, got %d", rec.Code)
			}

			var info models.PendingUpload
			if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if info.Name != tt.filename {
				t.Errorf("expected name %s, got %s", tt.filename, info.Name)
			}

			pending, ok := env.spool.Pending(sess.ID)
			if !ok || pending.Name != tt.filename {
				t.Error("file not staged")
			}
		})
	}
}

func TestUploadHandler_HandleStageFile_MissingPart(t *testing.T) {
	env := newUploadTestEnv(t)
	sess := env.sessions.CreateSession()

	body, contentType := multipartBody(t, "wrongfield", "report.pdf", []byte("%PDF-1.4"))
	c, _ := env.stageContext(sess.ID, body, contentType)

	err := env.handler.HandleStageFile(c)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "BAD_REQUEST" {
		t.Errorf("expected BAD_REQUEST, got %v", err)
	}
}

func TestUploadHandler_HandleStageFile_UnknownSession(t *testing.T) {
	env := newUploadTestEnv(t)

	body, contentType := multipartBody(t, "file", "report.pdf", []byte("%PDF-1.4"))
	c, _ := env.stageContext("no-such-session", body, contentType)

	err := env.handler.HandleStageFile(c)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestUploadHandler_HandleStageFile_ReplacesPrevious(t *testing.T) {
	env := newUploadTestEnv(t)
	sess := env.sessions.CreateSession()

	body, contentType := multipartBody(t, "file", "first.pdf", []byte("first"))
	c, _ := env.stageContext(sess.ID, body, contentType)
	if err := env.handler.HandleStageFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, contentType = multipartBody(t, "file", "second.pdf", []byte("second"))
	c, _ = env.stageContext(sess.ID, body, contentType)
	if err := env.handler.HandleStageFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending, ok := env.spool.Pending(sess.ID)
	if !ok || pending.Name != "second.pdf" {
		t.Errorf("expected second.pdf staged, got %+v", pending)
	}
}

func TestUploadHandler_HandleGetAndClearPending(t *testing.T) {
	env := newUploadTestEnv(t)
	sess := env.sessions.CreateSession()

	// Nothing staged yet.
	req := httptest.NewRequest(http.MethodGet, "/api/chat/"+sess.ID+"/pending", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sess.ID)

	err := env.handler.HandleGetPending(c)
	if apiErr, ok := err.(*APIError); !ok || apiErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND with nothing staged, got %v", err)
	}

	body, contentType := multipartBody(t, "file", "doc.pdf", []byte("%PDF-1.4"))
	c, _ = env.stageContext(sess.ID, body, contentType)
	if err := env.handler.HandleStageFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chat/"+sess.ID+"/pending", nil)
	rec = httptest.NewRecorder()
	c = env.e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sess.ID)
	if err := env.handler.HandleGetPending(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var info models.PendingUpload
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if info.Name != "doc.pdf" {
		t.Errorf("unexpected pending name: %s", info.Name)
	}

	// Deselect.
	req = httptest.NewRequest(http.MethodDelete, "/api/chat/"+sess.ID+"/pending", nil)
	rec = httptest.NewRecorder()
	c = env.e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(sess.ID)
	if err := env.handler.HandleClearPending(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if _, ok := env.spool.Pending(sess.ID); ok {
		t.Error("pending upload should be cleared")
	}
}

func TestUploadHandler_HandleSubmitUpload_NothingStaged(t *testing.T) {
	env := newUploadTestEnv(t)
	sess := env.sessions.CreateSession()

	c, _ := env.submitContext(sess.ID)
	err := env.handler.HandleSubmitUpload(c)

	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	if len(env.mock.UploadCalls()) != 0 {
		t.Error("backend must not be called with nothing staged")
	}
}

func TestUploadHandler_HandleSubmitUpload_SuccessConsumesPending(t *testing.T) {
	env := newUploadTestEnv(t)
	sess := env.sessions.CreateSession()

	if _, err := env.spool.Stage(sess.ID, "doc.pdf", bytes.NewReader([]byte("%PDF-1.4 data"))); err != nil {
		t.Fatalf("failed to stage: %v", err)
	}

	c, rec := env.submitContext(sess.ID)
	if err := env.handler.HandleSubmitUpload(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Uploaded {
		t.Error("expected uploaded=true")
	}
	if resp.Message != UploadSuccessText {
		t.Errorf("unexpected message: %q", resp.Message)
	}

	calls := env.mock.UploadCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(calls))
	}
	if calls[0].Name != "doc.pdf" || string(calls[0].Data) != "%PDF-1.4 data" {
		t.Errorf("unexpected upload payload: %+v", calls[0])
	}

	if _, ok := env.spool.Pending(sess.ID); ok {
		t.Error("successful upload must consume the pending file")
	}

	status, _ := env.sessions.Snapshot(sess.ID)
	if status.Uploading {
		t.Error("uploading flag still set after request settled")
	}
}

func TestUploadHandler_HandleSubmitUpload_FailureRetainsPending(t *testing.T) {
	env := newUploadTestEnv(t)
	env.mock.UploadFunc = func(ctx context.Context, name string, r io.Reader) (*backend.UploadResult, error) {
		return nil, fmt.Errorf("backend unavailable")
	}
	sess := env.sessions.CreateSession()

	env.spool.Stage(sess.ID, "doc.pdf", bytes.NewReader([]byte("%PDF-1.4")))

	c, rec := env.submitContext(sess.ID)
	if err := env.handler.HandleSubmitUpload(c); err != nil {
		t.Fatalf("failure should be folded into the response, got %v", err)
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Uploaded {
		t.Error("expected uploaded=false")
	}
	if resp.Message != UploadFailedText {
		t.Errorf("unexpected message: %q", resp.Message)
	}

	// The staged file survives so the user can retry without reselecting.
	pending, ok := env.spool.Pending(sess.ID)
	if !ok || pending.Name != "doc.pdf" {
		t.Error("failed upload must retain the pending file")
	}

	status, _ := env.sessions.Snapshot(sess.ID)
	if status.Uploading {
		t.Error("uploading flag still set after request settled")
	}
}

func TestUploadHandler_HandleSubmitUpload_ConcurrentConflict(t *testing.T) {
	env := newUploadTestEnv(t)
	sess := env.sessions.CreateSession()

	env.spool.Stage(sess.ID, "doc.pdf", bytes.NewReader([]byte("%PDF-1.4")))

	if err := env.sessions.BeginUpload(sess.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer env.sessions.EndUpload(sess.ID)

	c, _ := env.submitContext(sess.ID)
	err := env.handler.HandleSubmitUpload(c)

	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Status != http.StatusConflict {
		t.Errorf("expected 409 conflict, got %v", err)
	}
	if len(env.mock.UploadCalls()) != 0 {
		t.Error("backend must not be called while an upload is in flight")
	}
	if _, ok := env.spool.Pending(sess.ID); !ok {
		t.Error("rejected submission must not consume the pending file")
	}
}

func TestUploadHandler_HandleSubmitUpload_UnknownSession(t *testing.T) {
	env := newUploadTestEnv(t)

	c, _ := env.submitContext("no-such-session")
	err := env.handler.HandleSubmitUpload(c)

	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
