// handlers_upload.go - Pending-upload staging and submission handlers
package api

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/doc-chat/frontend/internal/backend"
	"github.com/doc-chat/frontend/internal/session"
	"github.com/doc-chat/frontend/internal/staging"
	"github.com/labstack/echo/v4"
)

// Fixed user-visible notices for the upload action. As with questions, the
// cause of a failure is logged but never surfaced.
const (
	UploadSuccessText = "✅ PDF uploaded."
	UploadFailedText  = "❌ Failed to upload the PDF."
)

// UploadHandlerImpl implements the UploadHandler interface.
type UploadHandlerImpl struct {
	sessions *session.Manager
	spool    staging.Spool
	backend  backend.Backend
}

// NewUploadHandler creates a new upload handler instance.
func NewUploadHandler(sessions *session.Manager, spool staging.Spool, b backend.Backend) UploadHandler {
	return &UploadHandlerImpl{
		sessions: sessions,
		spool:    spool,
		backend:  b,
	}
}

// HandleStageFile stages a selected PDF as the session's pending upload,
// replacing any previously staged file. Nothing is sent to the backend
// until the upload is submitted.
func (h *UploadHandlerImpl) HandleStageFile(c echo.Context) error {
	id := c.Param("sessionId")

	if _, ok := h.sessions.GetSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return NewBadRequestError("only PDF files are supported", nil)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.spool.Stage(id, file.Filename, src)
	if err != nil {
		return NewInternalError("failed to stage file", err)
	}
	h.sessions.TouchSession(id)

	return c.JSON(http.StatusCreated, info)
}

// HandleGetPending returns metadata for the session's staged file.
func (h *UploadHandlerImpl) HandleGetPending(c echo.Context) error {
	id := c.Param("sessionId")

	if _, ok := h.sessions.GetSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	info, ok := h.spool.Pending(id)
	if !ok {
		return NewNotFoundError("pending upload", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleClearPending unstages the session's pending upload.
func (h *UploadHandlerImpl) HandleClearPending(c echo.Context) error {
	id := c.Param("sessionId")

	if _, ok := h.sessions.GetSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	if err := h.spool.Clear(id); err != nil {
		return NewInternalError("failed to clear pending upload", err)
	}

	return c.NoContent(http.StatusNoContent)
}

type uploadResponse struct {
	Uploaded bool                 `json:"uploaded"`
	Message  string               `json:"message"`
	Results  []backend.FileResult `json:"results,omitempty"`
}

// HandleSubmitUpload sends the staged file to the backend's ingestion
// endpoint. On success the pending upload is consumed; on failure it is
// retained so the user can retry without reselecting. The uploading flag is
// held for the duration and released on every path.
func (h *UploadHandlerImpl) HandleSubmitUpload(c echo.Context) error {
	id := c.Param("sessionId")

	if _, ok := h.sessions.GetSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	// Nothing staged is a validation stop, not an upload attempt.
	src, info, err := h.spool.Open(id)
	if err != nil {
		return NewValidationError("file")
	}
	defer src.Close()

	if err := h.sessions.BeginUpload(id); err != nil {
		if err == session.ErrBusy {
			return NewConflictError("an upload is already in progress")
		}
		return NewNotFoundError("session", id)
	}
	defer h.sessions.EndUpload(id)

	result, err := h.backend.UploadPDFs(c.Request().Context(), info.Name, src)
	if err != nil {
		slog.Error("upload_pdfs failed", "session", id, "file", info.Name, "error", err)
		return c.JSON(http.StatusOK, uploadResponse{
			Uploaded: false,
			Message:  UploadFailedText,
		})
	}

	if err := h.spool.Clear(id); err != nil {
		slog.Warn("failed to clear consumed upload", "session", id, "error", err)
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Uploaded: true,
		Message:  UploadSuccessText,
		Results:  result.Results,
	})
}
