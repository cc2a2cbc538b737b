// handlers_chat.go - Chat session and question handlers
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/doc-chat/frontend/internal/backend"
	"github.com/doc-chat/frontend/internal/models"
	"github.com/doc-chat/frontend/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// FailedAnswerText is the fixed transcript message shown when a question
// request fails for any reason. Causes are logged, never shown to the user.
const FailedAnswerText = "❌ Failed to get an answer."

// ChatHandlerImpl implements the ChatHandler interface.
type ChatHandlerImpl struct {
	sessions *session.Manager
	backend  backend.Backend
}

// NewChatHandler creates a new chat handler instance.
func NewChatHandler(sessions *session.Manager, b backend.Backend) ChatHandler {
	return &ChatHandlerImpl{
		sessions: sessions,
		backend:  b,
	}
}

// HandleCreateSession starts a new chat session with an empty transcript.
func (h *ChatHandlerImpl) HandleCreateSession(c echo.Context) error {
	sess := h.sessions.CreateSession()
	return c.JSON(http.StatusCreated, sess)
}

// HandleGetSession returns the session's current status snapshot.
func (h *ChatHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("sessionId")

	status, ok := h.sessions.Snapshot(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	h.sessions.TouchSession(id)

	return c.JSON(http.StatusOK, status)
}

type askQuestionRequest struct {
	Question string `json:"question"`
}

type askQuestionResponse struct {
	Question models.ChatEntry `json:"question"`
	Answer   models.ChatEntry `json:"answer"`
	Failed   bool             `json:"failed"`
}

// HandleAsk submits a question to the backend and folds the outcome into
// the transcript. A user entry is appended immediately; exactly one bot
// entry follows once the request settles, carrying either the answer or
// the fixed failure text. The thinking flag is held for the duration and
// released on every path.
func (h *ChatHandlerImpl) HandleAsk(c echo.Context) error {
	id := c.Param("sessionId")

	var req askQuestionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		// Empty submissions are dropped before any state changes.
		return NewValidationError("question")
	}

	if err := h.sessions.BeginAsk(id); err != nil {
		if err == session.ErrBusy {
			return NewConflictError("a question is already being answered")
		}
		return NewNotFoundError("session", id)
	}
	defer h.sessions.EndAsk(id)

	userEntry := models.NewChatEntry(models.RoleUser, question)
	h.sessions.AppendEntry(id, userEntry)

	var botEntry models.ChatEntry
	failed := false

	answer, err := h.backend.AskQuestion(c.Request().Context(), question)
	if err != nil {
		slog.Error("ask_question failed", "session", id, "error", err)
		botEntry = models.NewChatEntry(models.RoleBot, FailedAnswerText)
		failed = true
	} else {
		botEntry = models.NewChatEntry(models.RoleBot, answer)
	}
	h.sessions.AppendEntry(id, botEntry)

	// Backend failure is collapsed into the bot entry, not an HTTP error:
	// the transcript is the user-visible surface for this action.
	return c.JSON(http.StatusOK, askQuestionResponse{
		Question: userEntry,
		Answer:   botEntry,
		Failed:   failed,
	})
}

type entriesResponse struct {
	Entries []models.ChatEntry `json:"entries"`
	Total   int                `json:"total"`
}

// HandleGetEntries returns the full transcript in insertion order.
func (h *ChatHandlerImpl) HandleGetEntries(c echo.Context) error {
	id := c.Param("sessionId")

	entries, ok := h.sessions.Entries(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, entriesResponse{
		Entries: entries,
		Total:   len(entries),
	})
}

// HandleGetEntriesMsgpack returns the transcript as a msgpack blob for
// clients that prefer the compact encoding.
func (h *ChatHandlerImpl) HandleGetEntriesMsgpack(c echo.Context) error {
	id := c.Param("sessionId")

	entries, ok := h.sessions.Entries(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	data, err := msgpack.Marshal(map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
	if err != nil {
		return NewInternalError("failed to encode transcript", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleKeepAlive marks the session as in use so cleanup spares it.
func (h *ChatHandlerImpl) HandleKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")

	if !h.sessions.TouchSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}
