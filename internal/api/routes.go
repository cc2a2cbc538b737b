// routes.go - Route registration helpers
package api

import (
	"github.com/doc-chat/frontend/internal/backend"
	"github.com/doc-chat/frontend/internal/session"
	"github.com/doc-chat/frontend/internal/staging"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Sessions *session.Manager
	Spool    staging.Spool
	Backend  backend.Backend
	Version  string
}

// Handlers holds all handler instances.
type Handlers struct {
	Chat   ChatHandler
	Upload UploadHandler
	Health HealthHandler
}

// NewHandlers creates all handler instances.
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Chat:   NewChatHandler(deps.Sessions, deps.Backend),
		Upload: NewUploadHandler(deps.Sessions, deps.Spool, deps.Backend),
		Health: NewHealthHandler(deps.Version),
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/api/health", handlers.Health.HandleHealth)

	chat := e.Group("/api/chat")
	chat.POST("/sessions", handlers.Chat.HandleCreateSession)
	chat.GET("/:sessionId", handlers.Chat.HandleGetSession)
	chat.POST("/:sessionId/ask", handlers.Chat.HandleAsk)
	chat.GET("/:sessionId/entries", handlers.Chat.HandleGetEntries)
	chat.GET("/:sessionId/entries/msgpack", handlers.Chat.HandleGetEntriesMsgpack)
	chat.POST("/:sessionId/keepalive", handlers.Chat.HandleKeepAlive)

	chat.POST("/:sessionId/pending", handlers.Upload.HandleStageFile)
	chat.GET("/:sessionId/pending", handlers.Upload.HandleGetPending)
	chat.DELETE("/:sessionId/pending", handlers.Upload.HandleClearPending)
	chat.POST("/:sessionId/upload", handlers.Upload.HandleSubmitUpload)
}
