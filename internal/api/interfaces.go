// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import "github.com/labstack/echo/v4"

// ChatHandler handles chat session and question operations.
type ChatHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleAsk(c echo.Context) error
	HandleGetEntries(c echo.Context) error
	HandleGetEntriesMsgpack(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
}

// UploadHandler handles pending-upload staging and upload submission.
type UploadHandler interface {
	HandleStageFile(c echo.Context) error
	HandleGetPending(c echo.Context) error
	HandleClearPending(c echo.Context) error
	HandleSubmitUpload(c echo.Context) error
}

// HealthHandler handles health check operations.
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
