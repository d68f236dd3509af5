package session_api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
)

// HandleDelete removes the session, its job rows, and every blob it
// references.
func HandleDelete(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		if err := svc.DeleteSession(c.Request().Context(), sessionID); err != nil {
			return common.ServiceError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
