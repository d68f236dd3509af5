package session_api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
)

// HandleGet returns the full session document.
func HandleGet(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		session, err := svc.GetSession(c.Request().Context(), sessionID)
		if err != nil {
			return common.ServiceError(err)
		}
		return c.JSON(http.StatusOK, session)
	}
}
