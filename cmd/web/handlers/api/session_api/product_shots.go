package session_api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
)

// HandleGenerateProductShots composites the selected character with the
// product reference in four styles.
func HandleGenerateProductShots(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		candidates, err := svc.GenerateProductShots(c.Request().Context(), sessionID)
		if err != nil {
			return common.ServiceError(err)
		}
		return c.JSON(http.StatusOK, candidates)
	}
}

// HandleSelectProductShot records the chosen product composite.
func HandleSelectProductShot(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		var req selectRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		if err := svc.SelectProductShot(c.Request().Context(), sessionID, req.URL); err != nil {
			return common.ServiceError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
