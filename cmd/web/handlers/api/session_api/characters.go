package session_api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
)

type selectRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// HandleGenerateCharacters produces four character candidates.
func HandleGenerateCharacters(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		candidates, err := svc.GenerateCharacters(c.Request().Context(), sessionID)
		if err != nil {
			return common.ServiceError(err)
		}
		return c.JSON(http.StatusOK, candidates)
	}
}

// HandleSelectCharacter records the chosen character candidate.
func HandleSelectCharacter(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		var req selectRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		if err := svc.SelectCharacter(c.Request().Context(), sessionID, req.URL); err != nil {
			return common.ServiceError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
