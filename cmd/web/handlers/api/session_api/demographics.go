package session_api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/models"
)

type demographicsRequest struct {
	AgeBand   string   `json:"ageBand" validate:"required"`
	Gender    string   `json:"gender"`
	Interests []string `json:"interests"`
	Tone      string   `json:"tone"`
}

// HandleDemographics records the target demographic and generates the ad
// script. Script generation degrades internally, so this only fails on
// unknown sessions or bad input.
func HandleDemographics(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		var req demographicsRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		script, err := svc.SetDemographics(c.Request().Context(), sessionID, models.TargetDemographic{
			AgeBand:   req.AgeBand,
			Gender:    req.Gender,
			Interests: req.Interests,
			Tone:      req.Tone,
		})
		if err != nil {
			return common.ServiceError(err)
		}
		return c.JSON(http.StatusOK, script)
	}
}
