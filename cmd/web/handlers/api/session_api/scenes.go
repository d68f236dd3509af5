package session_api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/models"
)

type scenesRequest struct {
	Scenes []models.Scene `json:"scenes" validate:"required,min=1,dive"`
}

type sceneImageRequest struct {
	Visuals string `json:"visuals" validate:"required"`
}

type sceneImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

// HandleUpdateScenes replaces the session's working scene list. Scenes the
// user excludes stay in the list so they can be re-included later.
func HandleUpdateScenes(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		var req scenesRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		if err := svc.UpdateScenes(c.Request().Context(), sessionID, req.Scenes); err != nil {
			return common.ServiceError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// HandleGenerateSceneImage synthesizes one scene still and writes its URL
// into the scene before returning it.
func HandleGenerateSceneImage(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}
		sceneIndex, err := common.RequireIntParam(c, "index")
		if err != nil {
			return err
		}

		var req sceneImageRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		ctx := c.Request().Context()
		url, err := svc.GenerateSceneImage(ctx, sessionID, sceneIndex, req.Visuals)
		if err != nil {
			return common.ServiceError(err)
		}

		session, err := svc.GetSession(ctx, sessionID)
		if err != nil {
			return common.ServiceError(err)
		}
		// The scene list may have been edited while the image generated.
		if sceneIndex < len(session.Scenes) {
			session.Scenes[sceneIndex].ImageURL = url
			if err := svc.UpdateScenes(ctx, sessionID, session.Scenes); err != nil {
				return common.ServiceError(err)
			}
		}

		return c.JSON(http.StatusOK, sceneImageResponse{ImageURL: url})
	}
}
