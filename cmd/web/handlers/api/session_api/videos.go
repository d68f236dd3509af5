package session_api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/scenejob"
)

type submitVideosResponse struct {
	JobIDs []uuid.UUID `json:"jobIds"`
}

// HandleSubmitVideos queues a video job for every scene with an image and
// returns as soon as the rows are written.
func HandleSubmitVideos(svc *creative.Service, jobs *scenejob.Processor) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		session, err := svc.GetSession(ctx, sessionID)
		if err != nil {
			return common.ServiceError(err)
		}

		jobIDs, err := jobs.SubmitAll(ctx, sessionID, session.Scenes)
		if err != nil {
			return common.ServiceError(err)
		}
		if len(jobIDs) == 0 {
			return common.ErrConflict("no scenes have images to animate")
		}
		return c.JSON(http.StatusAccepted, submitVideosResponse{JobIDs: jobIDs})
	}
}

// HandleVideoStatus returns the session's scene video jobs ordered by
// scene index. This is the polling surface for the scene-to-video stage.
func HandleVideoStatus(jobs *scenejob.Processor) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		status, err := jobs.Status(c.Request().Context(), sessionID)
		if err != nil {
			return common.ErrInternal("failed to load job status")
		}
		return c.JSON(http.StatusOK, status)
	}
}
