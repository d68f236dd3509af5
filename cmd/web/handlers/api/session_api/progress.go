package session_api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/stitch"
)

type progressResponse struct {
	Status   models.SessionStatus `json:"status"`
	Stage    string               `json:"stage"`
	Percent  int                  `json:"percent"`
	Message  string               `json:"message"`
	VideoURL string               `json:"videoUrl,omitempty"`
}

// HandleProgress reports the session's stitch progress. A live stitch
// tracker, when present, wins over the coarse persisted value.
func HandleProgress(svc *creative.Service, stitcher *stitch.Stitcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		resp, err := progressSnapshot(c.Request().Context(), svc, stitcher, sessionID)
		if err != nil {
			return common.ServiceError(err)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func progressSnapshot(ctx context.Context, svc *creative.Service, stitcher *stitch.Stitcher, sessionID uuid.UUID) (*progressResponse, error) {
	session, err := svc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &progressResponse{
		Status:   session.Status,
		Percent:  session.VideoProgress,
		VideoURL: session.FinalVideoURL,
	}
	if live, ok := stitcher.Progress(sessionID); ok {
		resp.Stage = live.Stage
		resp.Percent = live.Percent
		resp.Message = live.Message
	}
	return resp, nil
}
