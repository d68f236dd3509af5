package session_api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/stitch"
)

// HandleStitch kicks off final assembly of the session's scene clips and
// returns immediately. Progress is observed through the progress routes;
// the session flips to completed or failed when the background work ends.
func HandleStitch(svc *creative.Service, stitcher *stitch.Stitcher) echo.HandlerFunc {
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
		if err := svc.MarkStitchStarted(ctx, sessionID); err != nil {
			return common.ServiceError(err)
		}

		// The stitch outlives the request that started it.
		bg := context.WithoutCancel(ctx)
		go func() {
			url, sceneCount, err := stitcher.Stitch(bg, session)
			if err != nil {
				slog.Error("stitch failed", "session_id", sessionID, "error", err)
				if err := svc.MarkStitchFailed(bg, sessionID); err != nil {
					slog.Error("failed to record stitch failure", "session_id", sessionID, "error", err)
				}
				return
			}
			if err := svc.MarkStitchFinished(bg, sessionID, url, sceneCount); err != nil {
				slog.Error("failed to record stitch result", "session_id", sessionID, "error", err)
			}
		}()

		return c.NoContent(http.StatusAccepted)
	}
}
