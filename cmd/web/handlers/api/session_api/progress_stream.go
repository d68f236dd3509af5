package session_api

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/stitch"
)

// HandleProgressStream streams stitch progress over SSE, patching the
// snapshot as datastar signals until the session reaches a terminal state.
func HandleProgressStream(svc *creative.Service, stitcher *stitch.Stitcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		common.SetSSEHeaders(c)
		sse := datastar.NewSSE(c.Response().Writer, c.Request())

		ctx := c.Request().Context()
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		// Add timeout to prevent zombie connections
		timeout := time.NewTimer(15 * time.Minute)
		defer timeout.Stop()

		var last progressResponse

		for {
			select {
			case <-ctx.Done():
				slog.Info("SSE connection closed by client", "session_id", sessionID)
				return nil
			case <-timeout.C:
				slog.Warn("SSE connection timeout", "session_id", sessionID)
				return nil
			case <-ticker.C:
				snapshot, err := progressSnapshot(ctx, svc, stitcher, sessionID)
				if err != nil {
					slog.Error("failed to fetch progress for SSE", "error", err, "session_id", sessionID)
					return err
				}

				if *snapshot == last {
					continue
				}
				last = *snapshot

				signals, _ := json.Marshal(map[string]any{
					"_stitchStatus":   snapshot.Status,
					"_stitchStage":    snapshot.Stage,
					"_stitchPercent":  snapshot.Percent,
					"_stitchMessage":  snapshot.Message,
					"_stitchVideoUrl": snapshot.VideoURL,
				})
				if err := sse.PatchSignals(signals); err != nil {
					slog.Error("failed to send SSE patch", "error", err, "session_id", sessionID)
					return err
				}

				if snapshot.Status == models.SessionCompleted || snapshot.Status == models.SessionFailed {
					slog.Info("stitch finished, closing SSE connection",
						"session_id", sessionID, "status", snapshot.Status)
					return nil
				}
			}
		}
	}
}
