package session_api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
	"github.com/adreel/adreel/internal/creative"
)

type createRequest struct {
	UserID    uuid.UUID `json:"userId" validate:"required"`
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Title     string    `json:"title" validate:"max=200"`
}

// HandleCreate starts a new draft session for a product.
func HandleCreate(svc *creative.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		session, err := svc.CreateSession(c.Request().Context(), req.UserID, req.ProductID, req.Title)
		if err != nil {
			return common.ServiceError(err)
		}
		return c.JSON(http.StatusCreated, session)
	}
}
