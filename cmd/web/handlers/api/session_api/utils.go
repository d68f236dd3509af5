// Package session_api exposes the creative pipeline over HTTP: session
// lifecycle, stage generation and selection, scene editing, per-scene video
// jobs, and stitching.
package session_api

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/cmd/web/handlers/common"
)

var validate = validator.New()

// bindAndValidate decodes the request body into v and runs struct
// validation, returning a 400 on either failure.
func bindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return common.ErrBadRequest("invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		return common.ErrBadRequest(err.Error())
	}
	return nil
}
