// Package usage_api exposes the in-process generative usage counters.
package usage_api

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/internal/usage"
)

// HandleTotals returns the per-model generative call aggregates.
func HandleTotals(counter *usage.Counter) echo.HandlerFunc {
	return func(c echo.Context) error {
		totals := counter.Totals()
		sort.Slice(totals, func(i, j int) bool {
			if totals[i].Kind != totals[j].Kind {
				return totals[i].Kind < totals[j].Kind
			}
			return totals[i].Model < totals[j].Model
		})
		return c.JSON(http.StatusOK, totals)
	}
}
