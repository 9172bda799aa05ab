package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/service"
)

// GetToday returns the current in-progress daily snapshot.
func GetToday(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := trackerFor(c, app)
		if t == nil {
			return
		}
		HandleSuccess(c, app.Logger(), t.Snapshot(), nil)
	}
}

// GetHistory returns persisted snapshots, oldest first.
func GetHistory(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := trackerFor(c, app)
		if t == nil {
			return
		}
		snaps, err := t.History(c.Request.Context())
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch history")
			return
		}
		HandleSuccess(c, app.Logger(), snaps, nil)
	}
}

// PutOverride records a manual value for one metric. An explicit zero is
// accepted; the user outranks every provider.
func PutOverride(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := trackerFor(c, app)
		if t == nil {
			return
		}
		metric := internal.MetricKind(c.Param("metric"))

		var body service.OverrideRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateOverrideRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}
		if err := t.SetOverride(c.Request.Context(), metric, *body.Value); err != nil {
			HandleError(c, app.Logger(), err, 400, "Failed to apply override")
			return
		}
		HandleSuccess(c, app.Logger(), t.Snapshot(), nil)
	}
}

// PostRefresh triggers an on-demand re-synchronization; concurrent
// requests coalesce into the in-flight one.
func PostRefresh(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := trackerFor(c, app)
		if t == nil {
			return
		}
		outcome := t.RequestRefresh(c.Request.Context())
		meta := map[string]any{
			"success":        outcome.Success(),
			"coalesced":      outcome.Coalesced,
			"duration_ms":    outcome.Duration.Milliseconds(),
			"total_failures": t.RefreshFailures(),
		}
		if !outcome.Success() {
			meta["reason"] = outcome.Err.Error()
		}
		HandleSuccess(c, app.Logger(), t.Snapshot(), meta)
	}
}
