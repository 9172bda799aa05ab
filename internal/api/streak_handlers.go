package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/service"
)

// GetStreaks returns the regenerated streak summary for the user.
func GetStreaks(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := trackerFor(c, app)
		if t == nil {
			return
		}
		HandleSuccess(c, app.Logger(), t.StreakSummary(), nil)
	}
}

// PutGoal sets the daily target for one metric and triggers a full
// streak recompute.
func PutGoal(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := trackerFor(c, app)
		if t == nil {
			return
		}
		var req service.GoalTargetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid request: metric and target required")
			return
		}
		if err := service.ValidateGoalTargetRequest(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Goal validation failed")
			return
		}
		if err := t.SetGoalTarget(c.Request.Context(), internal.MetricKind(req.Metric), req.Target); err != nil {
			HandleError(c, app.Logger(), err, 400, "Failed to set goal target")
			return
		}
		HandleSuccess(c, app.Logger(), t.StreakSummary(), nil)
	}
}
