package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/response"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/service"
)

func HandleError(c *gin.Context, logger internal.Logger, err error, status int, msg string) {
	requestID := c.GetString("request_id")
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	var resp response.APIResponse
	switch status {
	case 400:
		resp = response.BadRequest(msg + ": " + err.Error())
	case 404:
		resp = response.NotFound(msg + ": " + err.Error())
	case 500:
		resp = response.InternalError(msg + ": " + err.Error())
	default:
		resp = response.NewAppError(status, msg+": "+err.Error())
	}
	c.JSON(status, resp)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	requestID := c.GetString("request_id")
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(200, response.Success(data, meta))
}

// trackerFor resolves the authenticated user's pipeline; on failure it
// writes the error response and returns nil.
func trackerFor(c *gin.Context, app App) *service.Tracker {
	user := c.MustGet("user").(*internal.User)
	t, err := app.Trackers().Tracker(c.Request.Context(), *user)
	if err != nil {
		HandleError(c, app.Logger(), err, 500, "Failed to start tracker")
		return nil
	}
	return t
}
