package api

import (
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/service"
)

type App interface {
	Logger() internal.Logger
	Trackers() *service.Registry
}
