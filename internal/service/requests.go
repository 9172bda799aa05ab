package service

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// GoalTargetRequest sets the daily target for one metric.
type GoalTargetRequest struct {
	Metric string  `json:"metric" validate:"required"`
	Target float64 `json:"target" validate:"required,gt=0"`
}

func ValidateGoalTargetRequest(req *GoalTargetRequest) error {
	return validate.Struct(req)
}

// OverrideRequest records a manual value for one metric. Value is a
// pointer so an explicit zero survives validation; a user zeroing a
// metric is a real edit, not a missing field.
type OverrideRequest struct {
	Value *float64 `json:"value" validate:"required,gte=0"`
}

func ValidateOverrideRequest(req *OverrideRequest) error {
	return validate.Struct(req)
}
