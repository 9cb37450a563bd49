package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter 参数违反正值或取值范围约束
var ErrInvalidParameter = errors.New("invalid parameter")

// InvalidParameterError 标识具体违规的字段
type InvalidParameterError struct {
	Field  string
	Value  float64
	Reason string

	textual bool
}

func (e *InvalidParameterError) Error() string {
	if e.textual {
		return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is 使 errors.Is(err, ErrInvalidParameter) 成立
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func invalidParameter(field string, value float64, reason string) error {
	return &InvalidParameterError{Field: field, Value: value, Reason: reason}
}

// invalidField 非数值字段的参数错误
func invalidField(field, reason string) error {
	return &InvalidParameterError{Field: field, Reason: reason, textual: true}
}

func requireFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalidParameter(field, v, "must be a finite number")
	}
	return nil
}

func requirePositive(field string, v float64) error {
	if err := requireFinite(field, v); err != nil {
		return err
	}
	if v <= 0 {
		return invalidParameter(field, v, "must be strictly positive")
	}
	return nil
}

func requireNonNegative(field string, v float64) error {
	if err := requireFinite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return invalidParameter(field, v, "must be non-negative")
	}
	return nil
}

// NewInvalidParameterError 供上层对请求字段报告参数错误
func NewInvalidParameterError(field, reason string) error {
	return invalidField(field, reason)
}
