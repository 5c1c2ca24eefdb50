package domain

import (
	"errors"
	"fmt"
)

// 定价错误类别。所有类别都在计算开始前检测，不做任何截断或默认修正。
var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrArbitrageViolation  = errors.New("arbitrage violation")
	ErrDegenerateStatistic = errors.New("degenerate statistic")
)

// 错误码，用于事件与接口层
const (
	CodeInvalidParameter    = "INVALID_PARAMETER"
	CodeArbitrageViolation  = "ARBITRAGE_VIOLATION"
	CodeDegenerateStatistic = "DEGENERATE_STATISTIC"
	CodeInternal            = "INTERNAL"
)

// PricingError 带字段信息的定价错误
type PricingError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *PricingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%v: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *PricingError) Unwrap() error { return e.Kind }

func invalidParameter(field, format string, args ...any) error {
	return &PricingError{Kind: ErrInvalidParameter, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func arbitrageViolation(format string, args ...any) error {
	return &PricingError{Kind: ErrArbitrageViolation, Field: "probability", Reason: fmt.Sprintf(format, args...)}
}

func degenerateStatistic(format string, args ...any) error {
	return &PricingError{Kind: ErrDegenerateStatistic, Field: "paths", Reason: fmt.Sprintf(format, args...)}
}

// InvalidParameter 供应用层构造参数错误（例如服务端资源上限）
func InvalidParameter(field, format string, args ...any) error {
	return invalidParameter(field, format, args...)
}

// ErrorCode 将错误映射为错误码
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidParameter):
		return CodeInvalidParameter
	case errors.Is(err, ErrArbitrageViolation):
		return CodeArbitrageViolation
	case errors.Is(err, ErrDegenerateStatistic):
		return CodeDegenerateStatistic
	default:
		return CodeInternal
	}
}
