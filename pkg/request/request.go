// Package request 请求绑定：解析、填充默认值、结构校验
package request

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误中使用 json 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// BindJSON 绑定 JSON 请求体
func BindJSON(c *gin.Context, req any) []FieldError {
	return bind(c, req, binding.JSON)
}

// BindQuery 绑定查询参数
func BindQuery(c *gin.Context, req any) []FieldError {
	return bind(c, req, binding.Query)
}

// bind 先填充默认值再解析，请求中显式给出的零值会覆盖默认值
func bind(c *gin.Context, req any, b binding.Binding) []FieldError {
	if err := defaults.Set(req); err != nil {
		return toFieldErrors(err)
	}
	if err := c.ShouldBindWith(req, b); err != nil {
		return toFieldErrors(err)
	}
	if err := validate.StructCtx(c.Request.Context(), req); err != nil {
		return toFieldErrors(err)
	}
	return nil
}

// Validate 校验已解码的请求结构（例如 gRPC 或批量中的元素）。
// 此时只能为仍为零值的字段填充默认值，需要区分“省略”与“显式 0”的字段应声明为指针。
func Validate(req any) []FieldError {
	if err := defaults.Set(req); err != nil {
		return toFieldErrors(err)
	}
	if err := validate.Struct(req); err != nil {
		return toFieldErrors(err)
	}
	return nil
}

// Summary 将字段错误合并为一行
func Summary(errs []FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Message
	}
	return strings.Join(parts, "; ")
}

func toFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]FieldError, 0, len(ve))
		for _, fe := range ve {
			out = append(out, FieldError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fieldPath(fe),
				Message: message(fe),
			})
		}
		return out
	}
	return []FieldError{{Code: "ERR_MALFORMED", Message: err.Error()}}
}

// fieldPath 去掉顶层结构名，例如 PriceOptionRequest.barrier.level -> barrier.level
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
