package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/ideagraph/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct 校验失败时返回第一个字段的 ValidationError
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return apperr.Validation("%s", err.Error())
	}
	fe := ves[0]
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", field)
	case "email":
		return apperr.Validation("%s is not a valid email address", field)
	case "min":
		return apperr.Validation("%s must be at least %s characters", field, fe.Param())
	case "max":
		return apperr.Validation("%s must be at most %s characters", field, fe.Param())
	case "eqfield":
		return apperr.Validation("passwords do not match")
	default:
		return apperr.Validation("%s is invalid", field)
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
