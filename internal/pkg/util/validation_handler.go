package util

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// ValidateDTO 校验请求体，返回 validator.ValidationErrors 由 response.Error 统一转 400
func ValidateDTO(dto any) error {
	return validate.Struct(dto)
}
