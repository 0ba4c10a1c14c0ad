package serverutils

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs struct-tag validation and converts failures into a
// 400 AppError.
func ValidateRequest(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return NewAppError(http.StatusBadRequest, err.Error())
	}
	return nil
}
