// Package validate wraps go-playground/validator with readable error output.
package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a struct's fields against their validate tags
func Struct[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, toReadableError(value, err)
	}
	return value, nil
}

func toReadableError(input any, err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		msg := ""
		for _, fe := range verrs {
			msg += fmt.Sprintf("\n • Failed %T validation for field '%s': rule '%s' expected '%s', got '%v'.", input, fe.StructField(), fe.Tag(), fe.Param(), fe.Value())
		}
		return errors.New(msg)
	}
	return err
}
