package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	minDaysBack = 1
	maxDaysBack = 365
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Имена полей в ошибках берем из json-тегов
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})

	return v
}

// ValidateDaysBack проверяет окно отчета в днях
func ValidateDaysBack(field string, days int) error {
	if days < minDaysBack || days > maxDaysBack {
		return newValidationError(field, "must be between 1 and 365")
	}
	return nil
}
