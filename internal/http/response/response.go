// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON-ответов HTTP-обработчиков. Успешный ответ — объект
// с полем data, ошибка — объект с полем error.
package response

import (
	"fmt"

	"github.com/go-playground/validator"
)

// SuccessResponse — конверт успешного ответа.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse — конверт ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// Success возвращает успешный ответ с переданными данными.
func Success(data any) SuccessResponse {
	return SuccessResponse{Data: data}
}

// Error возвращает ответ с переданным сообщением об ошибке.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// ValidationError формирует ответ по первой ошибке валидации:
// клиенту возвращается одно человеко-читаемое сообщение.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	if len(errs) == 0 {
		return Error("validation error")
	}

	err := errs[0]
	switch err.ActualTag() {
	case "required":
		return Error(fmt.Sprintf("field %s is a required field", err.Field()))
	case "min":
		return Error(fmt.Sprintf("field %s is too short", err.Field()))
	case "url":
		return Error(fmt.Sprintf("field %s must be a valid url", err.Field()))
	default:
		return Error(fmt.Sprintf("field %s is not a valid", err.Field()))
	}
}
