package apperr

import (
	"errors"
	"net/http"
)

// Kind clasifica los errores de negocio del servicio.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindNotFound
	KindEmailVerified
	KindTokenMissing
	KindTokenMalformed
	KindTokenExpired
	KindTokenPayloadInvalid
	KindTokenVerificationFailed
	KindValidation
	KindRateLimited
	KindHashingFailed
	KindComparisonFailed
)

// FieldError describe un fallo de validación de un campo individual.
type FieldError struct {
	Message string `json:"message"`
}

// Error es el error tipado que cruza las capas del servicio. Cada Kind
// tiene un código estable y un status HTTP asociado.
type Error struct {
	Kind    Kind
	Code    string
	Status  int
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is compara por Kind, para poder usar errors.Is contra un sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf devuelve el Kind de err, o KindUnknown si no es un *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Authentication(message string, status int) *Error {
	return &Error{Kind: KindAuthentication, Code: "ERR_AUTH", Status: status, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: "ERR_NOT_FOUND", Status: http.StatusNotFound, Message: message}
}

func EmailAlreadyVerified(message string) *Error {
	return &Error{Kind: KindEmailVerified, Code: "ERR_EMAIL_ALREADY_VERIFIED", Status: http.StatusBadRequest, Message: message}
}

func TokenMissing(message string) *Error {
	return &Error{Kind: KindTokenMissing, Code: "ERR_TOKEN_REQUIRED", Status: http.StatusBadRequest, Message: message}
}

func TokenMalformed(message string) *Error {
	return &Error{Kind: KindTokenMalformed, Code: "ERR_INVALID_TOKEN", Status: http.StatusBadRequest, Message: message}
}

func TokenExpired(message string) *Error {
	return &Error{Kind: KindTokenExpired, Code: "ERR_TOKEN_EXPIRED", Status: http.StatusUnauthorized, Message: message}
}

func TokenPayloadInvalid(message string) *Error {
	return &Error{Kind: KindTokenPayloadInvalid, Code: "ERR_INVALID_PAYLOAD", Status: http.StatusBadRequest, Message: message}
}

func TokenVerificationFailed(message string, cause error) *Error {
	return &Error{Kind: KindTokenVerificationFailed, Code: "ERR_TOKEN_VERIFICATION", Status: http.StatusBadRequest, Message: message, cause: cause}
}

func Validation(message string, fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Code: "ERR_VALIDATION", Status: http.StatusBadRequest, Message: message, Fields: fields}
}

func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Code: "ERR_RATE_LIMITED", Status: http.StatusTooManyRequests, Message: message}
}

func HashingFailed(cause error) *Error {
	return &Error{Kind: KindHashingFailed, Code: "ERR_HASHING", Status: http.StatusInternalServerError, Message: "Password hashing failed", cause: cause}
}

func ComparisonFailed(cause error) *Error {
	return &Error{Kind: KindComparisonFailed, Code: "ERR_COMPARE", Status: http.StatusInternalServerError, Message: "Password comparison failed", cause: cause}
}
