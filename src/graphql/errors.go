package graphql

import (
	"errors"

	"go-order-graphql/src/services/order/domain"
)

const codeInternal = "INTERNAL_ERROR"

// apiError is the client facing form of a failed operation. Its extensions
// are copied into the response by the executor.
type apiError struct {
	message   string
	code      string
	field     string
	retryable bool
}

func (e *apiError) Error() string { return e.message }

func (e *apiError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.code}
	if e.field != "" {
		ext["field"] = e.field
	}
	if e.retryable {
		ext["retryable"] = true
	}
	return ext
}

// toAPIError maps an error of the domain taxonomy to its stable code.
// Anything else is reported as an internal error without its details.
func toAPIError(err error) *apiError {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return &apiError{message: validationErr.Error(), code: domain.CodeValidation, field: validationErr.Field}
	}

	var unavailable *domain.StoreUnavailableError
	if errors.As(err, &unavailable) {
		return &apiError{message: "order store is temporarily unavailable", code: domain.CodeStoreUnavailable, retryable: true}
	}

	if code, ok := domain.ErrorCode(err); ok {
		return &apiError{message: err.Error(), code: code}
	}
	return &apiError{message: "internal error", code: codeInternal}
}
