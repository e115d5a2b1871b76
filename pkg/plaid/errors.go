package plaid

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
)

// Error codes callers commonly branch on.
const (
	ErrorCodeInvalidAccessToken = "INVALID_ACCESS_TOKEN"
	ErrorCodeInvalidPublicToken = "INVALID_PUBLIC_TOKEN"
	ErrorCodeItemLoginRequired  = "ITEM_LOGIN_REQUIRED"
	ErrorCodeProductNotReady    = "PRODUCT_NOT_READY"
	ErrorCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrorCodeItemNotFound       = "ITEM_NOT_FOUND"
)

// Error types returned in the error_type field.
const (
	ErrorTypeInvalidRequest = "INVALID_REQUEST"
	ErrorTypeInvalidInput   = "INVALID_INPUT"
	ErrorTypeItemError      = "ITEM_ERROR"
	ErrorTypeAPIError       = "API_ERROR"
	ErrorTypeRateLimit      = "RATE_LIMIT_EXCEEDED"
)

// ErrorEnvelope is the body Plaid sends with every non-200 response. Items
// also carry one when they are in an error state.
type ErrorEnvelope struct {
	RequestID      string  `json:"request_id"`
	ErrorType      string  `json:"error_type"`
	ErrorCode      string  `json:"error_code"`
	ErrorMessage   string  `json:"error_message"`
	DisplayMessage *string `json:"display_message"`
}

// APIError is a decoded error envelope plus the HTTP status it arrived with.
type APIError struct {
	RequestID      string
	ErrorType      string
	ErrorCode      string
	ErrorMessage   string
	DisplayMessage *string
	StatusCode     int
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("plaid error (request_id=%s, status=%d): %s/%s: %s", e.RequestID, e.StatusCode, e.ErrorType, e.ErrorCode, e.ErrorMessage)
	if e.DisplayMessage != nil && *e.DisplayMessage != "" {
		msg += fmt.Sprintf(" (display: %s)", *e.DisplayMessage)
	}
	return msg
}

func (e *APIError) UpstreamStatus() int       { return e.StatusCode }
func (e *APIError) UpstreamRequestID() string { return e.RequestID }
func (e *APIError) UpstreamType() string      { return e.ErrorType }
func (e *APIError) UpstreamCode() string      { return e.ErrorCode }

// AsAPIError returns the APIError in err's chain, if any.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsErrorCode reports whether err is an APIError with the given error_code.
func IsErrorCode(err error, code string) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.ErrorCode == code
}

// IsTransportError reports whether the call failed before an HTTP response was read.
func IsTransportError(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeTransport)
}

// IsDecodeError reports whether a response body did not match the expected schema.
func IsDecodeError(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeDecode)
}

func (e ErrorEnvelope) apiError(status int) (*APIError, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"request_id", e.RequestID},
		{"error_type", e.ErrorType},
		{"error_code", e.ErrorCode},
		{"error_message", e.ErrorMessage},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("error body is missing %s", strings.Join(missing, ", "))
	}
	return &APIError{
		RequestID:      e.RequestID,
		ErrorType:      e.ErrorType,
		ErrorCode:      e.ErrorCode,
		ErrorMessage:   e.ErrorMessage,
		DisplayMessage: e.DisplayMessage,
		StatusCode:     status,
	}, nil
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
