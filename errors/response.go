package errors

import (
	stderrors "errors"
)

// ErrorResponse is the JSON structure returned by probe endpoints.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients. Stacks are never
// included.
type ErrorBody struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	var details map[string]any
	for k, v := range e.Details {
		if k == detailStack {
			continue
		}
		if details == nil {
			details = make(map[string]any, len(e.Details))
		}
		details[k] = v
	}
	return ErrorResponse{
		Error: ErrorBody{Code: e.Code, Message: e.Message, Details: details},
	}
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternal for any other non-nil error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// StackOf returns the goroutine stack recorded for a recovered panic, if any.
func StackOf(err error) string {
	appErr, ok := AsAppError(err)
	if !ok {
		return ""
	}
	s, _ := appErr.Details[detailStack].(string)
	return s
}
