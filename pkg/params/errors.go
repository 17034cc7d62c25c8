package params

import "errors"

// InvalidParamError is returned for every rejected search parameter.
// Message is user facing.
type InvalidParamError struct {
	Field   string
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

func newInvalidParam(field, message string) *InvalidParamError {
	return &InvalidParamError{Field: field, Message: message}
}

// IsInvalidParam reports whether err is, or wraps, an InvalidParamError
func IsInvalidParam(err error) bool {
	var target *InvalidParamError
	return errors.As(err, &target)
}
