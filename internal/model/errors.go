package model

import "errors"

// Error categories. Producers wrap these with fmt.Errorf("%w: ...") and
// callers test with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrParse           = errors.New("parse error")
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
)
