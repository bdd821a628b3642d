package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyMerged   = errors.New("session already merged")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidFieldSet = errors.New("invalid field set")
)
