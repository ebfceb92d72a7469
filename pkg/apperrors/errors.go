package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidProposal     = errors.New("invalid proposal")
	ErrFromVersionMismatch = errors.New("from_version mismatch")
)
