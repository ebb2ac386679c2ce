package domain

import "errors"

var (
	ErrEmptyDataset      = errors.New("dataset has no questions")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrInvalidArguments  = errors.New("invalid tool arguments")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrRunNotFound       = errors.New("run not found")
	ErrCredentialMissing = errors.New("credential not found")
	ErrReadOnlyStore     = errors.New("credential store is read-only")
)
