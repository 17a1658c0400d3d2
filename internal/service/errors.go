package service

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("record not found")
	ErrInvalidModel       = errors.New("invalid model")
	ErrAIFailure          = errors.New("ai request failed")
	ErrValidation         = errors.New("required field is empty")
)
