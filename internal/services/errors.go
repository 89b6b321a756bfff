package services

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrBadCreds = errors.New("invalid email or password")
)
