package entity

import "errors"

// Store-level sentinel errors shared by every repository implementation.
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with this email already exists")
)
