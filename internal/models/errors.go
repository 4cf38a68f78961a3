package models

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks malformed requests and feature vectors.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProtectedKeyword is returned when deleting a system-default keyword.
	ErrProtectedKeyword = errors.New("keyword is a system default and cannot be deleted")
	// ErrInsufficientData is returned when a training corpus fails the sample gates.
	ErrInsufficientData = errors.New("insufficient training data")
)
