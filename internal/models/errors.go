package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors used throughout the application
var (
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrNotFound           = errors.New("not found")
	ErrTransport          = errors.New("backend unreachable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmptySelection     = errors.New("select at least one item")
	ErrCheckoutInFlight   = errors.New("checkout already in progress")
	ErrViewClosed         = errors.New("view closed")
	ErrConfirmationDenied = errors.New("action not confirmed")
)

// AuthError is returned for 401 and 403 responses
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth failure (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("auth failure (status %d): %s", e.StatusCode, e.Message)
}

func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthorized
}

// BusinessError is a non-auth rejection carrying the backend's message
type BusinessError struct {
	StatusCode int
	Message    string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("backend rejected request (status %d): %s", e.StatusCode, e.Message)
}

func (e *BusinessError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// TransportError means no response was received from the backend
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsAuthFailure reports whether err should send the user to the login surface
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// BusinessMessage extracts the backend message from err, if any
func BusinessMessage(err error) (string, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message, true
	}
	return "", false
}
