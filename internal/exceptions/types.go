package exceptions

import (
	"errors"
	"fmt"
)

type ConflictError struct {
	Resource string
	Id       string
}

func (ce *ConflictError) Error() string {
	return fmt.Sprintf("Found conflicting %s with id: %s", ce.Resource, ce.Id)
}

func Conflict(resource string, id string) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Id:       id,
	}
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("Could not find a %s with id: %s", nfe.Resource, nfe.Id)
}

func NotFound(resource string, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Id:       id,
	}
}

type InvalidInputError struct {
	Message string
}

func (ie *InvalidInputError) Error() string {
	return ie.Message
}

func InvalidInput(message string) *InvalidInputError {
	return &InvalidInputError{
		Message: message,
	}
}

// ForbiddenError is an authorization or validation rejection by the remote
// store. It cannot be recovered locally.
type ForbiddenError struct {
	Cause error
}

func (fe *ForbiddenError) Error() string {
	return fmt.Sprintf("Remote store rejected the request: %v", fe.Cause)
}

func (fe *ForbiddenError) Unwrap() error {
	return fe.Cause
}

func Forbidden(cause error) *ForbiddenError {
	return &ForbiddenError{Cause: cause}
}

// UnavailableError covers connectivity loss, throttling and requests that an
// intermediary intercepted or blocked.
type UnavailableError struct {
	Cause error
}

func (ue *UnavailableError) Error() string {
	return fmt.Sprintf("Remote store unavailable: %v", ue.Cause)
}

func (ue *UnavailableError) Unwrap() error {
	return ue.Cause
}

func Unavailable(cause error) *UnavailableError {
	return &UnavailableError{Cause: cause}
}

type LocalStorageError struct {
	Op    string
	Key   string
	Cause error
}

func (le *LocalStorageError) Error() string {
	return fmt.Sprintf("Local storage %s failed for %s: %v", le.Op, le.Key, le.Cause)
}

func (le *LocalStorageError) Unwrap() error {
	return le.Cause
}

func LocalStorage(op string, key string, cause error) *LocalStorageError {
	return &LocalStorageError{Op: op, Key: key, Cause: cause}
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

func IsLocalStorage(err error) bool {
	var le *LocalStorageError
	return errors.As(err, &le)
}

// IsSurfaced reports whether the error should interrupt the user. Local
// failures and remote durability failures stay silent.
func IsSurfaced(err error) bool {
	if err == nil {
		return false
	}
	var fe *ForbiddenError
	var ie *InvalidInputError
	return errors.As(err, &fe) || errors.As(err, &ie)
}

func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// StatusCode maps an error onto the HTTP status the API answers with.
func StatusCode(err error) int {
	var nfe *NotFoundError
	var ce *ConflictError
	var ie *InvalidInputError
	var fe *ForbiddenError
	var ue *UnavailableError
	switch {
	case errors.As(err, &nfe):
		return 404
	case errors.As(err, &ce):
		return 409
	case errors.As(err, &ie):
		return 400
	case errors.As(err, &fe):
		return 403
	case errors.As(err, &ue):
		return 503
	default:
		return 500
	}
}
