// Package errors provides the error taxonomy shared by the catalog engine and its storage adapters.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a catalog failure independently of the message it carries.
type Kind int

const (
	Unknown Kind = iota
	InvalidArgument
	AlreadyExists
	NotFound
	InsufficientQuantity
	StorageFailure
)

var kindNames = map[Kind]string{
	Unknown:              "Unknown",
	InvalidArgument:      "InvalidArgument",
	AlreadyExists:        "AlreadyExists",
	NotFound:             "NotFound",
	InsufficientQuantity: "InsufficientQuantity",
	StorageFailure:       "StorageFailure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrProductAlreadyExists = errors.New("product already exists")
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrStorageFailure       = errors.New("storage failure")
	// ErrNilTags marks a nil tag collection, distinct from a collection with no usable tags.
	ErrNilTags = errors.New("tags collection is nil")
)

var sentinels = map[Kind]error{
	InvalidArgument:      ErrInvalidArgument,
	AlreadyExists:        ErrProductAlreadyExists,
	NotFound:             ErrProductNotFound,
	InsufficientQuantity: ErrInsufficientQuantity,
	StorageFailure:       ErrStorageFailure,
}

// Error is a catalog failure. Use errors.Is with the Err* sentinels to test the kind,
// or errors.As to read the details.
type Error struct {
	Kind Kind
	// Product is the product name the failure refers to, if any.
	Product string
	// Param is the offending parameter for InvalidArgument failures.
	Param string
	// Available and Requested are set for InsufficientQuantity failures.
	Available int
	Requested int

	msg   string
	cause error
	extra error
}

func (e *Error) Error() string {
	return e.msg
}

// Unwrap exposes the kind sentinel and, for storage failures, the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.extra != nil {
		errs = append(errs, e.extra)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// NewInvalidArgument reports a violated input precondition.
func NewInvalidArgument(param, message string) *Error {
	return &Error{Kind: InvalidArgument, Param: param, msg: message}
}

// NewNilTags reports a nil tag collection.
func NewNilTags() *Error {
	return &Error{Kind: InvalidArgument, Param: "tags", msg: "Tags collection cannot be nil.", extra: ErrNilTags}
}

func NewAlreadyExists(name string) *Error {
	return &Error{Kind: AlreadyExists, Product: name, msg: fmt.Sprintf("Product '%s' already exists in catalog.", name)}
}

func NewNotFound(name string) *Error {
	return &Error{Kind: NotFound, Product: name, msg: fmt.Sprintf("Product '%s' not found in catalog.", name)}
}

func NewInsufficientQuantity(name string, available, requested int) *Error {
	return &Error{
		Kind:      InsufficientQuantity,
		Product:   name,
		Available: available,
		Requested: requested,
		msg:       fmt.Sprintf("Cannot purchase %d units of '%s'. Only %d units available.", requested, name, available),
	}
}

// NewStorageFailure wraps an unexpected backing store error.
func NewStorageFailure(op string, cause error) *Error {
	return &Error{Kind: StorageFailure, msg: fmt.Sprintf("storage failure during %s: %v", op, cause), cause: cause}
}

// KindOf returns the Kind of err, or Unknown if err is not a catalog error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
