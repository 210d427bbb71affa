// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrUnprintable indicates the descriptor text contains a byte
	// outside of the printable ASCII range.
	ErrUnprintable ErrorCode = iota

	// ErrExpectedChar indicates the descriptor text ended, or continued
	// with the wrong character, where a delimiter was required.
	ErrExpectedChar

	// ErrSyntax indicates a malformed expression: an unknown function
	// name, a wrong number of arguments, an invalid key, hash or number
	// literal, a bad threshold or trailing input.
	ErrSyntax

	// ErrInvalidThreshold indicates a k-of-n construction where k is
	// zero or larger than n.
	ErrInvalidThreshold

	// ErrInvalidNesting indicates a wpkh, sh or wsh wrapper used below
	// the top level of a descriptor.
	ErrInvalidNesting

	// ErrKeyMapping indicates the caller supplied key mapping function
	// failed while instantiating a descriptor.  The original error is
	// available through errors.Unwrap.
	ErrKeyMapping

	// ErrUnsatisfied indicates no witness satisfying the program exists
	// for the supplied signatures, preimages and lock state.
	ErrUnsatisfied

	// ErrInvalidProgram indicates a program could not be built from a
	// descriptor that was not produced by the parser or constructors.
	ErrInvalidProgram

	// ErrNonStandard indicates a compiled program exceeds the script size
	// or opcode limits of standard transactions.
	ErrNonStandard

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrUnprintable:      "ErrUnprintable",
	ErrExpectedChar:     "ErrExpectedChar",
	ErrSyntax:           "ErrSyntax",
	ErrInvalidThreshold: "ErrInvalidThreshold",
	ErrInvalidNesting:   "ErrInvalidNesting",
	ErrKeyMapping:       "ErrKeyMapping",
	ErrUnsatisfied:      "ErrUnsatisfied",
	ErrInvalidProgram:   "ErrInvalidProgram",
	ErrNonStandard:      "ErrNonStandard",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error identifies a descriptor related error.  The caller can use type
// assertions or IsErrorCode to access the ErrorCode field to ascertain the
// specific reason for the failure.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error, if any
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error so errors.Is and errors.As can reach
// errors returned by caller supplied callbacks.
func (e Error) Unwrap() error {
	return e.Err
}

// descError creates an Error given a set of arguments.
func descError(c ErrorCode, desc string) Error {
	return Error{ErrorCode: c, Description: desc}
}

// NewError creates an Error for packages building on top of descriptors.
func NewError(c ErrorCode, desc string) Error {
	return descError(c, desc)
}

// IsErrorCode returns whether or not the provided error is a descriptor
// error with the provided error code.
func IsErrorCode(err error, c ErrorCode) bool {
	var e Error
	if errors.As(err, &e) {
		return e.ErrorCode == c
	}
	return false
}
