package nbt

import (
	"fmt"

	"github.com/yehan2002/errors"
)

const (
	// ErrTruncatedInput the input ended before the value being decoded was complete.
	ErrTruncatedInput = errors.Error("nbt: truncated input")
	// ErrInvalidTagKind a kind byte outside of 0-12 was read.
	ErrInvalidTagKind = errors.Error("nbt: invalid tag kind")
	// ErrInvalidCount a list or array declared a negative length.
	ErrInvalidCount = errors.Error("nbt: invalid count")
	// ErrInvalidEncoding a string is not valid modified UTF-8.
	ErrInvalidEncoding = errors.Error("nbt: invalid modified utf-8")
	// ErrMaxDepthExceeded the document nests compounds and lists deeper than allowed.
	ErrMaxDepthExceeded = errors.Error("nbt: maximum depth exceeded")

	// ErrKindMismatch a tag does not have the expected kind.
	ErrKindMismatch = errors.Error("nbt: kind mismatch")
	// ErrNoSuchMember the compound member or list index does not exist.
	ErrNoSuchMember = errors.Error("nbt: no such member")
	// ErrValueOutOfRange the value cannot be represented by the tag kind.
	ErrValueOutOfRange = errors.Error("nbt: value out of range")
	// ErrDuplicateMember a compound contains the same name more than once.
	ErrDuplicateMember = errors.Error("nbt: duplicate member")
)

// SyntaxError describes malformed input found while decoding.
type SyntaxError struct {
	// Offset the offset of the field that could not be decoded.
	Offset int64
	// Kind the kind of the value that was being decoded.
	Kind Kind
	// Err one of the Err* decoding constants.
	Err error
	msg string
}

func (e *SyntaxError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("%s at offset %d (%s): %s", e.Err, e.Offset, e.Kind, e.msg)
	}
	return fmt.Sprintf("%s at offset %d (%s)", e.Err, e.Offset, e.Kind)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// EncodeError describes a value that could not be encoded.
type EncodeError struct {
	// Path the location of the value in the tree, for example `Level.Sections[2].Y`.
	Path string
	// Err one of ErrValueOutOfRange, ErrKindMismatch or ErrDuplicateMember.
	Err error
	msg string
}

func (e *EncodeError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	if e.msg != "" {
		return fmt.Sprintf("%s at %s: %s", e.Err, path, e.msg)
	}
	return fmt.Sprintf("%s at %s", e.Err, path)
}

func (e *EncodeError) Unwrap() error { return e.Err }
