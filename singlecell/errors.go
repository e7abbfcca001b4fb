package singlecell

import (
	"errors"
	"fmt"
)

// ErrKind classifies pipeline failures so callers can distinguish parameter
// mistakes (fixable by re-running with different options) from malformed
// inputs and from numeric degeneracies in the data itself.
type ErrKind int

const (
	// KindOther is any error not covered by the kinds below.
	KindOther ErrKind = iota
	// KindConfig indicates options that cannot produce a result, e.g. QC
	// bounds rejecting every cell, or more PCA components than dimensions.
	KindConfig
	// KindShapeMismatch indicates a matrix/metadata dimension disagreement
	// between pipeline stages.
	KindShapeMismatch
	// KindDegenerate indicates numerically degenerate input to a stage that
	// requires variance, e.g. an all-constant matrix handed to PCA.
	KindDegenerate
)

func (k ErrKind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindShapeMismatch:
		return "shape mismatch"
	case KindDegenerate:
		return "numeric degeneracy"
	}
	return "error"
}

// Error is the error type returned by all stages in this package.
type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Msg }

// Is reports whether target is an *Error of the same kind, so
// errors.Is(err, &Error{Kind: KindConfig}) matches any configuration error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// KindOf returns the ErrKind of err, or KindOther if err was not produced by
// this package.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

func configErrorf(format string, args ...interface{}) error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

func shapeErrorf(format string, args ...interface{}) error {
	return &Error{Kind: KindShapeMismatch, Msg: fmt.Sprintf(format, args...)}
}

func degenerateErrorf(format string, args ...interface{}) error {
	return &Error{Kind: KindDegenerate, Msg: fmt.Sprintf(format, args...)}
}
