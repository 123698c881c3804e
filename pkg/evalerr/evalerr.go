// Package evalerr holds the error taxonomy used during query evaluation.
//
// Every failure raised while evaluating an iterator, comparer or clause is a
// *DynamicError carrying an error code. Type errors are a distinguishable
// member of the taxonomy so that callers that receive them through a generic
// routine (such as a sort) can re-wrap them with the right clause context.
package evalerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a query-level error code, for example "XPTY0004".
type Code string

const (
	// CodeTypeError is raised when values are not of the expected type, or are
	// not mutually comparable.
	CodeTypeError Code = "XPTY0004"
	// CodeEffectiveBooleanValue is raised when the effective boolean value of a
	// sequence is undefined.
	CodeEffectiveBooleanValue Code = "FORG0006"
	// CodeUnknownCollation is raised when a collation URI cannot be resolved.
	CodeUnknownCollation Code = "FOCH0002"
	// CodeInvalidSortParameter is raised when order, case-order, language or
	// data-type of a sort key has an invalid value.
	CodeInvalidSortParameter Code = "XTDE0030"
	// CodeGroupingKeyCardinality is raised when a group-adjacent key is not a
	// single atomic value.
	CodeGroupingKeyCardinality Code = "XTTE1100"
	// CodeUndefinedVariable is raised when a variable slot is read before it
	// has been bound, or lies outside the frame.
	CodeUndefinedVariable Code = "XPDY0002"
	// CodeGeneral is used for failures without a more specific code.
	CodeGeneral Code = "FOER0000"
)

var (
	// ErrTypeError can be matched with errors.Is to detect type errors.
	ErrTypeError = errors.New("type error")
	// ErrDynamic can be matched with errors.Is to detect any dynamic error.
	ErrDynamic = errors.New("dynamic error")
)

// DynamicError is an error raised while evaluating a query.
type DynamicError struct {
	Code Code
	// Clause names the FLWOR clause or iterator in progress, if known.
	Clause string
	// Expression is a rendering of the expression in progress, if known.
	Expression string
	Message    string
	Cause      error
}

func (e *DynamicError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Clause != "" {
		fmt.Fprintf(&sb, " [clause %s]", e.Clause)
	}
	if e.Expression != "" {
		fmt.Fprintf(&sb, " [expression %s]", e.Expression)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *DynamicError) Unwrap() error {
	return e.Cause
}

// Is makes every DynamicError match ErrDynamic, and type errors additionally
// match ErrTypeError.
func (e *DynamicError) Is(target error) bool {
	switch target {
	case ErrDynamic:
		return true
	case ErrTypeError:
		return e.Code == CodeTypeError
	}
	return false
}

// New returns a DynamicError with the given code and message.
func New(code Code, format string, args ...any) *DynamicError {
	return &DynamicError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// TypeError returns a DynamicError with code XPTY0004.
func TypeError(format string, args ...any) *DynamicError {
	return New(CodeTypeError, format, args...)
}

// IsTypeError reports whether err is, or wraps, a type error.
func IsTypeError(err error) bool {
	return errors.Is(err, ErrTypeError)
}

// CodeOf returns the code of the outermost DynamicError in err's chain, or
// CodeGeneral if there is none.
func CodeOf(err error) Code {
	var de *DynamicError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeGeneral
}

// Wrap attaches clause and expression context to err. If err already is a
// DynamicError without that context, a copy with the context filled in is
// returned; other errors are wrapped in a DynamicError with code CodeGeneral.
// A nil err yields nil.
func Wrap(err error, clause, expression string) error {
	if err == nil {
		return nil
	}
	var de *DynamicError
	if errors.As(err, &de) {
		if (clause == "" || de.Clause != "") && (expression == "" || de.Expression != "") {
			return err
		}
		cp := *de
		if cp.Clause == "" {
			cp.Clause = clause
		}
		if cp.Expression == "" {
			cp.Expression = expression
		}
		return &cp
	}
	return &DynamicError{
		Code:       CodeGeneral,
		Clause:     clause,
		Expression: expression,
		Message:    "evaluation failed",
		Cause:      err,
	}
}
