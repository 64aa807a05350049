package types

import (
	"errors"
	"fmt"
)

// RefactorError represents errors in refactoring operations
type RefactorError struct {
	Type    ErrorType
	Message string
	File    string
	Line    int
	Column  int
	Cause   error
}

func (e *RefactorError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return e.Message
}

func (e *RefactorError) Unwrap() error {
	return e.Cause
}

type ErrorType int

const (
	ParseError ErrorType = iota
	SymbolNotFound
	NotTopLevelSymbol
	UnsupportedSymbolKind
	ReferencedExternally
	NamingConflict
	EmptyNewName
	ReservedKeyword
	SameFileMove
	UnexpectedIOError
	CyclicDependency
)

// String returns the taxonomy name of an ErrorType.
func (t ErrorType) String() string {
	switch t {
	case ParseError:
		return "ParseError"
	case SymbolNotFound:
		return "SymbolNotFound"
	case NotTopLevelSymbol:
		return "NotTopLevelSymbol"
	case UnsupportedSymbolKind:
		return "UnsupportedSymbolKind"
	case ReferencedExternally:
		return "ReferencedExternally"
	case NamingConflict:
		return "NamingConflict"
	case EmptyNewName:
		return "EmptyNewName"
	case ReservedKeyword:
		return "ReservedKeyword"
	case SameFileMove:
		return "SameFileMove"
	case UnexpectedIOError:
		return "UnexpectedIOError"
	case CyclicDependency:
		return "CyclicDependency"
	default:
		return "Unknown"
	}
}

// NewError builds a RefactorError without positional context.
func NewError(t ErrorType, format string, args ...any) *RefactorError {
	return &RefactorError{Type: t, Message: fmt.Sprintf(format, args...)}
}

// NewFileError builds a RefactorError anchored to a file position.
func NewFileError(t ErrorType, file string, line, column int, format string, args ...any) *RefactorError {
	return &RefactorError{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
		File:    file,
		Line:    line,
		Column:  column,
	}
}

// WrapIO wraps an I/O failure from the file layer.
func WrapIO(file string, err error) *RefactorError {
	return &RefactorError{
		Type:    UnexpectedIOError,
		Message: fmt.Sprintf("unexpected I/O error on %s: %v", file, err),
		File:    file,
		Cause:   err,
	}
}

// ErrorTypeOf extracts the taxonomy type from an error chain. The second
// return is false when no RefactorError is present.
func ErrorTypeOf(err error) (ErrorType, bool) {
	var re *RefactorError
	if errors.As(err, &re) {
		return re.Type, true
	}
	return 0, false
}
