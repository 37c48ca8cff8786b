package tex2typst

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/robertkrimen/otto"
	"github.com/robertkrimen/otto/parser"
)

var (
	// ErrContextClosed is returned when a Context is used after the
	// WithContext call that produced it has returned.
	ErrContextClosed = errors.New("interpreter context used outside WithContext")

	// ErrSessionBusy is returned when WithContext is entered on a Session that
	// another caller is already using.
	ErrSessionBusy = errors.New("session is in use by another caller")

	// ErrSessionClosed is returned by a Session after Close.
	ErrSessionClosed = errors.New("session is closed")
)

// InitStage names the step of Session creation that failed.
type InitStage string

const (
	StageRuntime InitStage = "runtime"
	StageContext InitStage = "context"
	StageBundle  InitStage = "bundle"
)

// EngineInitError reports a failure while creating a Session. It is never
// cached: the next call on the same registry attempts creation again.
type EngineInitError struct {
	Stage  InitStage
	Bundle string
	Err    error
}

func (e *EngineInitError) Error() string {
	return fmt.Sprintf("engine init failed at %s stage (bundle %s): %v", e.Stage, e.Bundle, e.Err)
}

func (e *EngineInitError) Unwrap() error {
	return e.Err
}

// BindingError reports that the bundle does not define the requested global
// function. It points at a mismatch between the bundle and the caller.
type BindingError struct {
	Name string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("global function '%s' not found", e.Name)
}

// TranslationError reports an option value that could not be converted into
// an interpreter value.
type TranslationError struct {
	Key   string
	Value any
	Err   error
}

func (e *TranslationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("options translation failed: %v", e.Err)
	}
	return fmt.Sprintf("options translation failed for %q (%v): %v", e.Key, e.Value, e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

// ConversionError reports an exception raised by a bundle function. Index is
// the position of Input within a batch, or -1 for single calls.
type ConversionError struct {
	Function string
	Input    string
	Index    int
	Err      error
}

func (e *ConversionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("conversion failed: %s", formatCause(e.Err))
	}
	return fmt.Sprintf("conversion failed for '%s': %s", e.Input, formatCause(e.Err))
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func formatCause(err error) string {
	var je *JSError
	if errors.As(err, &je) {
		return FormatException(je)
	}
	return err.Error()
}

// JSErrorKind separates script-level throws from engine faults.
type JSErrorKind int

const (
	// KindException is a thrown Error object carrying a message and,
	// usually, a stack trace.
	KindException JSErrorKind = iota
	// KindEngine is a fault of the embedding engine itself, such as a
	// malformed bundle or a Go panic inside the interpreter.
	KindEngine
	// KindValue is a thrown value that is not an Error object.
	KindValue
)

func (k JSErrorKind) String() string {
	switch k {
	case KindException:
		return "exception"
	case KindEngine:
		return "engine"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// JSError is an error raised inside the interpreter.
type JSError struct {
	Kind    JSErrorKind
	Name    string
	Message string
	Stack   string
	Value   string
	Err     error
}

func (e *JSError) Error() string {
	return FormatException(e)
}

func (e *JSError) Unwrap() error {
	return e.Err
}

// FormatException renders a JSError as a single diagnostic string.
func FormatException(e *JSError) string {
	switch e.Kind {
	case KindException:
		msg := e.Message
		if msg == "" {
			msg = "Unknown error"
		}
		if e.Stack != "" {
			return msg + "\nStack trace:\n" + e.Stack
		}
		return msg
	case KindEngine:
		return e.Message
	default:
		return "JavaScript error: " + e.Value
	}
}

type engineFault struct {
	v any
}

func (f *engineFault) Error() string {
	return fmt.Sprintf("engine panic: %v", f.v)
}

// newJSError classifies an error returned by otto.
func newJSError(err error) *JSError {
	var je *JSError
	if errors.As(err, &je) {
		return je
	}

	var oe *otto.Error
	if errors.As(err, &oe) {
		// String is Error followed by one "    at" line per frame.
		head := oe.Error()
		name, message := splitErrorName(head)
		stack := strings.Trim(strings.TrimPrefix(oe.String(), head), "\n")
		return &JSError{Kind: KindException, Name: name, Message: message, Stack: stack, Err: err}
	}

	var list parser.ErrorList
	var perr *parser.Error
	var fault *engineFault
	if errors.As(err, &list) || errors.As(err, &perr) || errors.As(err, &fault) {
		return &JSError{Kind: KindEngine, Message: err.Error(), Err: err}
	}

	// otto reports a thrown non-Error value as a plain error carrying the
	// value's string form.
	return &JSError{Kind: KindValue, Value: err.Error(), Err: err}
}

// splitErrorName splits otto's "<name>: <message>" form. A bare name means
// the error was thrown without a message.
func splitErrorName(s string) (name, message string) {
	if i := strings.Index(s, ": "); i > 0 && isErrorName(s[:i]) {
		return s[:i], s[i+2:]
	}
	if isErrorName(s) {
		return s, ""
	}
	return "", s
}

func isErrorName(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return s != ""
}
