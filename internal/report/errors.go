package report

import (
	"errors"
	"fmt"
)

// ParseError records a file that could not be read or parsed.
// It is non-fatal: the file is skipped and the run continues.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResolutionError records a component usage whose originating export could
// not be determined. The site stays in the graph marked unresolved.
type ResolutionError struct {
	Path      string
	LocalName string
	Reason    string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s in %s: %s", e.LocalName, e.Path, e.Reason)
}

// RuleError records a malformed rule set. The rule set is skipped;
// other rule sets continue to apply.
type RuleError struct {
	RuleSet string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule set %s: %v", e.RuleSet, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// ApplyError records an edit plan that produced an inconsistent span.
// The file is reported failed and left untouched.
type ApplyError struct {
	Path string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s: %v", e.Path, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// FatalError aborts the run before any file is touched: missing root,
// unparsable rule-set document. It is the only error that surfaces as a
// non-zero process exit.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err as a FatalError.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Fatalf builds a FatalError from a format string.
func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
