package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failure so transports and callers can react without string matching.
type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindLocked         Kind = "LOCKED"
	KindInvalidState   Kind = "INVALID_STATE"
	KindReconciliation Kind = "RECONCILIATION"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindForbidden      Kind = "FORBIDDEN"
	KindInternal       Kind = "INTERNAL"
)

type AppError struct {
	Kind    Kind
	Message string         // User-facing message
	Context map[string]any // Structured details (ids, amounts)
	Err     error          // Wrapped original error (optional)

	sentinel *AppError
}

// Error implements error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements errors.Unwrap interface for errors.Is/As
func (e *AppError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.sentinel != nil {
		return e.sentinel
	}
	return nil
}

// New creates a new AppError without wrapping
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap creates an AppError that wraps an existing error
func Wrap(err error, kind Kind, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Kind: kind, Message: message, Err: err}
}

// WithContext returns a copy of the sentinel carrying key/value context.
// errors.Is(result, sentinel) keeps holding. The sentinel's message is not repeated in Error.
func WithContext(sentinel *AppError, kv ...any) *AppError {
	ctx := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		ctx[key] = kv[i+1]
	}
	return &AppError{
		Kind:     sentinel.Kind,
		Message:  sentinel.Message,
		Context:  ctx,
		sentinel: sentinel,
	}
}

// KindOf reports the kind of the outermost AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConflict
}
