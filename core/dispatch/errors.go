package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrHandlerPanic is reported when a handler or middleware panics.
	ErrHandlerPanic = errors.New("dispatch: handler panic")

	// ErrDuplicateRouter is returned when a child name is already taken.
	ErrDuplicateRouter = errors.New("dispatch: duplicate router name")

	// ErrRouterAttached is returned when a router already has a parent or
	// including it would create a cycle.
	ErrRouterAttached = errors.New("dispatch: router already attached")
)

// MissingKeyError is returned by Get when the Context has no value of the type.
type MissingKeyError struct {
	Type string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("dispatch: context has no value of type %s", e.Type)
}

// ExtractionError means a handler argument could not be built from the
// request. When it comes from Bind, the observer treats it as "this
// candidate does not apply"; returned by a handler it is a handler error.
type ExtractionError struct {
	Type string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dispatch: cannot extract %s", e.Type)
	}
	return fmt.Sprintf("dispatch: cannot extract %s: %v", e.Type, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// MiddlewareError wraps a failure of a middleware's own logic.
type MiddlewareError struct {
	Middleware string
	Err        error
}

func (e *MiddlewareError) Error() string {
	return fmt.Sprintf("dispatch: middleware %s: %v", e.Middleware, e.Err)
}

func (e *MiddlewareError) Unwrap() error { return e.Err }

func wrapMiddleware(name string, err error) error {
	if err == nil {
		return nil
	}
	var mwErr *MiddlewareError
	if errors.As(err, &mwErr) {
		return err
	}
	return &MiddlewareError{Middleware: name, Err: err}
}
