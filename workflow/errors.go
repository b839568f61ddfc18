// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a step failed.
type Kind uint8

const (
	// KindConfiguration covers missing or mistyped parameters, ports and
	// context entries.
	KindConfiguration Kind = iota + 1

	// KindIO covers files that cannot be read or decoded.
	KindIO

	// KindResourceCreation covers device objects the device refused to create.
	KindResourceCreation

	// KindLogic covers parameter values outside their valid range.
	KindLogic

	// KindCanceled covers runs stopped through their context. It matches no
	// sentinel of its own; the chain carries context.Canceled or
	// context.DeadlineExceeded.
	KindCanceled
)

// Sentinel errors matched by [StepError] through errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrIO               = errors.New("io error")
	ErrResourceCreation = errors.New("resource creation error")
	ErrLogic            = errors.New("logic error")
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindIO:
		return "IOError"
	case KindResourceCreation:
		return "ResourceCreationError"
	case KindLogic:
		return "LogicError"
	case KindCanceled:
		return "Canceled"
	default:
		return "UnknownError"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindIO:
		return ErrIO
	case KindResourceCreation:
		return ErrResourceCreation
	case KindLogic:
		return ErrLogic
	default:
		return nil
	}
}

// StepError is the error returned by a failing step. It formats as
// "<plugin-id>: <reason>" and matches the sentinel of its Kind.
type StepError struct {
	PluginID string
	Kind     Kind
	Err      error
}

func (e *StepError) Error() string {
	if e.PluginID == "" {
		return e.Err.Error()
	}
	return e.PluginID + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Kind.
func (e *StepError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Errorf returns a StepError of the given kind with no plugin id attached.
func Errorf(kind Kind, format string, args ...any) error {
	return &StepError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Canceled returns a KindCanceled StepError wrapping the context error
// cause, prefixed with msg.
func Canceled(msg string, cause error) error {
	return &StepError{Kind: KindCanceled, Err: fmt.Errorf("%s: %w", msg, cause)}
}

// Annotate attaches pluginID to err. A StepError in the chain keeps its
// kind, context errors are KindCanceled, and any other error is classified
// as kind. Errors that already carry a plugin id are returned unchanged.
func Annotate(pluginID string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var se *StepError
	if errors.As(err, &se) {
		if se.PluginID != "" {
			return err
		}
		if top, ok := err.(*StepError); ok {
			return &StepError{PluginID: pluginID, Kind: top.Kind, Err: top.Err}
		}
		return &StepError{PluginID: pluginID, Kind: se.Kind, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCanceled
	}
	return &StepError{PluginID: pluginID, Kind: kind, Err: err}
}

// KindOf returns the kind of the first StepError in err's chain, or zero.
func KindOf(err error) Kind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
