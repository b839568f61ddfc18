// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestStepErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "no plugin",
			err:  Errorf(KindLogic, "subdivisions must be >= 1"),
			want: "subdivisions must be >= 1",
		},
		{
			name: "annotated",
			err:  Annotate("compute.tessellate", KindIO, Errorf(KindLogic, "bad")),
			want: "compute.tessellate: bad",
		},
		{
			name: "wrapped step error keeps outer message",
			err:  Annotate("compute.pipeline.create", KindResourceCreation, fmt.Errorf("load kernel: %w", Errorf(KindIO, "no such file"))),
			want: "compute.pipeline.create: load kernel: no such file",
		},
		{
			name: "plain error classified",
			err:  Annotate("texture.load", KindIO, fs.ErrNotExist),
			want: "texture.load: file does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStepErrorKinds(t *testing.T) {
	tests := []struct {
		kind     Kind
		sentinel error
		name     string
	}{
		{KindConfiguration, ErrConfiguration, "ConfigurationError"},
		{KindIO, ErrIO, "IOError"},
		{KindResourceCreation, ErrResourceCreation, "ResourceCreationError"},
		{KindLogic, ErrLogic, "LogicError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Annotate("p", KindIO, Errorf(tt.kind, "x"))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if KindOf(err) != tt.kind {
				t.Errorf("KindOf() = %v, want %v", KindOf(err), tt.kind)
			}
			if tt.kind.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.kind.String(), tt.name)
			}
		})
	}
}

func TestAnnotateKeepsExistingPlugin(t *testing.T) {
	inner := Annotate("compute.tessellate", KindLogic, errors.New("x"))
	outer := Annotate("runner", KindIO, inner)
	if outer != inner {
		t.Errorf("Annotate() rewrapped an error that already had a plugin id")
	}
	if Annotate("p", KindIO, nil) != nil {
		t.Error("Annotate(nil) != nil")
	}
	wrapped := Annotate("p", KindIO, fs.ErrPermission)
	if !errors.Is(wrapped, fs.ErrPermission) || !errors.Is(wrapped, ErrIO) {
		t.Errorf("Annotate() lost the chain: %v", wrapped)
	}
}

func TestAnnotateWrappedStepError(t *testing.T) {
	inner := Errorf(KindIO, "no such file")
	err := Annotate("compute.pipeline.create", KindResourceCreation, fmt.Errorf("load kernel: %w", inner))
	if KindOf(err) != KindIO {
		t.Errorf("KindOf() = %v, want %v", KindOf(err), KindIO)
	}
	if !errors.Is(err, ErrIO) || errors.Is(err, ErrResourceCreation) {
		t.Errorf("Annotate() matched the wrong sentinel: %v", err)
	}
	if !errors.Is(err, inner) {
		t.Error("Annotate() dropped the inner error from the chain")
	}
}

func TestCanceledKind(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		cause error
	}{
		{"canceled", Canceled("cancelled before allocation", context.Canceled), context.Canceled},
		{"annotated deadline", Annotate("texture.load", KindResourceCreation, fmt.Errorf("upload: %w", context.DeadlineExceeded)), context.DeadlineExceeded},
		{"annotated canceled", Annotate("p", KindIO, Canceled("stop", context.Canceled)), context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if KindOf(tt.err) != KindCanceled {
				t.Errorf("KindOf() = %v, want %v", KindOf(tt.err), KindCanceled)
			}
			if !errors.Is(tt.err, tt.cause) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.cause)
			}
			for _, s := range []error{ErrConfiguration, ErrIO, ErrResourceCreation, ErrLogic} {
				if errors.Is(tt.err, s) {
					t.Errorf("errors.Is(%v, %v) = true", tt.err, s)
				}
			}
		})
	}
	if KindCanceled.String() != "Canceled" {
		t.Errorf("String() = %q", KindCanceled.String())
	}
}
