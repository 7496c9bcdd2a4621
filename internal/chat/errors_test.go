package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{NewValidation("email", "malformed address"), ErrValidation},
		{NewConflict("already a member"), ErrConflict},
		{NewNotFound("conversation"), ErrNotFound},
		{NewPermission("nope"), ErrPermission},
		{NewStorage(errors.New("io")), ErrStorage},
	}
	kinds := []error{ErrValidation, ErrConflict, ErrNotFound, ErrPermission, ErrStorage}

	for _, tt := range tests {
		for _, k := range kinds {
			got := errors.Is(tt.err, k)
			want := k == tt.kind
			if got != want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, k, got, want)
			}
		}
	}
}

func TestErrorMessage(t *testing.T) {
	e := NewValidation("emoji", "not a recognized emoji")
	if e.Error() != "validation error: emoji: not a recognized emoji" {
		t.Errorf("unexpected message: %s", e.Error())
	}

	nf := NewNotFound("identity")
	if nf.Error() != "not found: identity does not exist" {
		t.Errorf("unexpected message: %s", nf.Error())
	}
}

func TestErrorWrappingThroughLayers(t *testing.T) {
	base := NewConflict("duplicate owner")
	wrapped := fmt.Errorf("joining conversation: %w", base)
	if !errors.Is(wrapped, ErrConflict) {
		t.Error("the kind must survive wrapping")
	}

	var domainErr *Error
	if !errors.As(wrapped, &domainErr) {
		t.Fatal("the typed error must be recoverable")
	}
	if domainErr.Message != "duplicate owner" {
		t.Errorf("unexpected message: %s", domainErr.Message)
	}
}

func TestStorageErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	e := NewStorage(cause)
	if !errors.Is(e, cause) {
		t.Error("the cause must be reachable through Unwrap")
	}
}
