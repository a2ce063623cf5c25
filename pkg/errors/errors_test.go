package errors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(nil, "msg") != nil {
		t.Error("Wrap(nil, msg) should return nil")
	}
	err := errors.New("base")
	wrapped := Wrap(err, "context")
	if wrapped == nil {
		t.Fatal("Wrap(err, msg) should not return nil")
	}
	if !Is(wrapped, err) {
		t.Error("wrapped error should unwrap to base")
	}
	if wrapped.Error() != "context: base" {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "format %s", "x") != nil {
		t.Error("Wrapf(nil, ...) should return nil")
	}
	wrapped := Wrapf(ErrNotFound, "room %s", "G1")
	if !Is(wrapped, ErrNotFound) {
		t.Error("wrapped error should unwrap to ErrNotFound")
	}
}

func TestInvalidArgf(t *testing.T) {
	err := InvalidArgf("missing %s", "name")
	if !Is(err, ErrInvalidArg) {
		t.Error("InvalidArgf should be Is ErrInvalidArg")
	}
	if err.Error() != "invalid argument: missing name" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
