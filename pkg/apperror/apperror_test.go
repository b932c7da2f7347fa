package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorStringIncludesCauseWhenPresent(t *testing.T) {
	cause := errors.New("disk full")
	err := IO("write file", cause)
	if err.Error() != "write file: disk full" {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
}

func TestErrorStringOmitsCauseWhenNil(t *testing.T) {
	err := Validation("bad offset")
	if err.Error() != "bad offset" {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Store("query", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through to the wrapped cause")
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := JSON("decode", errors.New("unexpected token"))
	wrapped := fmt.Errorf("loading config: %w", err)

	if !Is(wrapped, KindJSON) {
		t.Fatal("expected Is to find the KindJSON error through fmt.Errorf wrapping")
	}
	if Is(wrapped, KindIO) {
		t.Fatal("expected Is to reject a mismatched kind")
	}
}

func TestIsReturnsFalseForPlainError(t *testing.T) {
	if Is(errors.New("plain"), KindGeneric) {
		t.Fatal("expected Is to return false for a non-*Error")
	}
}
