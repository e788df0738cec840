package errors

import (
	"fmt"
	"testing"
)

func TestExitCodeFollowsWrappedCode(t *testing.T) {
	base := New(CodeRejected, "transaction rejected")
	wrapped := fmt.Errorf("submit: %w", base)
	if got := ExitCode(wrapped); got != int(CodeRejected) {
		t.Fatalf("expected exit %d, got %d", CodeRejected, got)
	}
	if !HasCode(wrapped, CodeRejected) {
		t.Fatal("expected HasCode to find rejection code")
	}
	if HasCode(wrapped, CodeUnavailable) {
		t.Fatal("did not expect transport code")
	}
}

func TestExitCodeDefaults(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Fatalf("expected 0 for nil error, got %d", got)
	}
	if got := ExitCode(fmt.Errorf("plain")); got != int(CodeInternal) {
		t.Fatalf("expected internal code for untyped error, got %d", got)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(CodeUnavailable, "daemon request failed", fmt.Errorf("connection refused"))
	if err.Error() != "daemon request failed: connection refused" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if TypeName(err.Code) != "transport_error" {
		t.Fatalf("unexpected type name: %s", TypeName(err.Code))
	}
}
