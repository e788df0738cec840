package policy

import (
	"testing"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

func TestCheckCommandAllowed(t *testing.T) {
	if err := CheckCommandAllowed(nil, "coinctl total-supply"); err != nil {
		t.Fatalf("unexpected error with empty allowlist: %v", err)
	}
	if err := CheckCommandAllowed([]string{"coinctl  Total-Supply"}, "coinctl total-supply"); err != nil {
		t.Fatalf("expected command to be allowed: %v", err)
	}
	err := CheckCommandAllowed([]string{"coinctl history list"}, "coinctl send")
	if err == nil {
		t.Fatal("expected command to be blocked")
	}
	if !clierr.HasCode(err, clierr.CodeBlocked) {
		t.Fatalf("expected blocked code, got %v", err)
	}
}

func TestCheckReadOnly(t *testing.T) {
	if err := CheckReadOnly(false, "coinctl send", true, false); err != nil {
		t.Fatalf("unexpected error without read-only: %v", err)
	}
	if err := CheckReadOnly(true, "coinctl total-supply", false, false); err != nil {
		t.Fatalf("read-only should allow non-mutating commands: %v", err)
	}
	if err := CheckReadOnly(true, "coinctl send", true, true); err != nil {
		t.Fatalf("read-only should allow dry runs: %v", err)
	}
	err := CheckReadOnly(true, "coinctl send", true, false)
	if !clierr.HasCode(err, clierr.CodeBlocked) {
		t.Fatalf("expected blocked code, got %v", err)
	}
}
