package daemon

import (
	"encoding/json"
	"testing"
)

func TestRejectReasonShapes(t *testing.T) {
	cases := map[string]string{
		`"out of funds"`:                    "out of funds",
		`{"message":"vault locked"}`:        "vault locked",
		`{"reason":"fee too low"}`:          "fee too low",
		`{"ExecutionFailure":"panic"}`:      "ExecutionFailure: panic",
		`{"InvalidTransaction":{"code":3}}`: "InvalidTransaction",
		`{"a":"one","b":"two"}`:             `{"a":"one","b":"two"}`,
	}
	for raw, want := range cases {
		got, err := rejectReason(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("rejectReason(%s) failed: %v", raw, err)
		}
		if got != want {
			t.Fatalf("rejectReason(%s) = %q, want %q", raw, got, want)
		}
	}
	if _, err := rejectReason(json.RawMessage(`[1]`)); err == nil {
		t.Fatal("expected error for array reject reason")
	}
}

func TestDecodeFinalizeNullDecisionIsAbsent(t *testing.T) {
	var fr finalizeResult
	if err := json.Unmarshal([]byte(`{"result":{"Accept":null,"Reject":"denied"}}`), &fr); err != nil {
		t.Fatalf("decode finalize: %v", err)
	}
	outcome, err := decodeFinalize("tx", &fr, false)
	if err != nil {
		t.Fatalf("decodeFinalize failed: %v", err)
	}
	if outcome.RejectReason != "denied" {
		t.Fatalf("unexpected reject reason %q", outcome.RejectReason)
	}
}
